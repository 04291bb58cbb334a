package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appai "github.com/bryanwahyu/palm-oracle/internal/application/ai"
	"github.com/bryanwahyu/palm-oracle/internal/application/wizard"
	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/report"
)

var (
	renderImage  string
	renderFormat string
	renderOut    string
)

var renderCmd = &cobra.Command{
	Use:   "render READING.json",
	Short: "Render a saved reading without calling the model",
	Long: `Accepts either a stored reading (as printed by "palm read --format json"
or "palm history show --format json") or the raw JSON the model returned.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderImage, "image", "", "photo to put under the overlay")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", formatHTML, "text, json or html")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write the report to a file")
}

func runRender(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	d, err := loadReport(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	if renderImage != "" {
		img, err := os.ReadFile(renderImage)
		if err != nil {
			return err
		}
		mime, err := wizard.DetectImageType(img)
		if err != nil {
			return err
		}
		d.Image, d.ImageMIME = img, mime
	}

	w, closeOut, err := openOut(renderOut, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := writeReport(w, renderFormat, d, d.Analysis); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

// loadReport understands both a stored reading and bare model output.
func loadReport(raw []byte) (report.Data, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err == nil {
		if _, ok := probe["analysis"]; ok {
			var r reading.Reading
			if err := json.Unmarshal(raw, &r); err != nil {
				return report.Data{}, err
			}
			r.Analysis.Normalize()
			return report.Data{Profile: r.Profile, Analysis: &r.Analysis, CreatedAt: r.CreatedAt}, nil
		}
	}
	a, err := appai.Decode(string(raw))
	if err != nil {
		return report.Data{}, err
	}
	return report.Data{Profile: reading.DefaultProfile(), Analysis: a}, nil
}
