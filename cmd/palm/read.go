package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/palm-oracle/internal/application/wizard"
	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/domain/session"
)

var (
	readAge    int
	readGender string
	readFormat string
	readOut    string
	readQuiet  bool
)

var readCmd = &cobra.Command{
	Use:   "read IMAGE",
	Short: "Read a palm photo",
	Long: `Runs the whole wizard for one photo: profile, capture, analysis and result.
The photo must be JPEG, PNG, WebP or HEIC.

Example:
  palm read hand.jpg --age 31 --gender female --format html --out reading.html`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	def := reading.DefaultProfile()
	readCmd.Flags().IntVar(&readAge, "age", def.Age, "age (1-120)")
	readCmd.Flags().StringVar(&readGender, "gender", string(def.Gender), "male or female")
	readCmd.Flags().StringVarP(&readFormat, "format", "f", formatText, "text, json or html")
	readCmd.Flags().StringVarP(&readOut, "out", "o", "", "write the report to a file")
	readCmd.Flags().BoolVarP(&readQuiet, "quiet", "q", false, "no loading messages")
}

func runRead(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	gender, err := reading.ParseGender(readGender)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	wiz := app.Wizard

	snap, err := wiz.Start(ctx)
	if err != nil {
		return err
	}
	id := snap.ID
	defer wiz.Close(context.WithoutCancel(ctx), id)

	if _, err := wiz.SubmitProfile(ctx, id, reading.Profile{Age: readAge, Gender: gender}); err != nil {
		return err
	}
	if _, err := wiz.AttachImage(ctx, id, data); err != nil {
		return err
	}

	stop := showLoading(cmd, wiz.Get, id)
	snap, err = wiz.Analyze(ctx, id)
	stop()
	if err != nil {
		return err
	}
	if snap.State != session.StateResult {
		logger.Debug("analysis failed", zap.String("kind", string(snap.ErrorKind)))
		return fmt.Errorf("%s", snap.Error)
	}

	d, err := wiz.Report(ctx, id)
	if err != nil {
		return err
	}

	w, closeOut, err := openOut(readOut, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	var jsonValue any = snap.Result
	if snap.ReadingID != "" {
		jsonValue = struct {
			ID reading.ReadingID `json:"id"`
			reading.Profile
			Analysis *reading.PalmAnalysis `json:"analysis"`
		}{snap.ReadingID, snap.Profile, snap.Result}
	}
	if err := writeReport(w, readFormat, d, jsonValue); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

// showLoading prints the rotating loading phrase to stderr until stop is called.
func showLoading(cmd *cobra.Command, get func(context.Context, session.ID) (wizard.Snapshot, error), id session.ID) (stop func()) {
	if readQuiet {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		t := time.NewTicker(session.LoadingInterval)
		defer t.Stop()
		last := ""
		for {
			if snap, err := get(context.Background(), id); err == nil && snap.LoadingText != "" && snap.LoadingText != last {
				last = snap.LoadingText
				fmt.Fprintln(cmd.ErrOrStderr(), last)
			}
			select {
			case <-done:
				return
			case <-t.C:
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
