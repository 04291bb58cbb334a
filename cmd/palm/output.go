package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bryanwahyu/palm-oracle/internal/report"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatHTML = "html"
)

// openOut returns stdout when path is empty.
func openOut(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// writeReport renders d in the given format. jsonValue is what the json format prints.
func writeReport(w io.Writer, format string, d report.Data, jsonValue any) error {
	switch format {
	case formatText:
		_, err := fmt.Fprintln(w, report.RenderTerminal(d))
		return err
	case formatHTML:
		return report.RenderHTML(w, d)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonValue)
	}
	return fmt.Errorf("unknown format %q (text, json or html)", format)
}
