// Package report renders a palm reading for print (HTML) and for the terminal.
package report

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

// Data is everything a report needs.
type Data struct {
	Profile   reading.Profile
	Analysis  *reading.PalmAnalysis
	Image     []byte
	ImageMIME string
	CreatedAt time.Time
}

// Marker is one overlay dot, positioned in percent of the photo size.
type Marker struct {
	Line    reading.LineKey
	Color   string
	LeftPct float64
	TopPct  float64
	Detail  string
}

// Markers flattens the four lines into overlay dots.
func Markers(a *reading.PalmAnalysis) []Marker {
	if a == nil {
		return nil
	}
	var out []Marker
	for _, l := range a.Lines() {
		for _, p := range l.Line.Points {
			out = append(out, Marker{
				Line:    l.Key,
				Color:   l.Color,
				LeftPct: p.X * 100,
				TopPct:  p.Y * 100,
				Detail:  p.Detail,
			})
		}
	}
	return out
}

// DataURL inlines the photo so the printed page is self-contained.
func (d Data) DataURL() string {
	if len(d.Image) == 0 {
		return ""
	}
	mime := d.ImageMIME
	if mime == "" {
		mime = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(d.Image))
}
