package report

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var ErrNoAnalysis = errors.New("report has no analysis")

var htmlTmpl = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"pct": pct,
	// colours and coordinates are produced by this package, never by the model
	"markerStyle": func(m Marker) template.CSS {
		return template.CSS(fmt.Sprintf("left:%.2f%%;top:%.2f%%;background-color:%s;color:%s",
			m.LeftPct, m.TopPct, m.Color, m.Color))
	},
	"dotStyle": func(color string) template.CSS {
		return template.CSS("background-color:" + color)
	},
	"barStyle": func(score float64) template.CSS {
		return template.CSS("width:" + pct(score) + "%")
	},
}).ParseFS(templateFS, "templates/report.html.tmpl"))

type htmlView struct {
	Data
	Archetype string
	Photo     template.URL
	Markers   []Marker
	Lines     []reading.NamedLine
	Generated string
}

// RenderHTML writes a standalone printable page; the photo is inlined.
func RenderHTML(w io.Writer, d Data) error {
	if d.Analysis == nil {
		return ErrNoAnalysis
	}
	v := htmlView{
		Data:      d,
		Archetype: d.Analysis.ArchetypeName(),
		Markers:   Markers(d.Analysis),
		Lines:     d.Analysis.Lines(),
	}
	// data: URL from our own base64 encoding
	if u := d.DataURL(); u != "" {
		v.Photo = template.URL(u)
	}
	if !d.CreatedAt.IsZero() {
		v.Generated = d.CreatedAt.Format("2006-01-02 15:04")
	}
	return htmlTmpl.Execute(w, v)
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
