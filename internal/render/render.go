package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/lox/marsweather/internal/metrics"
	"github.com/lox/marsweather/internal/transform"
)

//go:embed templates/*
var templateFS embed.FS

const DefaultPlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

type Renderer struct {
	outDir    string
	scriptURL string
	inlineJS  template.JS
	tmpl      *template.Template
}

type page struct {
	Kind      string
	Title     string
	Source    string
	Points    int
	ScriptURL string
	InlineJS  template.JS
	Figure    template.JS
}

func NewRenderer(outDir string) *Renderer {
	return &Renderer{
		outDir:    outDir,
		scriptURL: DefaultPlotlyURL,
		tmpl:      template.Must(template.New("").ParseFS(templateFS, "templates/*.html")),
	}
}

// SetScriptURL points pages at a different copy of plotly.js.
func (r *Renderer) SetScriptURL(url string) {
	r.scriptURL = url
}

// InlinePlotly embeds the plotly.js bundle at path into every page so the
// output works without network access.
func (r *Renderer) InlinePlotly(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plotly bundle: %w", err)
	}
	r.inlineJS = template.JS(b)
	return nil
}

// WriteAll writes one document per chart kind and returns the paths written.
// Charts whose view could not be derived are skipped.
func (r *Renderer) WriteAll(v *transform.Views) ([]string, error) {
	if err := os.MkdirAll(r.outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	paths := make([]string, 0, len(Charts))
	for _, c := range Charts {
		if verr := v.Err(c.Kind); verr != nil {
			log.Printf("render: skipping %s: %v", c.File, verr)
			continue
		}
		path, err := r.Write(c, v)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Write renders a single chart.
func (r *Renderer) Write(c Chart, v *transform.Views) (string, error) {
	start := time.Now()
	fig := c.build(v)

	data, err := json.Marshal(fig)
	if err != nil {
		return "", fmt.Errorf("marshal %s figure: %w", c.Kind, err)
	}

	var buf bytes.Buffer
	err = r.tmpl.ExecuteTemplate(&buf, "chart.html", page{
		Kind:      c.Kind,
		Title:     fig.Layout.Title.Text,
		Source:    filepath.Base(v.Source),
		Points:    countPoints(fig),
		ScriptURL: r.scriptURL,
		InlineJS:  r.inlineJS,
		Figure:    template.JS(data),
	})
	if err != nil {
		return "", fmt.Errorf("execute %s template: %w", c.Kind, err)
	}

	path := filepath.Join(r.outDir, c.File)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	metrics.ChartsRendered.WithLabelValues(c.Kind).Inc()
	metrics.RenderLatency.WithLabelValues(c.Kind).Observe(time.Since(start).Seconds())
	log.Printf("render: wrote %s", path)
	return path, nil
}

// countPoints sums the lengths of the x or r arrays of the initial traces.
func countPoints(fig Figure) int {
	n := 0
	for _, t := range fig.Data {
		for _, axis := range []any{t.X, t.R} {
			if axis == nil {
				continue
			}
			if rv := reflect.ValueOf(axis); rv.Kind() == reflect.Slice {
				n += rv.Len()
				break
			}
		}
	}
	return n
}
