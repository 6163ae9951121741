package render

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lox/marsweather/internal/transform"
)

func testViews() *transform.Views {
	d := func(m time.Month, day int) time.Time { return time.Date(2013, m, day, 0, 0, 0, 0, time.UTC) }
	nf := func(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

	return &transform.Views{
		Source: "/data/mars-weather.csv",
		Temperature: []transform.TempPoint{
			{Sol: 1, Date: d(1, 1), Min: nf(-70), Max: nf(-20)},
			{Sol: 2, Date: d(1, 2), Max: nf(-15)},
		},
		Pressure: []transform.DatedValue{
			{Sol: 1, Date: d(1, 1), Value: 750},
			{Sol: 2, Date: d(1, 2), Value: 760},
		},
		Opacity: []transform.CategoryCount{{Label: "Sunny", Count: 1}, {Label: "Cloudy", Count: 1}},
		Seasons: []transform.SeasonAverage{
			{Season: "Winter", Sols: 2, MinTemp: nf(-70), MaxTemp: nf(-17.5), Pressure: nf(755)},
			{Season: "Spring", Sols: 1, MaxTemp: nf(-10)},
		},
		Years: []transform.YearFrame{
			{Year: 2012, Points: []transform.SolValue{{Sol: 1, Value: -20}}},
			{Year: 2013, Points: []transform.SolValue{{Sol: 2, Value: -15}, {Sol: 3, Value: -12}}},
		},
		Polar: transform.Polar{
			MinTemp:  []transform.PolarPoint{{Sol: 1, Ls: 10, Value: -70}},
			MaxTemp:  []transform.PolarPoint{{Sol: 1, Ls: 10, Value: -20}, {Sol: 2, Ls: 15, Value: -15}},
			Pressure: []transform.PolarPoint{{Sol: 1, Ls: 10, Value: 750}, {Sol: 2, Ls: 15, Value: 760}},
		},
	}
}

func TestWriteAll_WritesEveryChart(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewRenderer(dir).WriteAll(testViews())
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if len(paths) != 6 || len(Charts) != 6 {
		t.Fatalf("wrote %d charts (%d defined), want 6", len(paths), len(Charts))
	}

	for i, path := range paths {
		if filepath.Base(path) != Charts[i].File {
			t.Errorf("path[%d] = %s, want %s", i, path, Charts[i].File)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		body := string(b)
		if !strings.HasPrefix(body, "<!DOCTYPE html>") || !strings.HasSuffix(strings.TrimSpace(body), "</html>") {
			t.Errorf("%s is not a complete HTML document", path)
		}
		if !strings.Contains(body, "Plotly.newPlot") {
			t.Errorf("%s has no plot call", path)
		}
		if !strings.Contains(body, DefaultPlotlyURL) {
			t.Errorf("%s does not reference plotly.js", path)
		}
	}
}

func TestWriteAll_Deterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	if _, err := NewRenderer(a).WriteAll(testViews()); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRenderer(b).WriteAll(testViews()); err != nil {
		t.Fatal(err)
	}
	for _, c := range Charts {
		x, _ := os.ReadFile(filepath.Join(a, c.File))
		y, _ := os.ReadFile(filepath.Join(b, c.File))
		if !bytes.Equal(x, y) {
			t.Errorf("%s differs between runs", c.File)
		}
	}
}

func TestInlinePlotly(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "plotly.min.js")
	if err := os.WriteFile(bundle, []byte("window.Plotly={inlined:true};"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRenderer(filepath.Join(dir, "out"))
	if err := r.InlinePlotly(bundle); err != nil {
		t.Fatalf("InlinePlotly: %v", err)
	}
	path, err := r.Write(Charts[0], testViews())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "window.Plotly={inlined:true};") {
		t.Error("bundle not inlined")
	}
	if strings.Contains(string(b), DefaultPlotlyURL) {
		t.Error("inlined page should not reference the CDN")
	}
}

func TestTemperatureFigure_GapsAreNull(t *testing.T) {
	fig := temperatureFigure(testViews())
	data, err := json.Marshal(fig.Data[0].Y)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[-70,null]" {
		t.Errorf("min series = %s, want [-70,null]", data)
	}
}

func TestSeasonFigure_AbsentAverageIsNull(t *testing.T) {
	fig := seasonFigure(testViews())
	data, _ := json.Marshal(fig.Data[2].Y)
	if string(data) != "[755,null]" {
		t.Errorf("pressure bars = %s, want [755,null]", data)
	}
	if fig.Layout.BarMode != "group" {
		t.Errorf("BarMode = %q, want group", fig.Layout.BarMode)
	}
}

func TestAnimationFigure_FramePerYear(t *testing.T) {
	fig := animationFigure(testViews())
	if len(fig.Frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(fig.Frames))
	}
	if fig.Frames[0].Name != "2012" || fig.Frames[1].Name != "2013" {
		t.Errorf("frame names = %s, %s", fig.Frames[0].Name, fig.Frames[1].Name)
	}
	if len(fig.Layout.Sliders) != 1 || len(fig.Layout.Sliders[0].Steps) != 2 {
		t.Error("expected one slider with a step per year")
	}
	if got := fig.Layout.XAxis.Range; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("x range = %v, want [1 3]", got)
	}
}

func TestAnimationFigure_NoYears(t *testing.T) {
	v := testViews()
	v.Years = nil
	fig := animationFigure(v)
	if len(fig.Frames) != 0 || len(fig.Data) != 0 {
		t.Errorf("expected empty figure, got %d traces %d frames", len(fig.Data), len(fig.Frames))
	}
}

func TestPolarFigure_TwoSubplots(t *testing.T) {
	fig := polarFigure(testViews())
	if fig.Layout.Polar == nil || fig.Layout.Polar2 == nil {
		t.Fatal("expected polar and polar2 layouts")
	}
	if fig.Data[2].Subplot != "polar2" {
		t.Errorf("pressure subplot = %q, want polar2", fig.Data[2].Subplot)
	}
	if fig.Layout.Polar.AngularAxis.Direction != "clockwise" {
		t.Error("angular axis should run clockwise")
	}
}

func TestGeneratePreview(t *testing.T) {
	data, err := GeneratePreview(testViews())
	if err != nil {
		t.Fatalf("GeneratePreview: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != PreviewWidth || b.Dy() != PreviewHeight {
		t.Errorf("size = %v, want %dx%d", b, PreviewWidth, PreviewHeight)
	}

	empty := testViews()
	empty.Temperature = nil
	if _, err := GeneratePreview(empty); err != nil {
		t.Errorf("GeneratePreview with no data: %v", err)
	}
}

func TestWriteAll_SkipsUnavailableViews(t *testing.T) {
	v := testViews()
	v.Errors = map[string]error{transform.ViewPolar: errors.New("polar: missing required column: ls")}

	dir := t.TempDir()
	paths, err := NewRenderer(dir).WriteAll(v)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if len(paths) != 5 {
		t.Errorf("wrote %d charts, want 5", len(paths))
	}
	if _, err := os.Stat(filepath.Join(dir, "polar_plot.html")); !os.IsNotExist(err) {
		t.Error("polar_plot.html written for an unavailable view")
	}
}
