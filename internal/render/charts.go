package render

import (
	"strconv"

	"github.com/lox/marsweather/internal/transform"
)

const dateFormat = "2006-01-02"

const (
	colorMin      = "skyblue"
	colorMax      = "orangered"
	colorPressure = "limegreen"
	colorAnimated = "tomato"
)

// Category colours for the opacity bars, cycled.
var palette = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// Chart is one output document. Kind doubles as the name of the view it draws.
type Chart struct {
	Kind  string
	File  string
	build func(*transform.Views) Figure
}

// Charts is the fixed chart set, in the order they are written.
var Charts = []Chart{
	{Kind: transform.ViewTemperature, File: "temperature_plot.html", build: temperatureFigure},
	{Kind: transform.ViewPressure, File: "pressure_plot.html", build: pressureFigure},
	{Kind: transform.ViewOpacity, File: "opacity_plot.html", build: opacityFigure},
	{Kind: transform.ViewSeason, File: "season_comparison.html", build: seasonFigure},
	{Kind: transform.ViewAnimation, File: "animated_temperature.html", build: animationFigure},
	{Kind: transform.ViewPolar, File: "polar_plot.html", build: polarFigure},
}

func darkLayout(title string) Layout {
	return Layout{
		Title:        Title{Text: title},
		PaperBgColor: "#111111",
		PlotBgColor:  "#111111",
		Font:         &Font{Color: "#f2f5fa"},
	}
}

func axis(title string) *Axis {
	return &Axis{Title: &Title{Text: title}, GridColor: "#283442"}
}

func temperatureFigure(v *transform.Views) Figure {
	dates := make([]string, len(v.Temperature))
	mins := make([]*float64, len(v.Temperature))
	maxs := make([]*float64, len(v.Temperature))
	for i, p := range v.Temperature {
		dates[i] = p.Date.Format(dateFormat)
		mins[i] = nullable(p.Min)
		maxs[i] = nullable(p.Max)
	}

	layout := darkLayout("Martian Temperature Range")
	layout.XAxis = axis("Earth Date")
	layout.YAxis = axis("Temperature (°C)")
	layout.HoverMode = "x unified"

	return Figure{
		Data: []Trace{
			{Type: "scatter", Mode: "lines", Name: "Min Temp (°C)", X: dates, Y: mins, Line: &Line{Color: colorMin}},
			{Type: "scatter", Mode: "lines", Name: "Max Temp (°C)", X: dates, Y: maxs, Line: &Line{Color: colorMax}},
		},
		Layout: layout,
	}
}

func pressureFigure(v *transform.Views) Figure {
	dates := make([]string, len(v.Pressure))
	values := make([]float64, len(v.Pressure))
	for i, p := range v.Pressure {
		dates[i] = p.Date.Format(dateFormat)
		values[i] = p.Value
	}

	layout := darkLayout("Martian Atmospheric Pressure")
	layout.XAxis = axis("Earth Date")
	layout.YAxis = axis("Pressure (Pa)")
	layout.HoverMode = "x unified"

	return Figure{
		Data: []Trace{
			{Type: "scatter", Mode: "lines", Name: "Pressure (Pa)", X: dates, Y: values, Line: &Line{Color: colorPressure}},
		},
		Layout: layout,
	}
}

func opacityFigure(v *transform.Views) Figure {
	labels := make([]string, len(v.Opacity))
	counts := make([]int, len(v.Opacity))
	colors := make([]string, len(v.Opacity))
	for i, c := range v.Opacity {
		labels[i] = c.Label
		counts[i] = c.Count
		colors[i] = palette[i%len(palette)]
	}

	layout := darkLayout("Atmospheric Opacity Observations on Mars")
	layout.XAxis = axis("Opacity Type")
	layout.YAxis = axis("Count")
	layout.ShowLegend = boolPtr(false)

	return Figure{
		Data: []Trace{
			{Type: "bar", Name: "Count", X: labels, Y: counts, Marker: &Marker{Color: colors}},
		},
		Layout: layout,
	}
}

func seasonFigure(v *transform.Views) Figure {
	seasons := make([]string, len(v.Seasons))
	mins := make([]*float64, len(v.Seasons))
	maxs := make([]*float64, len(v.Seasons))
	press := make([]*float64, len(v.Seasons))
	for i, s := range v.Seasons {
		seasons[i] = s.Season
		mins[i] = nullable(s.MinTemp)
		maxs[i] = nullable(s.MaxTemp)
		press[i] = nullable(s.Pressure)
	}

	layout := darkLayout("Average Mars Climate by Season")
	layout.XAxis = axis("Season")
	layout.YAxis = axis("Average Value")
	layout.BarMode = "group"

	return Figure{
		Data: []Trace{
			{Type: "bar", Name: "Min Temp", X: seasons, Y: mins, Marker: &Marker{Color: colorMin}},
			{Type: "bar", Name: "Max Temp", X: seasons, Y: maxs, Marker: &Marker{Color: colorMax}},
			{Type: "bar", Name: "Pressure", X: seasons, Y: press, Marker: &Marker{Color: colorPressure}},
		},
		Layout: layout,
	}
}

func yearTrace(f transform.YearFrame) Trace {
	sols := make([]int, len(f.Points))
	temps := make([]float64, len(f.Points))
	for i, p := range f.Points {
		sols[i] = p.Sol
		temps[i] = p.Value
	}
	return Trace{Type: "scatter", Mode: "lines", Name: strconv.Itoa(f.Year), X: sols, Y: temps, Line: &Line{Color: colorAnimated}}
}

func animationFigure(v *transform.Views) Figure {
	layout := darkLayout("Animated Max Temperature on Mars (Yearly)")
	layout.XAxis = axis("Sol")
	layout.YAxis = axis("Max Temp (°C)")

	if len(v.Years) == 0 {
		return Figure{Data: []Trace{}, Layout: layout}
	}

	// Fixed ranges so the axes do not jump between frames.
	solLo, solHi := v.Years[0].Points[0].Sol, v.Years[0].Points[0].Sol
	tLo, tHi := v.Years[0].Points[0].Value, v.Years[0].Points[0].Value
	for _, f := range v.Years {
		for _, p := range f.Points {
			solLo, solHi = min(solLo, p.Sol), max(solHi, p.Sol)
			tLo, tHi = min(tLo, p.Value), max(tHi, p.Value)
		}
	}
	pad := (tHi - tLo) * 0.05
	layout.XAxis.Range = []float64{float64(solLo), float64(solHi)}
	layout.YAxis.Range = []float64{tLo - pad, tHi + pad}

	frames := make([]Frame, len(v.Years))
	steps := make([]SliderStep, len(v.Years))
	for i, f := range v.Years {
		name := strconv.Itoa(f.Year)
		frames[i] = Frame{Name: name, Data: []Trace{yearTrace(f)}}
		steps[i] = SliderStep{
			Label:  name,
			Method: "animate",
			Args: []any{
				[]string{name},
				map[string]any{
					"mode":       "immediate",
					"frame":      map[string]any{"duration": 500, "redraw": true},
					"transition": map[string]any{"duration": 300},
				},
			},
		}
	}

	layout.UpdateMenus = []UpdateMenu{{
		Type: "buttons",
		X:    0,
		Y:    -0.15,
		Buttons: []Button{
			{Label: "Play", Method: "animate", Args: []any{nil, map[string]any{
				"fromcurrent": true,
				"frame":       map[string]any{"duration": 800, "redraw": true},
				"transition":  map[string]any{"duration": 300},
			}}},
			{Label: "Pause", Method: "animate", Args: []any{[]any{nil}, map[string]any{
				"mode":  "immediate",
				"frame": map[string]any{"duration": 0, "redraw": false},
			}}},
		},
	}}
	layout.Sliders = []Slider{{CurrentValue: CurrentValue{Prefix: "Year: "}, Steps: steps}}

	return Figure{
		Data:   []Trace{yearTrace(v.Years[0])},
		Layout: layout,
		Frames: frames,
	}
}

func polarTrace(points []transform.PolarPoint, name, color, subplot string) Trace {
	r := make([]float64, len(points))
	theta := make([]float64, len(points))
	for i, p := range points {
		r[i] = p.Value
		theta[i] = p.Ls
	}
	return Trace{Type: "scatterpolar", Mode: "lines", Name: name, R: r, Theta: theta, Subplot: subplot, Line: &Line{Color: color}}
}

func polarLayout(domain []float64, radialTitle string) *PolarLayout {
	return &PolarLayout{
		Domain:      &Domain{X: domain},
		AngularAxis: &AngularAxis{Direction: "clockwise", Rotation: 90, GridColor: "#283442"},
		RadialAxis:  axis(radialTitle),
		BgColor:     "#111111",
	}
}

func polarFigure(v *transform.Views) Figure {
	layout := darkLayout("Martian Climate vs Solar Longitude (Ls)")
	layout.Polar = polarLayout([]float64{0, 0.44}, "Temperature (°C)")
	layout.Polar2 = polarLayout([]float64{0.56, 1}, "Pressure (Pa)")
	layout.Annotations = []Annotation{
		{Text: "Temperature vs Ls", X: 0.22, Y: 1.08, XRef: "paper", YRef: "paper"},
		{Text: "Pressure vs Ls", X: 0.78, Y: 1.08, XRef: "paper", YRef: "paper"},
	}

	return Figure{
		Data: []Trace{
			polarTrace(v.Polar.MinTemp, "Min Temp (°C)", colorMin, "polar"),
			polarTrace(v.Polar.MaxTemp, "Max Temp (°C)", colorMax, "polar"),
			polarTrace(v.Polar.Pressure, "Pressure (Pa)", colorPressure, "polar2"),
		},
		Layout: layout,
	}
}
