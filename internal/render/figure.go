package render

import "database/sql"

// Figure is a Plotly figure as consumed by Plotly.newPlot. Field order and
// the absence of maps keep the encoded JSON stable between runs.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
	Frames []Frame `json:"frames,omitempty"`
}

type Trace struct {
	Type    string  `json:"type"`
	Mode    string  `json:"mode,omitempty"`
	Name    string  `json:"name,omitempty"`
	X       any     `json:"x,omitempty"`
	Y       any     `json:"y,omitempty"`
	R       any     `json:"r,omitempty"`
	Theta   any     `json:"theta,omitempty"`
	Subplot string  `json:"subplot,omitempty"`
	Line    *Line   `json:"line,omitempty"`
	Marker  *Marker `json:"marker,omitempty"`
}

type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

type Marker struct {
	Color any `json:"color,omitempty"`
}

type Title struct {
	Text string `json:"text"`
}

type Font struct {
	Color string `json:"color,omitempty"`
}

type Axis struct {
	Title      *Title    `json:"title,omitempty"`
	Range      []float64 `json:"range,omitempty"`
	TickFormat string    `json:"tickformat,omitempty"`
	GridColor  string    `json:"gridcolor,omitempty"`
	Type       string    `json:"type,omitempty"`
}

type AngularAxis struct {
	Direction string  `json:"direction,omitempty"`
	Rotation  float64 `json:"rotation"`
	GridColor string  `json:"gridcolor,omitempty"`
}

type PolarLayout struct {
	Domain      *Domain      `json:"domain,omitempty"`
	AngularAxis *AngularAxis `json:"angularaxis,omitempty"`
	RadialAxis  *Axis        `json:"radialaxis,omitempty"`
	BgColor     string       `json:"bgcolor,omitempty"`
}

type Domain struct {
	X []float64 `json:"x,omitempty"`
	Y []float64 `json:"y,omitempty"`
}

type Annotation struct {
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	ShowArrow bool    `json:"showarrow"`
}

type Layout struct {
	Title        Title        `json:"title"`
	XAxis        *Axis        `json:"xaxis,omitempty"`
	YAxis        *Axis        `json:"yaxis,omitempty"`
	HoverMode    string       `json:"hovermode,omitempty"`
	BarMode      string       `json:"barmode,omitempty"`
	ShowLegend   *bool        `json:"showlegend,omitempty"`
	Polar        *PolarLayout `json:"polar,omitempty"`
	Polar2       *PolarLayout `json:"polar2,omitempty"`
	Annotations  []Annotation `json:"annotations,omitempty"`
	UpdateMenus  []UpdateMenu `json:"updatemenus,omitempty"`
	Sliders      []Slider     `json:"sliders,omitempty"`
	PaperBgColor string       `json:"paper_bgcolor,omitempty"`
	PlotBgColor  string       `json:"plot_bgcolor,omitempty"`
	Font         *Font        `json:"font,omitempty"`
}

// Frame is one step of an animation, addressed by Name.
type Frame struct {
	Name string  `json:"name"`
	Data []Trace `json:"data"`
}

type UpdateMenu struct {
	Type       string   `json:"type"`
	ShowActive bool     `json:"showactive"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Buttons    []Button `json:"buttons"`
}

type Button struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

type Slider struct {
	Active       int          `json:"active"`
	CurrentValue CurrentValue `json:"currentvalue"`
	Steps        []SliderStep `json:"steps"`
}

type CurrentValue struct {
	Prefix string `json:"prefix"`
}

type SliderStep struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// nullable maps absent values to JSON null, which Plotly draws as a gap.
func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolPtr(b bool) *bool {
	return &b
}
