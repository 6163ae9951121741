package transform

import (
	"database/sql"
	"time"
)

// TempPoint is one sol of the temperature range chart. At least one of Min
// and Max is valid.
type TempPoint struct {
	Sol  int
	Date time.Time
	Min  sql.NullFloat64
	Max  sql.NullFloat64
}

type DatedValue struct {
	Sol   int
	Date  time.Time
	Value float64
}

type CategoryCount struct {
	Label string
	Count int
}

// SeasonAverage holds per-season means. A field is invalid when the season
// had no present values for it.
type SeasonAverage struct {
	Season   string
	Sols     int
	MinTemp  sql.NullFloat64
	MaxTemp  sql.NullFloat64
	Pressure sql.NullFloat64
}

type SolValue struct {
	Sol   int
	Value float64
}

// YearFrame is one animation frame: a terrestrial year of max temperatures.
type YearFrame struct {
	Year   int
	Points []SolValue
}

type PolarPoint struct {
	Sol   int
	Ls    float64
	Value float64
}

// Polar holds series plotted against solar longitude, each sorted by Ls.
type Polar struct {
	MinTemp  []PolarPoint
	MaxTemp  []PolarPoint
	Pressure []PolarPoint
}

// View names, one per chart.
const (
	ViewTemperature = "temperature"
	ViewPressure    = "pressure"
	ViewOpacity     = "opacity"
	ViewSeason      = "season"
	ViewAnimation   = "animation"
	ViewPolar       = "polar"
)

// Views is every derived view needed to draw the chart set. A view that
// could not be derived is left empty and its error kept in Errors.
type Views struct {
	Source      string
	Temperature []TempPoint
	Pressure    []DatedValue
	Opacity     []CategoryCount
	Seasons     []SeasonAverage
	Years       []YearFrame
	Polar       Polar
	Errors      map[string]error
}

// Err returns why the named view is unavailable, or nil.
func (v *Views) Err(view string) error {
	return v.Errors[view]
}
