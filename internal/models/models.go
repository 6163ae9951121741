package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Column names after header normalisation.
const (
	ColSol             = "sol"
	ColTerrestrialDate = "terrestrial_date"
	ColMinTemp         = "min_temp"
	ColMaxTemp         = "max_temp"
	ColPressure        = "pressure"
	ColAtmoOpacity     = "atmo_opacity"
	ColSeason          = "season"
	ColSolarLongitude  = "ls"
	ColMonth           = "month"
	ColWindSpeed       = "wind_speed"
)

var ErrMissingColumn = errors.New("missing required column")

// WeatherRecord is one sol of rover weather data.
type WeatherRecord struct {
	Sol             int
	TerrestrialDate sql.NullTime
	MinTemp         sql.NullFloat64 // °C
	MaxTemp         sql.NullFloat64 // °C
	Pressure        sql.NullFloat64 // Pa
	AtmoOpacity     sql.NullString  // "Sunny", "Cloudy", ...
	Season          string
	SolarLongitude  sql.NullFloat64 // Ls, degrees
	Month           sql.NullString  // Martian month label, e.g. "Month 4"
	WindSpeed       sql.NullFloat64
	QualityFlags    []string
}

// Table is the loaded dataset. Records are ordered by strictly increasing
// sol and must not be modified after load.
type Table struct {
	Source  string
	Records []WeatherRecord
	columns map[string]bool
}

func NewTable(source string, records []WeatherRecord, columns []string) *Table {
	cols := make(map[string]bool, len(columns))
	for _, c := range columns {
		cols[c] = true
	}
	return &Table{Source: source, Records: records, columns: cols}
}

func (t *Table) Len() int {
	return len(t.Records)
}

// HasColumn reports whether the input carried the named column.
func (t *Table) HasColumn(name string) bool {
	return t.columns[name]
}

// Require returns an error wrapping ErrMissingColumn naming every absent column.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.columns[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
}
