// Package transform derives chart-ready views from a loaded weather table.
// Every function is a pure read of the table; none of them mutate it.
package transform

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/lox/marsweather/internal/metrics"
	"github.com/lox/marsweather/internal/models"
)

// Derive computes every view independently. A view whose columns are
// missing is left empty and recorded in Views.Errors; the returned error
// joins all of them so callers can still draw the rest.
func Derive(t *models.Table) (*Views, error) {
	v := &Views{Source: t.Source, Errors: make(map[string]error)}

	var errs []error
	fail := func(view string, err error) {
		if err == nil {
			return
		}
		err = fmt.Errorf("%s: %w", view, err)
		v.Errors[view] = err
		errs = append(errs, err)
	}

	var err error
	v.Temperature, err = TemperatureRange(t)
	fail(ViewTemperature, err)
	v.Pressure, err = PressureSeries(t)
	fail(ViewPressure, err)
	v.Opacity, err = OpacityDistribution(t)
	fail(ViewOpacity, err)
	v.Seasons, err = SeasonalAverages(t)
	fail(ViewSeason, err)
	v.Years, err = YearlyFrames(t)
	fail(ViewAnimation, err)
	v.Polar, err = PolarSeries(t)
	fail(ViewPolar, err)

	return v, errors.Join(errs...)
}

// TemperatureRange keeps every dated sol with at least one of min or max
// temperature present, in sol order.
func TemperatureRange(t *models.Table) ([]TempPoint, error) {
	if err := t.Require(models.ColTerrestrialDate, models.ColMinTemp, models.ColMaxTemp); err != nil {
		return nil, err
	}
	out := make([]TempPoint, 0, t.Len())
	for _, r := range t.Records {
		if !r.TerrestrialDate.Valid || (!r.MinTemp.Valid && !r.MaxTemp.Valid) {
			continue
		}
		out = append(out, TempPoint{Sol: r.Sol, Date: r.TerrestrialDate.Time, Min: r.MinTemp, Max: r.MaxTemp})
	}
	recordExcluded(ViewTemperature, t.Len()-len(out))
	return out, nil
}

func PressureSeries(t *models.Table) ([]DatedValue, error) {
	if err := t.Require(models.ColTerrestrialDate, models.ColPressure); err != nil {
		return nil, err
	}
	out := make([]DatedValue, 0, t.Len())
	for _, r := range t.Records {
		if !r.TerrestrialDate.Valid || !r.Pressure.Valid {
			continue
		}
		out = append(out, DatedValue{Sol: r.Sol, Date: r.TerrestrialDate.Time, Value: r.Pressure.Float64})
	}
	recordExcluded(ViewPressure, t.Len()-len(out))
	return out, nil
}

// OpacityDistribution counts sols per opacity category in order of first
// appearance.
func OpacityDistribution(t *models.Table) ([]CategoryCount, error) {
	if err := t.Require(models.ColAtmoOpacity); err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var out []CategoryCount
	for _, r := range t.Records {
		if !r.AtmoOpacity.Valid {
			continue
		}
		i, ok := index[r.AtmoOpacity.String]
		if !ok {
			i = len(out)
			index[r.AtmoOpacity.String] = i
			out = append(out, CategoryCount{Label: r.AtmoOpacity.String})
		}
		out[i].Count++
	}
	return out, nil
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v sql.NullFloat64) {
	if v.Valid {
		m.sum += v.Float64
		m.n++
	}
}

func (m mean) value() sql.NullFloat64 {
	if m.n == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: m.sum / float64(m.n), Valid: true}
}

// SeasonalAverages groups sols by season, in order of first appearance, and
// averages each field over its present values only.
func SeasonalAverages(t *models.Table) ([]SeasonAverage, error) {
	if err := t.Require(models.ColSeason, models.ColMinTemp, models.ColMaxTemp, models.ColPressure); err != nil {
		return nil, err
	}
	type acc struct {
		sols                    int
		minTemp, maxTemp, press mean
	}
	index := make(map[string]int)
	var order []string
	var accs []*acc
	for _, r := range t.Records {
		i, ok := index[r.Season]
		if !ok {
			i = len(accs)
			index[r.Season] = i
			order = append(order, r.Season)
			accs = append(accs, &acc{})
		}
		a := accs[i]
		a.sols++
		a.minTemp.add(r.MinTemp)
		a.maxTemp.add(r.MaxTemp)
		a.press.add(r.Pressure)
	}

	out := make([]SeasonAverage, len(order))
	for i, season := range order {
		a := accs[i]
		out[i] = SeasonAverage{
			Season:   season,
			Sols:     a.sols,
			MinTemp:  a.minTemp.value(),
			MaxTemp:  a.maxTemp.value(),
			Pressure: a.press.value(),
		}
	}
	return out, nil
}

// YearlyFrames partitions sols by terrestrial year. Frames are ascending by
// year and points within a frame are in sol order.
func YearlyFrames(t *models.Table) ([]YearFrame, error) {
	if err := t.Require(models.ColTerrestrialDate, models.ColMaxTemp); err != nil {
		return nil, err
	}
	byYear := make(map[int][]SolValue)
	kept := 0
	for _, r := range t.Records {
		if !r.TerrestrialDate.Valid || !r.MaxTemp.Valid {
			continue
		}
		y := r.TerrestrialDate.Time.Year()
		byYear[y] = append(byYear[y], SolValue{Sol: r.Sol, Value: r.MaxTemp.Float64})
		kept++
	}
	recordExcluded(ViewAnimation, t.Len()-kept)

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearFrame, len(years))
	for i, y := range years {
		out[i] = YearFrame{Year: y, Points: byYear[y]}
	}
	return out, nil
}

// PolarSeries projects temperatures and pressure against solar longitude.
// Ls is used as recorded; each series is sorted by it.
func PolarSeries(t *models.Table) (Polar, error) {
	if err := t.Require(models.ColSolarLongitude, models.ColMinTemp, models.ColMaxTemp, models.ColPressure); err != nil {
		return Polar{}, err
	}
	var p Polar
	for _, r := range t.Records {
		if !r.SolarLongitude.Valid {
			continue
		}
		ls := r.SolarLongitude.Float64
		if r.MinTemp.Valid {
			p.MinTemp = append(p.MinTemp, PolarPoint{Sol: r.Sol, Ls: ls, Value: r.MinTemp.Float64})
		}
		if r.MaxTemp.Valid {
			p.MaxTemp = append(p.MaxTemp, PolarPoint{Sol: r.Sol, Ls: ls, Value: r.MaxTemp.Float64})
		}
		if r.Pressure.Valid {
			p.Pressure = append(p.Pressure, PolarPoint{Sol: r.Sol, Ls: ls, Value: r.Pressure.Float64})
		}
	}
	for _, s := range [][]PolarPoint{p.MinTemp, p.MaxTemp, p.Pressure} {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Ls < s[j].Ls })
	}
	recordExcluded("polar_min", t.Len()-len(p.MinTemp))
	recordExcluded("polar_max", t.Len()-len(p.MaxTemp))
	recordExcluded("polar_pressure", t.Len()-len(p.Pressure))
	return p, nil
}

func recordExcluded(view string, n int) {
	if n > 0 {
		metrics.RowsExcluded.WithLabelValues(view).Add(float64(n))
	}
}
