// Package export writes derived views as spreadsheet data next to the charts.
package export

import (
	"database/sql"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/lox/marsweather/internal/transform"
)

const (
	SheetTemperature = "Temperature"
	SheetPressure    = "Pressure"
	SheetOpacity     = "Opacity"
	SheetSeasons     = "Seasons"
	SheetYears       = "Yearly Max Temp"
	SheetPolar       = "Polar"
)

const dateFormat = "2006-01-02"

// WriteWorkbook saves one sheet per derived view to path.
func WriteWorkbook(v *transform.Views, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetTemperature, temperatureRows(v)},
		{SheetPressure, pressureRows(v)},
		{SheetOpacity, opacityRows(v)},
		{SheetSeasons, seasonRows(v)},
		{SheetYears, yearRows(v)},
		{SheetPolar, polarRows(v)},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cellValue leaves absent values as empty cells.
func cellValue(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func temperatureRows(v *transform.Views) [][]any {
	rows := [][]any{{"sol", "terrestrial_date", "min_temp", "max_temp"}}
	for _, p := range v.Temperature {
		rows = append(rows, []any{p.Sol, p.Date.Format(dateFormat), cellValue(p.Min), cellValue(p.Max)})
	}
	return rows
}

func pressureRows(v *transform.Views) [][]any {
	rows := [][]any{{"sol", "terrestrial_date", "pressure"}}
	for _, p := range v.Pressure {
		rows = append(rows, []any{p.Sol, p.Date.Format(dateFormat), p.Value})
	}
	return rows
}

func opacityRows(v *transform.Views) [][]any {
	rows := [][]any{{"atmo_opacity", "count"}}
	for _, c := range v.Opacity {
		rows = append(rows, []any{c.Label, c.Count})
	}
	return rows
}

func seasonRows(v *transform.Views) [][]any {
	rows := [][]any{{"season", "sols", "avg_min_temp", "avg_max_temp", "avg_pressure"}}
	for _, s := range v.Seasons {
		rows = append(rows, []any{s.Season, s.Sols, cellValue(s.MinTemp), cellValue(s.MaxTemp), cellValue(s.Pressure)})
	}
	return rows
}

func yearRows(v *transform.Views) [][]any {
	rows := [][]any{{"year", "sol", "max_temp"}}
	for _, f := range v.Years {
		for _, p := range f.Points {
			rows = append(rows, []any{f.Year, p.Sol, p.Value})
		}
	}
	return rows
}

func polarRows(v *transform.Views) [][]any {
	rows := [][]any{{"series", "sol", "ls", "value"}}
	for _, s := range []struct {
		name   string
		points []transform.PolarPoint
	}{
		{"min_temp", v.Polar.MinTemp},
		{"max_temp", v.Polar.MaxTemp},
		{"pressure", v.Polar.Pressure},
	} {
		for _, p := range s.points {
			rows = append(rows, []any{s.name, p.Sol, p.Ls, p.Value})
		}
	}
	return rows
}
