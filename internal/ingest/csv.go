package ingest

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lox/marsweather/internal/metrics"
	"github.com/lox/marsweather/internal/models"
)

var (
	ErrInputNotFound = errors.New("input not found")
	ErrMalformed     = errors.New("malformed input")
)

// Cells matching any of these, after trimming, are loaded as absent values.
var naValues = []string{"", "NA", "NaN", "nan", "N/A", "--", "<nil>"}

var naSet = func() map[string]bool {
	m := make(map[string]bool, len(naValues))
	for _, v := range naValues {
		m[v] = true
	}
	return m
}()

var headerAliases = map[string]string{
	"atmospheric_opacity": models.ColAtmoOpacity,
	"solar_longitude":     models.ColSolarLongitude,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"1/2/2006",
}

var lower = cases.Lower(language.Und)

// Load reads the weather table at path. Any error is fatal for the caller:
// no partial table is returned.
func Load(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrInputNotFound, err)
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse reads a weather table from r. source names the input in errors.
func Parse(r io.Reader, source string) (*models.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, source, err)
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		// gota refuses a header with no rows; that is an empty table, not a
		// malformed one.
		header, ok := headerOnly(data)
		if !ok {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, source, df.Err)
		}
		cols, present, err := columnIndex(header, source)
		if err != nil {
			return nil, err
		}
		return buildTable(source, nil, cols, present)
	}

	cols, present, err := columnIndex(df.Names(), source)
	if err != nil {
		return nil, err
	}

	p := &rowParser{df: df, cols: cols, source: source}
	records := make([]models.WeatherRecord, df.Nrow())
	for i := range records {
		rec, err := p.record(i)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return buildTable(source, records, cols, present)
}

// headerOnly returns the header of a CSV that has exactly one record.
func headerOnly(data []byte) ([]string, bool) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(records) != 1 {
		return nil, false
	}
	return records[0], true
}

// columnIndex maps normalised column names to the headers as they appear in
// the file and requires a sol column.
func columnIndex(names []string, source string) (map[string]string, []string, error) {
	cols := make(map[string]string)
	var present []string
	for _, name := range names {
		key := normalizeHeader(name)
		if _, dup := cols[key]; dup {
			return nil, nil, fmt.Errorf("%w: %s: duplicate column %q", ErrMalformed, source, key)
		}
		cols[key] = name
		present = append(present, key)
	}
	if _, ok := cols[models.ColSol]; !ok {
		return nil, nil, fmt.Errorf("%w: %s: %s", models.ErrMissingColumn, source, models.ColSol)
	}
	return cols, present, nil
}

// buildTable orders records by sol, rejects duplicates, derives seasons when
// the input has none and applies the range checks.
func buildTable(source string, records []models.WeatherRecord, cols map[string]string, present []string) (*models.Table, error) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Sol < records[j].Sol })
	for i := 1; i < len(records); i++ {
		if records[i].Sol == records[i-1].Sol {
			return nil, fmt.Errorf("%w: %s: duplicate sol %d", ErrMalformed, source, records[i].Sol)
		}
	}

	_, hasSeason := cols[models.ColSeason]
	_, hasLs := cols[models.ColSolarLongitude]
	if !hasSeason && hasLs {
		for i := range records {
			records[i].Season = SeasonForLs(records[i].SolarLongitude)
		}
		present = append(present, models.ColSeason)
	}

	flagged := 0
	for i := range records {
		records[i].QualityFlags = ValidateRecord(&records[i])
		for _, flag := range records[i].QualityFlags {
			metrics.QualityFlags.WithLabelValues(flag).Inc()
		}
		if len(records[i].QualityFlags) > 0 {
			flagged++
		}
	}
	if flagged > 0 {
		log.Printf("ingest: %d of %d sols flagged by range checks", flagged, len(records))
	}

	metrics.RecordsLoaded.Add(float64(len(records)))
	return models.NewTable(source, records, present), nil
}

func normalizeHeader(name string) string {
	key := lower.String(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	if alias, ok := headerAliases[key]; ok {
		return alias
	}
	return key
}

type rowParser struct {
	df     dataframe.DataFrame
	cols   map[string]string
	source string
	cache  map[string]column
}

type column struct {
	values []string
	na     []bool
}

// cell returns the raw value and whether it is present. Columns absent from
// the input read as absent in every row.
func (p *rowParser) cell(key string, row int) (string, bool) {
	name, ok := p.cols[key]
	if !ok {
		return "", false
	}
	if p.cache == nil {
		p.cache = make(map[string]column)
	}
	c, ok := p.cache[key]
	if !ok {
		s := p.df.Col(name)
		c = column{values: s.Records(), na: s.IsNaN()}
		p.cache[key] = c
	}
	if c.na[row] {
		return "", false
	}
	// gota matches NA markers before trimming, so " NA " gets here.
	v := strings.TrimSpace(c.values[row])
	return v, !naSet[v]
}

func (p *rowParser) errorf(row int, key, format string, args ...any) error {
	// +2: one for the header line, one for 1-based numbering
	return fmt.Errorf("%w: %s: line %d, column %s: %s", ErrMalformed, p.source, row+2, key, fmt.Sprintf(format, args...))
}

func (p *rowParser) record(row int) (models.WeatherRecord, error) {
	var rec models.WeatherRecord

	raw, ok := p.cell(models.ColSol, row)
	if !ok {
		return rec, p.errorf(row, models.ColSol, "missing sol")
	}
	sol, err := parseSol(raw)
	if err != nil {
		return rec, p.errorf(row, models.ColSol, "%v", err)
	}
	rec.Sol = sol

	if raw, ok := p.cell(models.ColTerrestrialDate, row); ok {
		t, err := parseDate(raw)
		if err != nil {
			return rec, p.errorf(row, models.ColTerrestrialDate, "%v", err)
		}
		rec.TerrestrialDate = sql.NullTime{Time: t, Valid: true}
	}

	floats := []struct {
		key string
		dst *sql.NullFloat64
	}{
		{models.ColMinTemp, &rec.MinTemp},
		{models.ColMaxTemp, &rec.MaxTemp},
		{models.ColPressure, &rec.Pressure},
		{models.ColSolarLongitude, &rec.SolarLongitude},
		{models.ColWindSpeed, &rec.WindSpeed},
	}
	for _, f := range floats {
		raw, ok := p.cell(f.key, row)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, p.errorf(row, f.key, "not a number: %q", raw)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		*f.dst = sql.NullFloat64{Float64: v, Valid: true}
	}

	if raw, ok := p.cell(models.ColAtmoOpacity, row); ok {
		rec.AtmoOpacity = sql.NullString{String: raw, Valid: true}
	}
	if raw, ok := p.cell(models.ColMonth, row); ok {
		rec.Month = sql.NullString{String: raw, Valid: true}
	}
	if raw, ok := p.cell(models.ColSeason, row); ok {
		rec.Season = raw
	} else {
		rec.Season = SeasonUnknown
	}

	return rec, nil
}

func parseSol(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return int(f), nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not a date: %q", raw)
}
