package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lox/marsweather/internal/models"
	"github.com/lox/marsweather/internal/transform"
)

const dateFormat = "2006-01-02"

// Store is a SQLite copy of the loaded table and its derived views, written
// for ad-hoc querying alongside the charts.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ReplaceRecords swaps the sols table contents for records in one transaction.
func (s *Store) ReplaceRecords(records []models.WeatherRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sols`); err != nil {
		return fmt.Errorf("clear sols: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO sols (sol, terrestrial_date, min_temp, max_temp, pressure, atmo_opacity, season, ls, month, wind_speed, quality_flags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var date sql.NullString
		if r.TerrestrialDate.Valid {
			date = sql.NullString{String: r.TerrestrialDate.Time.Format(dateFormat), Valid: true}
		}
		if _, err := stmt.Exec(r.Sol, date, r.MinTemp, r.MaxTemp, r.Pressure, r.AtmoOpacity, r.Season, r.SolarLongitude, r.Month, r.WindSpeed, qualityFlagsToJSON(r.QualityFlags)); err != nil {
			return fmt.Errorf("insert sol %d: %w", r.Sol, err)
		}
	}
	return tx.Commit()
}

// SaveViews replaces the derived season and opacity tables.
func (s *Store) SaveViews(v *transform.Views) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM season_averages`); err != nil {
		return fmt.Errorf("clear season averages: %w", err)
	}
	for i, sa := range v.Seasons {
		if _, err := tx.Exec(`
			INSERT INTO season_averages (season, position, sols, min_temp, max_temp, pressure)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sa.Season, i, sa.Sols, sa.MinTemp, sa.MaxTemp, sa.Pressure); err != nil {
			return fmt.Errorf("insert season %s: %w", sa.Season, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM opacity_counts`); err != nil {
		return fmt.Errorf("clear opacity counts: %w", err)
	}
	for i, c := range v.Opacity {
		if _, err := tx.Exec(`INSERT INTO opacity_counts (label, position, count) VALUES (?, ?, ?)`, c.Label, i, c.Count); err != nil {
			return fmt.Errorf("insert opacity %s: %w", c.Label, err)
		}
	}
	return tx.Commit()
}

func (s *Store) CountSols() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sols`).Scan(&n)
	return n, err
}

// SeasonalAverages aggregates the stored sols in SQL. AVG skips NULLs and
// yields NULL for an all-NULL group, the same rule the Go derivation uses.
func (s *Store) SeasonalAverages() ([]transform.SeasonAverage, error) {
	rows, err := s.db.Query(`
		SELECT season, COUNT(*), AVG(min_temp), AVG(max_temp), AVG(pressure)
		FROM sols
		GROUP BY season
		ORDER BY MIN(sol)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []transform.SeasonAverage
	for rows.Next() {
		var sa transform.SeasonAverage
		if err := rows.Scan(&sa.Season, &sa.Sols, &sa.MinTemp, &sa.MaxTemp, &sa.Pressure); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

// StoredSeasonAverages reads back the table written by SaveViews.
func (s *Store) StoredSeasonAverages() ([]transform.SeasonAverage, error) {
	rows, err := s.db.Query(`SELECT season, sols, min_temp, max_temp, pressure FROM season_averages ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []transform.SeasonAverage
	for rows.Next() {
		var sa transform.SeasonAverage
		if err := rows.Scan(&sa.Season, &sa.Sols, &sa.MinTemp, &sa.MaxTemp, &sa.Pressure); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

func qualityFlagsToJSON(flags []string) sql.NullString {
	if len(flags) == 0 {
		return sql.NullString{}
	}
	b, _ := json.Marshal(flags)
	return sql.NullString{String: string(b), Valid: true}
}
