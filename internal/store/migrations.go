package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS sols (
    sol INTEGER PRIMARY KEY,
    terrestrial_date TEXT,
    min_temp REAL,
    max_temp REAL,
    pressure REAL,
    atmo_opacity TEXT,
    season TEXT NOT NULL,
    ls REAL,
    month TEXT,
    wind_speed REAL,
    quality_flags TEXT
);

CREATE INDEX IF NOT EXISTS idx_sols_season ON sols(season);
CREATE INDEX IF NOT EXISTS idx_sols_date ON sols(terrestrial_date);
`,
	},
	{
		Version:     2,
		Description: "Derived season and opacity tables",
		SQL: `
CREATE TABLE IF NOT EXISTS season_averages (
    season TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    sols INTEGER NOT NULL,
    min_temp REAL,
    max_temp REAL,
    pressure REAL
);

CREATE TABLE IF NOT EXISTS opacity_counts (
    label TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    count INTEGER NOT NULL
);
`,
	},
}

// Migrate applies pending migrations in version order, one transaction each.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	current, err := s.MigrationVersion()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(m); err != nil {
			return err
		}
		log.Printf("migrations: applied %d - %s", m.Version, m.Description)
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("execute migration %d: %w", m.Version, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
