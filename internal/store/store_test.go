package store

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/marsweather/internal/models"
	"github.com/lox/marsweather/internal/transform"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func nf(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func testTable() *models.Table {
	day := func(d int) sql.NullTime {
		return sql.NullTime{Time: time.Date(2012, 8, d, 0, 0, 0, 0, time.UTC), Valid: true}
	}
	return models.NewTable("test.csv", []models.WeatherRecord{
		{Sol: 1, TerrestrialDate: day(7), MinTemp: nf(-70), MaxTemp: nf(-20), Pressure: nf(750), AtmoOpacity: sql.NullString{String: "Sunny", Valid: true}, Season: "Winter"},
		{Sol: 2, TerrestrialDate: day(8), MaxTemp: nf(-15), Pressure: nf(760), Season: "Winter"},
		{Sol: 3, TerrestrialDate: day(9), MaxTemp: nf(-10), Season: "Spring", QualityFlags: []string{"temp_inverted"}},
	}, []string{
		models.ColSol, models.ColTerrestrialDate, models.ColMinTemp, models.ColMaxTemp,
		models.ColPressure, models.ColAtmoOpacity, models.ColSeason,
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	v, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("version = %d, want %d", v, len(migrations))
	}
}

func TestReplaceRecords(t *testing.T) {
	store := setupTestStore(t)
	table := testTable()

	for i := 0; i < 2; i++ {
		if err := store.ReplaceRecords(table.Records); err != nil {
			t.Fatalf("ReplaceRecords: %v", err)
		}
	}
	n, err := store.CountSols()
	if err != nil {
		t.Fatalf("CountSols: %v", err)
	}
	if n != 3 {
		t.Errorf("CountSols = %d, want 3 after replacing twice", n)
	}

	var date string
	var minTemp sql.NullFloat64
	var flags sql.NullString
	if err := store.db.QueryRow(`SELECT terrestrial_date, min_temp, quality_flags FROM sols WHERE sol = 3`).Scan(&date, &minTemp, &flags); err != nil {
		t.Fatalf("query sol 3: %v", err)
	}
	if date != "2012-08-09" {
		t.Errorf("terrestrial_date = %q, want 2012-08-09", date)
	}
	if minTemp.Valid {
		t.Error("min_temp should be NULL")
	}
	if flags.String != `["temp_inverted"]` {
		t.Errorf("quality_flags = %q", flags.String)
	}
}

func TestSeasonalAverages_MatchesDerivation(t *testing.T) {
	store := setupTestStore(t)
	table := testTable()

	if err := store.ReplaceRecords(table.Records); err != nil {
		t.Fatalf("ReplaceRecords: %v", err)
	}
	fromSQL, err := store.SeasonalAverages()
	if err != nil {
		t.Fatalf("SeasonalAverages: %v", err)
	}
	derived, err := transform.SeasonalAverages(table)
	if err != nil {
		t.Fatalf("transform.SeasonalAverages: %v", err)
	}
	if !reflect.DeepEqual(fromSQL, derived) {
		t.Errorf("SQL averages %+v, derived %+v", fromSQL, derived)
	}
	if fromSQL[1].MinTemp.Valid {
		t.Error("Spring min temp should be NULL, not zero")
	}
}

func TestSaveViews(t *testing.T) {
	store := setupTestStore(t)
	views, err := transform.Derive(models.NewTable("test.csv", testTable().Records, []string{
		models.ColSol, models.ColTerrestrialDate, models.ColMinTemp, models.ColMaxTemp,
		models.ColPressure, models.ColAtmoOpacity, models.ColSeason, models.ColSolarLongitude,
	}))
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.SaveViews(views); err != nil {
			t.Fatalf("SaveViews: %v", err)
		}
	}
	got, err := store.StoredSeasonAverages()
	if err != nil {
		t.Fatalf("StoredSeasonAverages: %v", err)
	}
	if !reflect.DeepEqual(got, views.Seasons) {
		t.Errorf("stored %+v, want %+v", got, views.Seasons)
	}

	var count int
	if err := store.db.QueryRow(`SELECT count FROM opacity_counts WHERE label = 'Sunny'`).Scan(&count); err != nil {
		t.Fatalf("query opacity: %v", err)
	}
	if count != 1 {
		t.Errorf("Sunny count = %d, want 1", count)
	}
}
