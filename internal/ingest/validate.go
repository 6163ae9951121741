package ingest

import (
	"github.com/lox/marsweather/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagTempInverted       = "temp_inverted"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagLsOutOfRange       = "ls_out_of_range"
)

// Gale crater bounds, generous enough to pass every REMS sol on record.
const (
	minPlausibleTemp     = -150.0
	maxPlausibleTemp     = 40.0
	minPlausiblePressure = 100.0
	maxPlausiblePressure = 1500.0
)

func ValidateRecord(rec *models.WeatherRecord) []string {
	var flags []string

	if outOfRange(rec.MinTemp.Valid, rec.MinTemp.Float64, minPlausibleTemp, maxPlausibleTemp) ||
		outOfRange(rec.MaxTemp.Valid, rec.MaxTemp.Float64, minPlausibleTemp, maxPlausibleTemp) {
		flags = append(flags, FlagTempOutOfRange)
	}

	if rec.MinTemp.Valid && rec.MaxTemp.Valid && rec.MinTemp.Float64 > rec.MaxTemp.Float64 {
		flags = append(flags, FlagTempInverted)
	}

	if outOfRange(rec.Pressure.Valid, rec.Pressure.Float64, minPlausiblePressure, maxPlausiblePressure) {
		flags = append(flags, FlagPressureOutOfRange)
	}

	if outOfRange(rec.SolarLongitude.Valid, rec.SolarLongitude.Float64, 0, 360) {
		flags = append(flags, FlagLsOutOfRange)
	}

	return flags
}

func outOfRange(valid bool, v, lo, hi float64) bool {
	return valid && (v < lo || v > hi)
}
