package ingest

import (
	"database/sql"
	"math"
)

const (
	SeasonSpring  = "Spring"
	SeasonSummer  = "Summer"
	SeasonAutumn  = "Autumn"
	SeasonWinter  = "Winter"
	SeasonUnknown = "Unknown"
)

// SeasonForLs maps solar longitude to a northern-hemisphere Martian season.
// Ls wraps modulo 360, so 370° is Spring and -10° is Winter.
func SeasonForLs(ls sql.NullFloat64) string {
	if !ls.Valid {
		return SeasonUnknown
	}
	deg := math.Mod(ls.Float64, 360)
	if deg < 0 {
		deg += 360
	}
	switch {
	case deg < 90:
		return SeasonSpring
	case deg < 180:
		return SeasonSummer
	case deg < 270:
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}
