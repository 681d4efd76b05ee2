package patterns

import (
	"math"
	"time"
)

// Confidence levels for a scored pattern.
const (
	LevelVeryHigh = "very_high"
	LevelHigh     = "high"
	LevelMedium   = "medium"
	LevelLow      = "low"
	LevelVeryLow  = "very_low"
)

// Score computes the heuristic 0-100 confidence for a pattern. Three
// independently capped components: frequency saturates at 10 occurrences,
// consistency is linear, stability saturates at 40 days of observed span.
// This is a heuristic, not a probability.
func Score(occurrenceCount int, consistencyRate float64, firstObserved, lastObserved time.Time) float64 {
	frequency := math.Min(40, float64(occurrenceCount)*4)
	consistency := consistencyRate * 0.4
	stability := 0.0
	if lastObserved.After(firstObserved) {
		days := lastObserved.Sub(firstObserved).Hours() / 24
		stability = math.Min(20, days/2)
	}
	total := frequency + consistency + stability
	if total > 100 {
		total = 100
	}
	return round2(total)
}

// Level buckets a confidence score.
func Level(score float64) string {
	switch {
	case score >= 90:
		return LevelVeryHigh
	case score >= 70:
		return LevelHigh
	case score >= 50:
		return LevelMedium
	case score >= 30:
		return LevelLow
	}
	return LevelVeryLow
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
