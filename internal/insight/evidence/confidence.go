package evidence

import (
	"math"

	"github.com/echolabs/twinsight-backend/internal/types"
)

// strongCorrelationFloor marks a correlation as strong for confidence
// purposes.
const strongCorrelationFloor = 0.35

// maxDimensionConfidence caps exposed confidence below full certainty.
const maxDimensionConfidence = 0.95

// ConfidenceReport carries per-dimension confidence in [0,0.95] and their
// mean. A user with no evidence gets all zeros, never a fabricated score.
type ConfidenceReport struct {
	Dimensions map[string]float64 `json:"dimensions"`
	Overall    float64            `json:"overall"`
}

// CalculateConfidenceScores scores how much the current evidence set supports
// each dimension. dataSpanDays is the observed span of the underlying data;
// pass 0 when unknown.
func CalculateConfidenceScores(records []Record, dataSpanDays float64) ConfidenceReport {
	type dimStats struct {
		featureCount int
		strongCount  int
		platforms    map[string]bool
	}
	stats := map[string]*dimStats{}
	for _, r := range records {
		s, ok := stats[r.Dimension]
		if !ok {
			s = &dimStats{platforms: map[string]bool{}}
			stats[r.Dimension] = s
		}
		s.featureCount++
		if math.Abs(r.Correlation) > strongCorrelationFloor {
			s.strongCount++
		}
		s.platforms[r.Platform] = true
	}

	spanBonus := 0.0
	if dataSpanDays > 0 {
		spanBonus = math.Min(0.1, dataSpanDays/30*0.1)
	}

	report := ConfidenceReport{Dimensions: make(map[string]float64, 5)}
	sum := 0.0
	for _, dim := range types.Dimensions() {
		c := 0.0
		if s, ok := stats[dim]; ok {
			c += math.Min(float64(s.featureCount)/5, 0.3)
			c += math.Min(float64(s.strongCount)*0.15, 0.3)
			c += 0.1 * float64(len(s.platforms))
			c += spanBonus
		}
		if c > maxDimensionConfidence {
			c = maxDimensionConfidence
		}
		report.Dimensions[dim] = c
		sum += c
	}
	report.Overall = sum / 5
	return report
}
