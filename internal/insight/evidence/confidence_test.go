package evidence

import (
	"math"
	"testing"

	"github.com/echolabs/twinsight-backend/internal/types"
)

func TestConfidenceEmptyEvidenceIsZero(t *testing.T) {
	report := CalculateConfidenceScores(nil, 0)
	for dim, c := range report.Dimensions {
		if c != 0 {
			t.Fatalf("%s = %v, want 0", dim, c)
		}
	}
	if report.Overall != 0 {
		t.Fatalf("overall = %v, want 0", report.Overall)
	}
}

func TestConfidenceSingleWeakFeature(t *testing.T) {
	recs := []Record{{
		Platform:    "spotify",
		Feature:     "listening_consistency",
		Dimension:   types.DimensionConscientiousness,
		Correlation: 0.25,
	}}
	report := CalculateConfidenceScores(recs, 0)
	// featureCount term 1/5 = 0.2, no strong bonus, one platform 0.1.
	want := 0.2 + 0.1
	got := report.Dimensions[types.DimensionConscientiousness]
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("confidence = %v, want %v", got, want)
	}
}

func TestConfidenceStrongFeatureBonus(t *testing.T) {
	recs := []Record{{
		Platform:    "calendar",
		Dimension:   types.DimensionExtraversion,
		Correlation: 0.42,
	}}
	report := CalculateConfidenceScores(recs, 0)
	want := 0.2 + 0.15 + 0.1
	got := report.Dimensions[types.DimensionExtraversion]
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("confidence = %v, want %v", got, want)
	}
}

func TestConfidenceNeverExceedsCap(t *testing.T) {
	var recs []Record
	platforms := []string{"spotify", "youtube", "github", "calendar", "wearable"}
	for i := 0; i < 40; i++ {
		recs = append(recs, Record{
			Platform:    platforms[i%len(platforms)],
			Dimension:   types.DimensionOpenness,
			Correlation: 0.5,
		})
	}
	report := CalculateConfidenceScores(recs, 365)
	got := report.Dimensions[types.DimensionOpenness]
	if got != 0.95 {
		t.Fatalf("confidence = %v, want cap 0.95", got)
	}
	if report.Overall > 0.95 {
		t.Fatalf("overall = %v exceeds cap", report.Overall)
	}
}

func TestConfidenceSpanBonusIsCapped(t *testing.T) {
	rec := []Record{{Platform: "spotify", Dimension: types.DimensionOpenness, Correlation: 0.1}}
	short := CalculateConfidenceScores(rec, 3).Dimensions[types.DimensionOpenness]
	long := CalculateConfidenceScores(rec, 300).Dimensions[types.DimensionOpenness]
	if short >= long {
		t.Fatalf("span bonus not increasing: %v vs %v", short, long)
	}
	if diff := long - (0.2 + 0.1 + 0.1); math.Abs(diff) > 1e-9 {
		t.Fatalf("long-span confidence = %v", long)
	}
}

func TestOverallIsMeanOfFiveDimensions(t *testing.T) {
	recs := []Record{{Platform: "spotify", Dimension: types.DimensionOpenness, Correlation: 0.38}}
	report := CalculateConfidenceScores(recs, 0)
	sum := 0.0
	for _, c := range report.Dimensions {
		sum += c
	}
	if math.Abs(report.Overall-sum/5) > 1e-9 {
		t.Fatalf("overall = %v, want %v", report.Overall, sum/5)
	}
}
