package evidence

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/echolabs/twinsight-backend/internal/insight/correlations"
	"github.com/echolabs/twinsight-backend/internal/insight/features"
	pkgerrors "github.com/echolabs/twinsight-backend/internal/pkg/errors"
)

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	table, err := correlations.Load()
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	g, err := NewGenerator(table)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestNewGeneratorFailsClosedWithoutTable(t *testing.T) {
	if _, err := NewGenerator(nil); !errors.Is(err, pkgerrors.ErrTableNotLoaded) {
		t.Fatalf("expected ErrTableNotLoaded, got %v", err)
	}
}

func TestGenerateHighEvidence(t *testing.T) {
	g := testGenerator(t)
	recs := g.Generate("spotify", features.Feature{
		Name:  "genre_diversity",
		Value: 0.8,
		RawValue: map[string]any{
			"distinct_genres": 24.0,
			"track_count":     50.0,
		},
	})
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.Dimension != "openness" {
		t.Fatalf("dimension = %s", r.Dimension)
	}
	if !strings.Contains(r.Description, "24 distinct genres") {
		t.Fatalf("description = %q", r.Description)
	}
	if !strings.Contains(r.Citation, "Rentfrow") {
		t.Fatalf("citation = %q", r.Citation)
	}
	wantImpact := math.Abs(0.8-0.5) * 2 * 0.38
	if math.Abs(r.Impact-wantImpact) > 1e-9 {
		t.Fatalf("impact = %v, want %v", r.Impact, wantImpact)
	}
}

func TestThresholdBoundaryClassifiesAsHigh(t *testing.T) {
	// A value exactly at the threshold must read as 'high' (>=, not >).
	g := testGenerator(t)
	recs := g.Generate("spotify", features.Feature{
		Name:     "energy_preference",
		Value:    0.5,
		RawValue: map[string]any{"mean_energy": 0.5},
	})
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	if !strings.Contains(recs[0].Description, "high-energy") {
		t.Fatalf("value at threshold classified as low: %q", recs[0].Description)
	}
}

func TestMissingLevelTemplateSkipsSilently(t *testing.T) {
	// spotify artist_diversity has no low template by design.
	g := testGenerator(t)
	recs := g.Generate("spotify", features.Feature{
		Name:     "artist_diversity",
		Value:    0.1,
		RawValue: map[string]any{"distinct_artists": 3.0},
	})
	if len(recs) != 0 {
		t.Fatalf("expected skip for missing low template, got %v", recs)
	}

	high := g.Generate("spotify", features.Feature{
		Name:     "artist_diversity",
		Value:    0.9,
		RawValue: map[string]any{"distinct_artists": 45.0},
	})
	if len(high) != 1 {
		t.Fatalf("high template should still produce a record")
	}
}

func TestGenerateOneRecordPerDimension(t *testing.T) {
	g := testGenerator(t)
	recs := g.Generate("calendar", features.Feature{
		Name:  "social_event_ratio",
		Value: 0.9,
		RawValue: map[string]any{
			"social_events": 18.0,
			"event_count":   20.0,
		},
	})
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2 (extraversion + agreeableness)", len(recs))
	}
	dims := map[string]bool{}
	for _, r := range recs {
		dims[r.Dimension] = true
	}
	if !dims["extraversion"] || !dims["agreeableness"] {
		t.Fatalf("dimensions = %v", dims)
	}
}

func TestUncorrelatedFeatureYieldsNothing(t *testing.T) {
	g := testGenerator(t)
	if recs := g.Generate("github", features.Feature{Name: "activity_volume", Value: 0.7}); len(recs) != 0 {
		t.Fatalf("expected no records, got %v", recs)
	}
}

func TestNumberFormatting(t *testing.T) {
	if got := formatNumber(0.236); got != "0.24" {
		t.Fatalf("formatNumber(0.236) = %q", got)
	}
	if got := formatNumber(1234567); got != "1,234,567" {
		t.Fatalf("formatNumber(1234567) = %q", got)
	}
	if got := formatNumber(24); got != "24" {
		t.Fatalf("formatNumber(24) = %q", got)
	}
	if got := formatNumber(1500); got != "1,500" {
		t.Fatalf("formatNumber(1500) = %q", got)
	}
}
