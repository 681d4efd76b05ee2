package patterns

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/echolabs/twinsight-backend/internal/insight/temporal"
	"github.com/echolabs/twinsight-backend/internal/types"
)

var base = time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)

func corrWith(triggerType string, keywords []string, matches ...temporal.ActivityMatch) temporal.Correlation {
	return temporal.Correlation{
		Trigger:     types.TriggerEvent{ID: uuid.New(), StartTime: base},
		TriggerType: triggerType,
		Keywords:    keywords,
		Matches:     matches,
	}
}

func match(platform, dataType string, offsetMin int, at time.Time) temporal.ActivityMatch {
	return temporal.ActivityMatch{
		Activity: types.ActivityEvent{
			ID:         uuid.New(),
			Platform:   platform,
			DataType:   dataType,
			OccurredAt: at,
		},
		OffsetMinutes: offsetMin,
	}
}

// The canonical detection scenario: 12 high_stakes triggers, 4 of which have
// a spotify recently_played activity 15-20 minutes before, nothing else.
func preRitualScenario(spanDays int) ([]temporal.Correlation, map[string]int) {
	offsets := []int{-15, -17, -18, -20}
	var corrs []temporal.Correlation
	for i, off := range offsets {
		at := base.AddDate(0, 0, i*spanDays/3).Add(time.Duration(off) * time.Minute)
		corrs = append(corrs, corrWith(
			types.TriggerHighStakes,
			[]string{"interview"},
			match("spotify", "recently_played", off, at),
		))
	}
	return corrs, map[string]int{types.TriggerHighStakes: 12}
}

func TestAggregateEndToEndScenario(t *testing.T) {
	corrs, totals := preRitualScenario(9)
	// Thresholds lowered so the candidate itself is observable; the default
	// storage filter is exercised separately below.
	got := Aggregate(corrs, totals, Config{MinOccurrences: 3, MinConfidence: 1})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	c := got[0]
	if c.PatternType != types.PatternPreEventRitual {
		t.Fatalf("pattern type = %s", c.PatternType)
	}
	if c.OccurrenceCount != 4 {
		t.Fatalf("occurrence count = %d, want 4", c.OccurrenceCount)
	}
	if c.ConsistencyRate != 33.33 {
		t.Fatalf("consistency rate = %v, want 33.33", c.ConsistencyRate)
	}
	if c.ResponsePlatform != "spotify" || c.ResponseType != "recently_played" {
		t.Fatalf("response = %s/%s", c.ResponsePlatform, c.ResponseType)
	}
	// Mean offset -17.5 rounds to the nearest 5.
	if c.TimeOffsetMinutes != -20 && c.TimeOffsetMinutes != -15 {
		t.Fatalf("stored offset = %d", c.TimeOffsetMinutes)
	}
	if len(c.TriggerKeywords) != 1 || c.TriggerKeywords[0] != "interview" {
		t.Fatalf("keywords = %v", c.TriggerKeywords)
	}

	// Component scores for this scenario.
	wantFrequency := 16.0
	wantConsistency := 33.33 * 0.4
	spanDays := c.LastObservedAt.Sub(c.FirstObservedAt).Hours() / 24
	wantStability := math.Min(20, spanDays/2)
	want := round2(wantFrequency + wantConsistency + wantStability)
	if c.ConfidenceScore != want {
		t.Fatalf("confidence = %v, want %v", c.ConfidenceScore, want)
	}
}

func TestAggregateHonorsDefaultConfidenceFilter(t *testing.T) {
	// The same scenario scores ~34, below the default storage floor of 50.
	corrs, totals := preRitualScenario(9)
	if got := Aggregate(corrs, totals, DefaultConfig()); len(got) != 0 {
		t.Fatalf("expected default filter to drop low-confidence candidate, got %v", got)
	}
}

func TestAggregateIdempotentRedetection(t *testing.T) {
	corrs, totals := preRitualScenario(9)
	cfg := Config{MinOccurrences: 3, MinConfidence: 1}
	first := Aggregate(corrs, totals, cfg)
	second := Aggregate(corrs, totals, cfg)
	if len(first) != len(second) {
		t.Fatalf("candidate counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].OccurrenceCount != second[i].OccurrenceCount {
			t.Fatalf("occurrence counts differ at %d", i)
		}
		if first[i].ConsistencyRate != second[i].ConsistencyRate {
			t.Fatalf("consistency rates differ at %d", i)
		}
		if first[i].ConfidenceScore != second[i].ConfidenceScore {
			t.Fatalf("confidence scores differ at %d", i)
		}
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	if got := Aggregate(nil, map[string]int{}, DefaultConfig()); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestAggregateFiltersBelowMinOccurrences(t *testing.T) {
	corrs := []temporal.Correlation{
		corrWith(types.TriggerSocial, nil, match("spotify", "recently_played", -15, base)),
		corrWith(types.TriggerSocial, nil, match("spotify", "recently_played", -16, base.Add(24*time.Hour))),
	}
	got := Aggregate(corrs, map[string]int{types.TriggerSocial: 2}, DefaultConfig())
	if len(got) != 0 {
		t.Fatalf("expected filter at 2 < 3 occurrences, got %v", got)
	}
}

func TestConsistencyRateDefensiveCap(t *testing.T) {
	// More distinct triggers than the recorded total should not occur, but
	// the rate must still cap at 100.
	var corrs []temporal.Correlation
	for i := 0; i < 5; i++ {
		corrs = append(corrs, corrWith(types.TriggerMeeting, nil,
			match("github", "commit", 20, base.Add(time.Duration(i)*time.Hour))))
	}
	got := Aggregate(corrs, map[string]int{types.TriggerMeeting: 2}, Config{MinOccurrences: 3, MinConfidence: 1})
	if len(got) != 1 {
		t.Fatalf("got %d candidates", len(got))
	}
	if got[0].ConsistencyRate > 100 {
		t.Fatalf("consistency rate %v exceeds 100", got[0].ConsistencyRate)
	}
	if got[0].ConsistencyRate != 100 {
		t.Fatalf("consistency rate = %v, want capped 100", got[0].ConsistencyRate)
	}
}

func TestPatternTypeFromOffset(t *testing.T) {
	cases := []struct {
		offset int
		want   string
	}{
		{-30, types.PatternPreEventRitual},
		{-15, types.PatternPreEventRitual},
		{-10, types.PatternStressResponse},
		{0, types.PatternStressResponse},
		{10, types.PatternStressResponse},
		{15, types.PatternPostEventRecovery},
		{45, types.PatternPostEventRecovery},
	}
	for _, tc := range cases {
		if got := patternTypeForOffset(tc.offset); got != tc.want {
			t.Fatalf("patternTypeForOffset(%d) = %s, want %s", tc.offset, got, tc.want)
		}
	}
}

func TestKeywordlessGroup(t *testing.T) {
	// Triggers with disjoint keywords yield a keywordless pattern.
	corrs := []temporal.Correlation{
		corrWith(types.TriggerSocial, []string{"dinner"}, match("spotify", "recently_played", -15, base)),
		corrWith(types.TriggerSocial, []string{"party"}, match("spotify", "recently_played", -16, base.Add(24*time.Hour))),
		corrWith(types.TriggerSocial, []string{"dinner"}, match("spotify", "recently_played", -17, base.Add(48*time.Hour))),
	}
	got := Aggregate(corrs, map[string]int{types.TriggerSocial: 3}, Config{MinOccurrences: 3, MinConfidence: 1})
	if len(got) != 1 {
		t.Fatalf("got %d candidates", len(got))
	}
	if len(got[0].TriggerKeywords) != 0 {
		t.Fatalf("keywords = %v, want none", got[0].TriggerKeywords)
	}
}
