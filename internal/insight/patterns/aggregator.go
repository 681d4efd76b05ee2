package patterns

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/echolabs/twinsight-backend/internal/insight/temporal"
	"github.com/echolabs/twinsight-backend/internal/types"
)

// Config holds the storage thresholds for candidate patterns.
type Config struct {
	MinOccurrences int
	MinConfidence  float64
}

func DefaultConfig() Config {
	return Config{MinOccurrences: 3, MinConfidence: 50}
}

// Observation is one (trigger, activity) pair folded into a candidate.
type Observation struct {
	TriggerEventID uuid.UUID
	ResponseAt     time.Time
	OffsetMinutes  int
}

// Candidate is an aggregated behavioral pattern before persistence.
type Candidate struct {
	PatternType       string
	TriggerType       string
	TriggerKeywords   []string
	ResponsePlatform  string
	ResponseType      string
	TimeOffsetMinutes int
	OccurrenceCount   int
	ConsistencyRate   float64
	ConfidenceScore   float64
	FirstObservedAt   time.Time
	LastObservedAt    time.Time
	Observations      []Observation
}

type group struct {
	triggerType     string
	platform        string
	dataType        string
	offsetSum       int
	observations    []Observation
	distinctTrigger map[uuid.UUID]bool
	keywordSets     [][]string
	first, last     time.Time
}

// Aggregate groups raw co-occurrences into candidate patterns and filters by
// the configured thresholds. totalsByType is the ground-truth trigger count
// per classified type across the whole detection run: correlations alone
// undercount because zero-activity triggers were dropped upstream, which
// would silently inflate consistency rates.
func Aggregate(correlations []temporal.Correlation, totalsByType map[string]int, cfg Config) []Candidate {
	if len(correlations) == 0 {
		return nil
	}
	if cfg.MinOccurrences <= 0 {
		cfg.MinOccurrences = 3
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 50
	}

	groups := map[string]*group{}
	for _, corr := range correlations {
		for _, m := range corr.Matches {
			// Coarse 10-minute rounding merges near-duplicate offsets.
			bucket := int(math.Round(float64(m.OffsetMinutes)/10)) * 10
			key := fmt.Sprintf("%s|%s|%s|%d", corr.TriggerType, m.Activity.Platform, m.Activity.DataType, bucket)
			g, ok := groups[key]
			if !ok {
				g = &group{
					triggerType:     corr.TriggerType,
					platform:        m.Activity.Platform,
					dataType:        m.Activity.DataType,
					distinctTrigger: map[uuid.UUID]bool{},
				}
				groups[key] = g
			}
			g.offsetSum += m.OffsetMinutes
			g.observations = append(g.observations, Observation{
				TriggerEventID: corr.Trigger.ID,
				ResponseAt:     m.Activity.OccurredAt,
				OffsetMinutes:  m.OffsetMinutes,
			})
			if !g.distinctTrigger[corr.Trigger.ID] {
				g.distinctTrigger[corr.Trigger.ID] = true
				g.keywordSets = append(g.keywordSets, corr.Keywords)
			}
			at := m.Activity.OccurredAt
			if g.first.IsZero() || at.Before(g.first) {
				g.first = at
			}
			if at.After(g.last) {
				g.last = at
			}
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Candidate
	for _, key := range keys {
		g := groups[key]
		occurrences := len(g.observations)
		if occurrences < cfg.MinOccurrences {
			continue
		}

		meanOffset := float64(g.offsetSum) / float64(occurrences)
		// Stored offset keeps the finer 5-minute rounding for display.
		storedOffset := int(math.Round(meanOffset/5)) * 5

		rate := 0.0
		if total := totalsByType[g.triggerType]; total > 0 {
			rate = float64(len(g.distinctTrigger)) / float64(total) * 100
		}
		if rate > 100 {
			rate = 100
		}
		rate = round2(rate)

		score := Score(occurrences, rate, g.first, g.last)
		if score < cfg.MinConfidence {
			continue
		}

		out = append(out, Candidate{
			PatternType:       patternTypeForOffset(storedOffset),
			TriggerType:       g.triggerType,
			TriggerKeywords:   sharedKeywords(g.keywordSets),
			ResponsePlatform:  g.platform,
			ResponseType:      g.dataType,
			TimeOffsetMinutes: storedOffset,
			OccurrenceCount:   occurrences,
			ConsistencyRate:   rate,
			ConfidenceScore:   score,
			FirstObservedAt:   g.first,
			LastObservedAt:    g.last,
			Observations:      g.observations,
		})
	}
	return out
}

func patternTypeForOffset(offsetMinutes int) string {
	switch {
	case offsetMinutes < -10:
		return types.PatternPreEventRitual
	case offsetMinutes > 10:
		return types.PatternPostEventRecovery
	}
	return types.PatternStressResponse
}

// sharedKeywords returns the keywords common to every trigger in the group.
// An empty result is a valid keywordless pattern.
func sharedKeywords(sets [][]string) []string {
	if len(sets) == 0 {
		return nil
	}
	counts := map[string]int{}
	for _, set := range sets {
		seen := map[string]bool{}
		for _, kw := range set {
			if !seen[kw] {
				seen[kw] = true
				counts[kw]++
			}
		}
	}
	var out []string
	for kw, n := range counts {
		if n == len(sets) {
			out = append(out, kw)
		}
	}
	sort.Strings(out)
	return out
}
