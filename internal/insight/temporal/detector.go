package temporal

import (
	"math"
	"strings"
	"time"

	"github.com/echolabs/twinsight-backend/internal/types"
)

// DefaultWindowMinutes is how far each side of a trigger's start time the
// detector looks for activity.
const DefaultWindowMinutes = 180

// ActivityMatch pairs one activity with its signed minute offset from the
// trigger start (negative = before the trigger).
type ActivityMatch struct {
	Activity      types.ActivityEvent
	OffsetMinutes int
}

// Correlation is one trigger with at least one time-windowed activity.
// Triggers with zero matches are dropped, so consistency-rate denominators
// must be recovered from the original trigger list, not from correlations.
type Correlation struct {
	Trigger     types.TriggerEvent
	TriggerType string
	Keywords    []string
	Matches     []ActivityMatch
}

// Vocabulary drives trigger classification and keyword extraction. The type
// lists are matched in priority order: high_stakes, focus_work, social,
// meeting; first match wins. Keywords is the extraction vocabulary, matched
// by substring against summary+description.
type Vocabulary struct {
	HighStakes []string
	FocusWork  []string
	Social     []string
	Meeting    []string
	Keywords   []string
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		HighStakes: []string{"interview", "presentation", "exam", "pitch", "demo", "review", "deadline", "launch"},
		FocusWork:  []string{"focus", "deep work", "writing", "coding", "study", "heads down"},
		Social:     []string{"dinner", "party", "drinks", "lunch", "coffee", "hangout", "date"},
		Meeting:    []string{"meeting", "sync", "standup", "1:1", "one-on-one", "call", "check-in"},
		Keywords: []string{
			"interview", "presentation", "exam", "pitch", "demo", "review",
			"deadline", "launch", "meeting", "standup", "workout", "therapy",
			"flight", "dinner", "party",
		},
	}
}

type Detector struct {
	vocab Vocabulary
}

func NewDetector(vocab Vocabulary) *Detector {
	return &Detector{vocab: vocab}
}

// Classify buckets a trigger event by keyword and attendee heuristics.
func (d *Detector) Classify(ev types.TriggerEvent) string {
	text := strings.ToLower(ev.Summary + " " + ev.Description)
	switch {
	case containsAny(text, d.vocab.HighStakes):
		return types.TriggerHighStakes
	case containsAny(text, d.vocab.FocusWork):
		return types.TriggerFocusWork
	case containsAny(text, d.vocab.Social):
		return types.TriggerSocial
	case containsAny(text, d.vocab.Meeting) || ev.AttendeeCount >= 2:
		return types.TriggerMeeting
	}
	return types.TriggerOther
}

// ExtractKeywords returns the vocabulary terms present in the event text.
func (d *Detector) ExtractKeywords(ev types.TriggerEvent) []string {
	text := strings.ToLower(ev.Summary + " " + ev.Description)
	var out []string
	for _, kw := range d.vocab.Keywords {
		if strings.Contains(text, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// Detect finds, for each trigger, the activities whose timestamp falls within
// [-window, +window] of the trigger start. Triggers with no matching activity
// are dropped entirely.
func (d *Detector) Detect(triggers []types.TriggerEvent, activities []types.ActivityEvent, windowMinutes int) []Correlation {
	if len(triggers) == 0 || len(activities) == 0 {
		return nil
	}
	if windowMinutes <= 0 {
		windowMinutes = DefaultWindowMinutes
	}
	window := time.Duration(windowMinutes) * time.Minute

	var out []Correlation
	for _, trig := range triggers {
		var matches []ActivityMatch
		for _, act := range activities {
			delta := act.OccurredAt.Sub(trig.StartTime)
			if delta < -window || delta > window {
				continue
			}
			matches = append(matches, ActivityMatch{
				Activity:      act,
				OffsetMinutes: int(math.Round(delta.Minutes())),
			})
		}
		if len(matches) == 0 {
			continue
		}
		out = append(out, Correlation{
			Trigger:     trig,
			TriggerType: d.Classify(trig),
			Keywords:    d.ExtractKeywords(trig),
			Matches:     matches,
		})
	}
	return out
}

// CountByType classifies every trigger in the ground-truth list and tallies
// per type. Aggregation uses this as the consistency-rate denominator so that
// dropped zero-activity triggers still count.
func (d *Detector) CountByType(triggers []types.TriggerEvent) map[string]int {
	totals := make(map[string]int)
	for _, trig := range triggers {
		totals[d.Classify(trig)]++
	}
	return totals
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
