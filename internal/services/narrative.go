package services

import (
	"fmt"
	"strings"

	"github.com/echolabs/twinsight-backend/internal/types"
)

// NarrativeService produces the human-readable text attached to suggestions.
// The default is template backed; an LLM-backed implementation can satisfy
// the same interface. Everything works with this service absent.
type NarrativeService interface {
	SuggestionText(pattern *types.BehavioralPattern, trigger *types.TriggerEvent) string
}

type templateNarrative struct{}

func NewTemplateNarrative() NarrativeService {
	return &templateNarrative{}
}

func (templateNarrative) SuggestionText(pattern *types.BehavioralPattern, trigger *types.TriggerEvent) string {
	if pattern == nil || trigger == nil {
		return ""
	}
	subject := strings.TrimSpace(trigger.Summary)
	if subject == "" {
		subject = "an upcoming event"
	}
	action := strings.ReplaceAll(pattern.ResponseType, "_", " ")
	if action == "" {
		action = "your usual " + pattern.ResponsePlatform + " activity"
	}

	switch pattern.PatternType {
	case types.PatternPreEventRitual:
		return fmt.Sprintf("Before %s you usually turn to %s on %s. You haven't yet.", subject, action, pattern.ResponsePlatform)
	case types.PatternPostEventRecovery:
		return fmt.Sprintf("After %s you usually wind down with %s on %s.", subject, action, pattern.ResponsePlatform)
	}
	return fmt.Sprintf("Around %s you usually reach for %s on %s.", subject, action, pattern.ResponsePlatform)
}
