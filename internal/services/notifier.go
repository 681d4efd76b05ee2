package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/sse"
)

// NotifierService is the fire-and-forget notification sink. Delivery is not
// guaranteed; failures are logged and never propagate into the pipelines that
// emit them.
type NotifierService interface {
	NotifyTraitsUpdated(ctx context.Context, userID uuid.UUID, platform string)
	NotifyPatternDetected(ctx context.Context, userID uuid.UUID, patternID uuid.UUID, patternType string)
	NotifySuggestion(ctx context.Context, userID uuid.UUID, suggestion Suggestion)
	NotifyExtractionCompleted(ctx context.Context, userID uuid.UUID, jobID uuid.UUID, platform string, itemsExtracted int)
}

// Suggestion is a proactive heads-up about an expected behavioral response
// that has not happened yet.
type Suggestion struct {
	PatternID      uuid.UUID `json:"pattern_id"`
	TriggerID      uuid.UUID `json:"trigger_id"`
	PatternType    string    `json:"pattern_type"`
	Platform       string    `json:"platform"`
	ResponseType   string    `json:"response_type"`
	Confidence     float64   `json:"confidence"`
	TriggerSummary string    `json:"trigger_summary"`
	TriggerStart   string    `json:"trigger_start"`
	MinutesUntil   int       `json:"minutes_until"`
	OffsetMinutes  int       `json:"offset_minutes"`
	Text           string    `json:"text,omitempty"`
}

type notifierService struct {
	log *logger.Logger
	hub *sse.Hub
}

func NewNotifierService(log *logger.Logger, hub *sse.Hub) NotifierService {
	return &notifierService{log: log.With("service", "NotifierService"), hub: hub}
}

func (n *notifierService) broadcast(userID uuid.UUID, event sse.Event, data any) {
	if n.hub == nil || userID == uuid.Nil {
		return
	}
	n.hub.Broadcast(sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   event,
		Data:    data,
	})
}

func (n *notifierService) NotifyTraitsUpdated(ctx context.Context, userID uuid.UUID, platform string) {
	n.broadcast(userID, sse.EventTraitsUpdated, map[string]any{"platform": platform})
}

func (n *notifierService) NotifyPatternDetected(ctx context.Context, userID uuid.UUID, patternID uuid.UUID, patternType string) {
	n.broadcast(userID, sse.EventPatternDetected, map[string]any{
		"pattern_id":   patternID,
		"pattern_type": patternType,
	})
}

func (n *notifierService) NotifySuggestion(ctx context.Context, userID uuid.UUID, suggestion Suggestion) {
	n.broadcast(userID, sse.EventSuggestionCreated, suggestion)
}

func (n *notifierService) NotifyExtractionCompleted(ctx context.Context, userID uuid.UUID, jobID uuid.UUID, platform string, itemsExtracted int) {
	n.broadcast(userID, sse.EventExtractionCompleted, map[string]any{
		"job_id":          jobID,
		"platform":        platform,
		"items_extracted": itemsExtracted,
	})
}
