package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/insight/temporal"
	"github.com/echolabs/twinsight-backend/internal/logger"
	apperrors "github.com/echolabs/twinsight-backend/internal/pkg/errors"
	"github.com/echolabs/twinsight-backend/internal/repos"
	"github.com/echolabs/twinsight-backend/internal/types"
)

// TriggerEventInput is one calendar-like event pushed by a client or sync
// job. Classification and keyword extraction happen on ingest.
type TriggerEventInput struct {
	ExternalID    string     `json:"external_id" binding:"required"`
	Summary       string     `json:"summary"`
	Description   string     `json:"description"`
	StartTime     time.Time  `json:"start_time" binding:"required"`
	EndTime       *time.Time `json:"end_time"`
	AttendeeCount int        `json:"attendee_count"`
}

// ActivityEventInput is one timestamped platform action pushed by a client
// or sync job.
type ActivityEventInput struct {
	Platform   string         `json:"platform" binding:"required"`
	DataType   string         `json:"data_type" binding:"required"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at" binding:"required"`
}

// EventSyncService is the write path for the temporal pipeline: it mirrors
// external calendar events and platform activity into the local store that
// detection and tracking read from.
type EventSyncService interface {
	SyncTriggerEvents(ctx context.Context, userID uuid.UUID, inputs []TriggerEventInput) (int, error)
	RecordActivityEvents(ctx context.Context, userID uuid.UUID, inputs []ActivityEventInput) (int, error)
}

type eventSyncService struct {
	db           *gorm.DB
	log          *logger.Logger
	detector     *temporal.Detector
	triggerRepo  repos.TriggerEventRepo
	activityRepo repos.ActivityEventRepo
}

func NewEventSyncService(db *gorm.DB, log *logger.Logger, detector *temporal.Detector, triggerRepo repos.TriggerEventRepo, activityRepo repos.ActivityEventRepo) EventSyncService {
	return &eventSyncService{
		db:           db,
		log:          log.With("service", "EventSyncService"),
		detector:     detector,
		triggerRepo:  triggerRepo,
		activityRepo: activityRepo,
	}
}

// SyncTriggerEvents upserts by (user, external id), so repeated syncs of the
// same calendar window refresh rows instead of duplicating them. Returns the
// number of events written.
func (s *eventSyncService) SyncTriggerEvents(ctx context.Context, userID uuid.UUID, inputs []TriggerEventInput) (int, error) {
	if userID == uuid.Nil {
		return 0, apperrors.ErrInvalidArgument
	}
	if len(inputs) == 0 {
		return 0, nil
	}

	events := make([]*types.TriggerEvent, 0, len(inputs))
	for _, in := range inputs {
		if in.ExternalID == "" || in.StartTime.IsZero() {
			return 0, fmt.Errorf("event %q: %w", in.ExternalID, apperrors.ErrInvalidArgument)
		}
		ev := &types.TriggerEvent{
			UserID:        userID,
			ExternalID:    in.ExternalID,
			Summary:       in.Summary,
			Description:   in.Description,
			StartTime:     in.StartTime.UTC(),
			EndTime:       in.EndTime,
			AttendeeCount: in.AttendeeCount,
		}
		ev.ClassifiedType = s.detector.Classify(*ev)
		if keywords := s.detector.ExtractKeywords(*ev); len(keywords) > 0 {
			raw, err := json.Marshal(keywords)
			if err != nil {
				return 0, fmt.Errorf("marshal keywords: %w", err)
			}
			ev.Keywords = datatypes.JSON(raw)
		}
		events = append(events, ev)
	}

	if err := s.triggerRepo.UpsertMany(ctx, nil, events); err != nil {
		return 0, fmt.Errorf("upsert trigger events: %w", err)
	}
	s.log.Info("Synced trigger events", "userID", userID, "count", len(events))
	return len(events), nil
}

// RecordActivityEvents appends platform activity rows. Returns the number of
// events written.
func (s *eventSyncService) RecordActivityEvents(ctx context.Context, userID uuid.UUID, inputs []ActivityEventInput) (int, error) {
	if userID == uuid.Nil {
		return 0, apperrors.ErrInvalidArgument
	}
	if len(inputs) == 0 {
		return 0, nil
	}

	events := make([]*types.ActivityEvent, 0, len(inputs))
	for _, in := range inputs {
		if in.Platform == "" || in.DataType == "" || in.OccurredAt.IsZero() {
			return 0, fmt.Errorf("activity on %q: %w", in.Platform, apperrors.ErrInvalidArgument)
		}
		ev := &types.ActivityEvent{
			UserID:     userID,
			Platform:   in.Platform,
			DataType:   in.DataType,
			OccurredAt: in.OccurredAt.UTC(),
		}
		if len(in.Payload) > 0 {
			raw, err := json.Marshal(in.Payload)
			if err != nil {
				return 0, fmt.Errorf("marshal payload: %w", err)
			}
			ev.Payload = datatypes.JSON(raw)
		}
		events = append(events, ev)
	}

	if err := s.activityRepo.CreateMany(ctx, nil, events); err != nil {
		return 0, fmt.Errorf("create activity events: %w", err)
	}
	s.log.Info("Recorded activity events", "userID", userID, "count", len(events))
	return len(events), nil
}
