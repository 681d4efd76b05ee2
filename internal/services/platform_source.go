package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/repos"
)

// PlatformSourceService hands raw platform records to feature extraction.
// The store-backed implementation reads mirrored activity payloads, so the
// pipeline runs end to end without any live platform API client; a live
// implementation satisfies the same interface.
type PlatformSourceService interface {
	FetchRecentRecords(ctx context.Context, userID uuid.UUID, platform, dataType string, since time.Time) ([]map[string]any, error)
}

type storePlatformSource struct {
	db           *gorm.DB
	log          *logger.Logger
	activityRepo repos.ActivityEventRepo
}

func NewStorePlatformSource(db *gorm.DB, log *logger.Logger, activityRepo repos.ActivityEventRepo) PlatformSourceService {
	return &storePlatformSource{
		db:           db,
		log:          log.With("service", "PlatformSourceService"),
		activityRepo: activityRepo,
	}
}

func (s *storePlatformSource) FetchRecentRecords(ctx context.Context, userID uuid.UUID, platform, dataType string, since time.Time) ([]map[string]any, error) {
	events, err := s.activityRepo.GetByUserSince(ctx, nil, userID, since)
	if err != nil {
		return nil, err
	}
	records := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		if platform != "" && ev.Platform != platform {
			continue
		}
		if dataType != "" && ev.DataType != dataType {
			continue
		}
		if len(ev.Payload) == 0 {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal(ev.Payload, &record); err != nil {
			s.log.Warn("Skipping unreadable activity payload", "eventID", ev.ID, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
