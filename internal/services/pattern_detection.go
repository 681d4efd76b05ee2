package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/insight/patterns"
	"github.com/echolabs/twinsight-backend/internal/insight/temporal"
	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/repos"
	"github.com/echolabs/twinsight-backend/internal/types"
)

// DefaultDetectionLookbackDays bounds how much history one detection run
// considers.
const DefaultDetectionLookbackDays = 90

type PatternDetectionService interface {
	DetectForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type patternDetectionService struct {
	db           *gorm.DB
	log          *logger.Logger
	detector     *temporal.Detector
	cfg          patterns.Config
	windowMins   int
	lookbackDays int
	triggerRepo  repos.TriggerEventRepo
	activityRepo repos.ActivityEventRepo
	patternRepo  repos.BehavioralPatternRepo
	obsRepo      repos.PatternObservationRepo
	notifier     NotifierService
}

func NewPatternDetectionService(
	db *gorm.DB,
	log *logger.Logger,
	detector *temporal.Detector,
	cfg patterns.Config,
	windowMins int,
	lookbackDays int,
	triggerRepo repos.TriggerEventRepo,
	activityRepo repos.ActivityEventRepo,
	patternRepo repos.BehavioralPatternRepo,
	obsRepo repos.PatternObservationRepo,
	notifier NotifierService,
) PatternDetectionService {
	if windowMins <= 0 {
		windowMins = temporal.DefaultWindowMinutes
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultDetectionLookbackDays
	}
	return &patternDetectionService{
		db:           db,
		log:          log.With("service", "PatternDetectionService"),
		detector:     detector,
		cfg:          cfg,
		windowMins:   windowMins,
		lookbackDays: lookbackDays,
		triggerRepo:  triggerRepo,
		activityRepo: activityRepo,
		patternRepo:  patternRepo,
		obsRepo:      obsRepo,
		notifier:     notifier,
	}
}

// DetectForUser runs the full temporal pipeline over the lookback window and
// persists the surviving candidates. Returns the number of patterns upserted.
// Consistency-rate denominators come from the full trigger list, including
// triggers the detector dropped for having no nearby activity.
func (s *patternDetectionService) DetectForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -s.lookbackDays)

	triggerRows, err := s.triggerRepo.GetByUserAndRange(ctx, nil, userID, from, now)
	if err != nil {
		return 0, fmt.Errorf("load triggers: %w", err)
	}
	activityRows, err := s.activityRepo.GetByUserAndRange(ctx, nil, userID, from.Add(-time.Duration(s.windowMins)*time.Minute), now)
	if err != nil {
		return 0, fmt.Errorf("load activities: %w", err)
	}
	if len(triggerRows) == 0 || len(activityRows) == 0 {
		return 0, nil
	}

	triggers := make([]types.TriggerEvent, 0, len(triggerRows))
	for _, t := range triggerRows {
		triggers = append(triggers, *t)
	}
	activities := make([]types.ActivityEvent, 0, len(activityRows))
	for _, a := range activityRows {
		activities = append(activities, *a)
	}

	correlations := s.detector.Detect(triggers, activities, s.windowMins)
	totals := s.detector.CountByType(triggers)
	candidates := patterns.Aggregate(correlations, totals, s.cfg)
	if len(candidates) == 0 {
		return 0, nil
	}

	stored := 0
	for _, cand := range candidates {
		pattern := &types.BehavioralPattern{
			UserID:            userID,
			PatternType:       cand.PatternType,
			TriggerKeywords:   types.JoinKeywords(cand.TriggerKeywords),
			ResponsePlatform:  cand.ResponsePlatform,
			ResponseType:      cand.ResponseType,
			TimeOffsetMinutes: cand.TimeOffsetMinutes,
			TimeWindowMinutes: 15,
			OccurrenceCount:   cand.OccurrenceCount,
			ConsistencyRate:   cand.ConsistencyRate,
			ConfidenceScore:   cand.ConfidenceScore,
			FirstObservedAt:   cand.FirstObservedAt,
			LastObservedAt:    cand.LastObservedAt,
			IsActive:          true,
		}
		if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.patternRepo.Upsert(ctx, tx, pattern); err != nil {
				return fmt.Errorf("upsert pattern: %w", err)
			}
			// A conflicting upsert keeps the stored row's id, not ours.
			stored, err := s.patternRepo.GetByNaturalKey(ctx, tx, pattern)
			if err != nil {
				return err
			}
			patternID := pattern.ID
			if stored != nil {
				patternID = stored.ID
				pattern.ID = stored.ID
			}
			for _, obs := range cand.Observations {
				responseAt := obs.ResponseAt
				offset := obs.OffsetMinutes
				row := &types.PatternObservation{
					PatternID:        patternID,
					TriggerEventID:   obs.TriggerEventID,
					ResponseObserved: true,
					ResponseAt:       &responseAt,
					OffsetMinutes:    &offset,
					ObservedAt:       now,
				}
				if err := s.obsRepo.Append(ctx, tx, row); err != nil {
					return fmt.Errorf("append observation: %w", err)
				}
			}
			return nil
		}); err != nil {
			return stored, err
		}
		stored++
		if s.notifier != nil {
			s.notifier.NotifyPatternDetected(ctx, userID, pattern.ID, pattern.PatternType)
		}
	}

	s.log.Info("Pattern detection complete", "userID", userID, "candidates", len(candidates), "stored", stored)
	return stored, nil
}
