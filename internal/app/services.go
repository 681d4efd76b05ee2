package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/clients/redis"
	"github.com/echolabs/twinsight-backend/internal/insight/correlations"
	"github.com/echolabs/twinsight-backend/internal/insight/evidence"
	"github.com/echolabs/twinsight-backend/internal/insight/features"
	"github.com/echolabs/twinsight-backend/internal/insight/patterns"
	"github.com/echolabs/twinsight-backend/internal/insight/temporal"
	"github.com/echolabs/twinsight-backend/internal/insight/traits"
	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/services"
	"github.com/echolabs/twinsight-backend/internal/sse"
	"github.com/echolabs/twinsight-backend/internal/utils"
)

type Services struct {
	Notifier  services.NotifierService
	Narrative services.NarrativeService

	TokenProvider  services.TokenProviderService
	PlatformSource services.PlatformSourceService
	EventSync      services.EventSyncService

	SignalIngestion  services.SignalIngestionService
	PatternDetection services.PatternDetectionService
	PatternTracker   services.PatternTrackerService
	Insight          services.InsightService

	// Markers is nil when Redis is unavailable; the tracker degrades to
	// unguarded cycles on a single instance.
	Markers redis.MarkerStore
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, sseHub *sse.Hub) (Services, error) {
	log.Info("Wiring services...")

	table, err := correlations.Load()
	if err != nil {
		return Services{}, fmt.Errorf("load correlation table: %w", err)
	}
	estimator, err := traits.NewEstimator(table)
	if err != nil {
		return Services{}, fmt.Errorf("init estimator: %w", err)
	}
	generator, err := evidence.NewGenerator(table)
	if err != nil {
		return Services{}, fmt.Errorf("init evidence generator: %w", err)
	}
	registry := features.DefaultRegistry()
	detector := temporal.NewDetector(temporal.DefaultVocabulary())

	cipher, err := utils.NewTokenCipher(cfg.TokenCipherSecret, cfg.TokenCipherSalt)
	if err != nil {
		return Services{}, fmt.Errorf("init token cipher: %w", err)
	}

	markers, err := redis.NewMarkerStore(log)
	if err != nil {
		log.Warn("Redis unavailable, tracker runs without cycle markers", "error", err)
		markers = nil
	}

	notifier := services.NewNotifierService(log, sseHub)
	narrative := services.NewTemplateNarrative()

	tokenProvider := services.NewTokenProviderService(db, log, reposet.PlatformConnection, cipher, nil)
	platformSource := services.NewStorePlatformSource(db, log, reposet.ActivityEvent)
	eventSync := services.NewEventSyncService(db, log, detector, reposet.TriggerEvent, reposet.ActivityEvent)

	ingestion := services.NewSignalIngestionService(
		db,
		log,
		registry,
		estimator,
		generator,
		platformSource,
		reposet.TraitEstimate,
		reposet.Evidence,
		reposet.ExtractionJob,
		notifier,
	)

	detection := services.NewPatternDetectionService(
		db,
		log,
		detector,
		patterns.Config{MinOccurrences: cfg.MinOccurrences, MinConfidence: cfg.MinConfidence},
		cfg.WindowMinutes,
		cfg.LookbackDays,
		reposet.TriggerEvent,
		reposet.ActivityEvent,
		reposet.BehavioralPattern,
		reposet.PatternObservation,
		notifier,
	)

	tracker := services.NewPatternTrackerService(
		db,
		log,
		detection,
		reposet.PlatformConnection,
		reposet.TriggerEvent,
		reposet.ActivityEvent,
		reposet.BehavioralPattern,
		reposet.PatternObservation,
		notifier,
		narrative,
		markers,
		cfg.TrackerInterval,
		cfg.TrackerBatchLimit,
	)

	insight := services.NewInsightService(db, log, reposet.TraitEstimate, reposet.Evidence, reposet.BehavioralPattern)

	return Services{
		Notifier:         notifier,
		Narrative:        narrative,
		TokenProvider:    tokenProvider,
		PlatformSource:   platformSource,
		EventSync:        eventSync,
		SignalIngestion:  ingestion,
		PatternDetection: detection,
		PatternTracker:   tracker,
		Insight:          insight,
		Markers:          markers,
	}, nil
}
