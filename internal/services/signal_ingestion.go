package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/insight/evidence"
	"github.com/echolabs/twinsight-backend/internal/insight/features"
	"github.com/echolabs/twinsight-backend/internal/insight/traits"
	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/repos"
	"github.com/echolabs/twinsight-backend/internal/types"
)

// IngestResult describes one platform's ingestion run.
type IngestResult struct {
	Platform      string `json:"platform"`
	RecordCount   int    `json:"record_count"`
	FeatureCount  int    `json:"feature_count"`
	EvidenceCount int    `json:"evidence_count"`
}

// BatchResult is the outcome of a multi-platform ingestion pass. One
// platform's failure never aborts the others.
type BatchResult struct {
	Succeeded []IngestResult    `json:"succeeded"`
	Failed    []string          `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type SignalIngestionService interface {
	IngestPlatform(ctx context.Context, userID uuid.UUID, platform string, since time.Time) (*IngestResult, error)
	IngestAll(ctx context.Context, userID uuid.UUID, since time.Time) (*BatchResult, error)
	ListRecentJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ExtractionJob, error)
}

type signalIngestionService struct {
	db           *gorm.DB
	log          *logger.Logger
	registry     *features.Registry
	estimator    *traits.Estimator
	generator    *evidence.Generator
	source       PlatformSourceService
	estimateRepo repos.TraitEstimateRepo
	evidenceRepo repos.EvidenceRepo
	jobRepo      repos.ExtractionJobRepo
	notifier     NotifierService

	// userLocks serializes trait updates per user so concurrent platform
	// ingestions cannot interleave read-modify-write on the same estimate.
	mu        sync.Mutex
	userLocks map[uuid.UUID]*sync.Mutex
}

func NewSignalIngestionService(
	db *gorm.DB,
	log *logger.Logger,
	registry *features.Registry,
	estimator *traits.Estimator,
	generator *evidence.Generator,
	source PlatformSourceService,
	estimateRepo repos.TraitEstimateRepo,
	evidenceRepo repos.EvidenceRepo,
	jobRepo repos.ExtractionJobRepo,
	notifier NotifierService,
) SignalIngestionService {
	return &signalIngestionService{
		db:           db,
		log:          log.With("service", "SignalIngestionService"),
		registry:     registry,
		estimator:    estimator,
		generator:    generator,
		source:       source,
		estimateRepo: estimateRepo,
		evidenceRepo: evidenceRepo,
		jobRepo:      jobRepo,
		notifier:     notifier,
		userLocks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *signalIngestionService) lockFor(userID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// IngestPlatform runs the full fetch -> extract -> estimate -> evidence
// pipeline for one (user, platform) and records the run as an extraction job.
// No extractable features is a normal outcome, not an error.
func (s *signalIngestionService) IngestPlatform(ctx context.Context, userID uuid.UUID, platform string, since time.Time) (*IngestResult, error) {
	job := &types.ExtractionJob{UserID: userID, Platform: platform}
	if err := s.jobRepo.Create(ctx, nil, job); err != nil {
		return nil, fmt.Errorf("create extraction job: %w", err)
	}
	if err := s.jobRepo.MarkRunning(ctx, nil, job.ID); err != nil {
		s.log.Warn("Failed to mark extraction job running", "jobID", job.ID, "error", err)
	}

	result, err := s.ingest(ctx, userID, platform, since)
	if err != nil {
		if markErr := s.jobRepo.MarkFailed(ctx, nil, job.ID, err.Error()); markErr != nil {
			s.log.Warn("Failed to mark extraction job failed", "jobID", job.ID, "error", markErr)
		}
		return nil, err
	}
	if err := s.jobRepo.MarkCompleted(ctx, nil, job.ID, result.RecordCount); err != nil {
		s.log.Warn("Failed to mark extraction job completed", "jobID", job.ID, "error", err)
	}
	if s.notifier != nil {
		s.notifier.NotifyExtractionCompleted(ctx, userID, job.ID, platform, result.RecordCount)
	}
	return result, nil
}

func (s *signalIngestionService) ingest(ctx context.Context, userID uuid.UUID, platform string, since time.Time) (*IngestResult, error) {
	records, err := s.source.FetchRecentRecords(ctx, userID, platform, "", since)
	if err != nil {
		return nil, fmt.Errorf("fetch %s records: %w", platform, err)
	}

	result := &IngestResult{Platform: platform, RecordCount: len(records)}
	feats := s.registry.Extract(platform, records)
	if len(feats) == 0 {
		s.log.Debug("No extractable features", "userID", userID, "platform", platform, "records", len(records))
		return result, nil
	}
	result.FeatureCount = len(feats)

	evidenceRecords := make([]*types.EvidenceRecord, 0, len(feats))
	for _, f := range feats {
		for _, rec := range s.generator.Generate(platform, f) {
			row := &types.EvidenceRecord{
				UserID:      userID,
				Platform:    rec.Platform,
				Feature:     rec.Feature,
				Dimension:   rec.Dimension,
				Value:       rec.Value,
				Correlation: rec.Correlation,
				EffectSize:  rec.EffectSize,
				Description: rec.Description,
				Citation:    rec.Citation,
				Impact:      rec.Impact,
			}
			if len(rec.RawValue) > 0 {
				if raw, err := json.Marshal(rec.RawValue); err == nil {
					row.RawValue = datatypes.JSON(raw)
				}
			}
			evidenceRecords = append(evidenceRecords, row)
		}
	}
	result.EvidenceCount = len(evidenceRecords)

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		estimate, err := s.estimateRepo.GetByUserID(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("load trait estimate: %w", err)
		}
		estimate = s.estimator.Update(estimate, userID, platform, feats)
		if err := s.estimateRepo.Upsert(ctx, tx, estimate); err != nil {
			return fmt.Errorf("persist trait estimate: %w", err)
		}
		if err := s.evidenceRepo.UpsertMany(ctx, tx, evidenceRecords); err != nil {
			return fmt.Errorf("persist evidence: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyTraitsUpdated(ctx, userID, platform)
	}
	return result, nil
}

func (s *signalIngestionService) ListRecentJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ExtractionJob, error) {
	return s.jobRepo.GetRecentByUserID(ctx, nil, userID, limit)
}

// IngestAll runs every registered platform for the user, containing per
// platform failures in the batch result.
func (s *signalIngestionService) IngestAll(ctx context.Context, userID uuid.UUID, since time.Time) (*BatchResult, error) {
	out := &BatchResult{Errors: map[string]string{}}
	for _, platform := range s.registry.Platforms() {
		res, err := s.IngestPlatform(ctx, userID, platform, since)
		if err != nil {
			s.log.Warn("Platform ingestion failed", "userID", userID, "platform", platform, "error", err)
			out.Failed = append(out.Failed, platform)
			out.Errors[platform] = err.Error()
			continue
		}
		out.Succeeded = append(out.Succeeded, *res)
	}
	return out, nil
}
