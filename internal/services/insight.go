package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/insight/evidence"
	"github.com/echolabs/twinsight-backend/internal/logger"
	apperrors "github.com/echolabs/twinsight-backend/internal/pkg/errors"
	"github.com/echolabs/twinsight-backend/internal/repos"
	"github.com/echolabs/twinsight-backend/internal/types"
)

// TraitProfile is the read model for a user's inferred traits. A profile with
// no behavioral signal returns InsufficientData=true and omits scores so the
// neutral prior is never presented as a finding.
type TraitProfile struct {
	UserID           uuid.UUID                  `json:"user_id"`
	InsufficientData bool                       `json:"insufficient_data"`
	Scores           map[string]float64         `json:"scores,omitempty"`
	Confidence       *evidence.ConfidenceReport `json:"confidence,omitempty"`
	SignalCount      int                        `json:"signal_count"`
	LastUpdatedAt    *time.Time                 `json:"last_updated_at,omitempty"`
}

type InsightService interface {
	GetTraitProfile(ctx context.Context, userID uuid.UUID) (*TraitProfile, error)
	ListEvidence(ctx context.Context, userID uuid.UUID, dimension string) ([]*types.EvidenceRecord, error)
	ListPatterns(ctx context.Context, userID uuid.UUID) ([]*types.BehavioralPattern, error)
	DeactivatePattern(ctx context.Context, userID, patternID uuid.UUID) error
	DeletePattern(ctx context.Context, userID, patternID uuid.UUID) error
}

type insightService struct {
	db           *gorm.DB
	log          *logger.Logger
	estimateRepo repos.TraitEstimateRepo
	evidenceRepo repos.EvidenceRepo
	patternRepo  repos.BehavioralPatternRepo
}

func NewInsightService(db *gorm.DB, log *logger.Logger, estimateRepo repos.TraitEstimateRepo, evidenceRepo repos.EvidenceRepo, patternRepo repos.BehavioralPatternRepo) InsightService {
	return &insightService{
		db:           db,
		log:          log.With("service", "InsightService"),
		estimateRepo: estimateRepo,
		evidenceRepo: evidenceRepo,
		patternRepo:  patternRepo,
	}
}

func (s *insightService) GetTraitProfile(ctx context.Context, userID uuid.UUID) (*TraitProfile, error) {
	if userID == uuid.Nil {
		return nil, apperrors.ErrInvalidArgument
	}

	estimate, err := s.estimateRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load estimate: %w", err)
	}
	if estimate == nil || estimate.TotalSignalCount == 0 {
		return &TraitProfile{UserID: userID, InsufficientData: true}, nil
	}

	rows, err := s.evidenceRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}
	records := make([]evidence.Record, 0, len(rows))
	var earliest, latest time.Time
	for _, row := range rows {
		rec := evidence.Record{
			Platform:    row.Platform,
			Feature:     row.Feature,
			Dimension:   row.Dimension,
			Value:       row.Value,
			Correlation: row.Correlation,
			EffectSize:  row.EffectSize,
			Description: row.Description,
			Citation:    row.Citation,
			Impact:      row.Impact,
		}
		if len(row.RawValue) > 0 {
			_ = json.Unmarshal(row.RawValue, &rec.RawValue)
		}
		records = append(records, rec)
		if earliest.IsZero() || row.CreatedAt.Before(earliest) {
			earliest = row.CreatedAt
		}
		if row.UpdatedAt.After(latest) {
			latest = row.UpdatedAt
		}
	}
	spanDays := 0.0
	if !earliest.IsZero() && latest.After(earliest) {
		spanDays = latest.Sub(earliest).Hours() / 24
	}
	report := evidence.CalculateConfidenceScores(records, spanDays)

	scores := make(map[string]float64, 5)
	for _, dim := range types.Dimensions() {
		scores[dim] = estimate.Score(dim)
	}
	return &TraitProfile{
		UserID:        userID,
		Scores:        scores,
		Confidence:    &report,
		SignalCount:   estimate.TotalSignalCount,
		LastUpdatedAt: estimate.LastUpdatedAt,
	}, nil
}

func (s *insightService) ListEvidence(ctx context.Context, userID uuid.UUID, dimension string) ([]*types.EvidenceRecord, error) {
	if userID == uuid.Nil {
		return nil, apperrors.ErrInvalidArgument
	}
	if dimension != "" {
		return s.evidenceRepo.GetByUserAndDimension(ctx, nil, userID, dimension)
	}
	return s.evidenceRepo.GetByUserID(ctx, nil, userID)
}

func (s *insightService) ListPatterns(ctx context.Context, userID uuid.UUID) ([]*types.BehavioralPattern, error) {
	if userID == uuid.Nil {
		return nil, apperrors.ErrInvalidArgument
	}
	return s.patternRepo.GetByUserID(ctx, nil, userID)
}

// ownedPattern loads the pattern and verifies the caller owns it.
func (s *insightService) ownedPattern(ctx context.Context, userID, patternID uuid.UUID) (*types.BehavioralPattern, error) {
	if userID == uuid.Nil || patternID == uuid.Nil {
		return nil, apperrors.ErrInvalidArgument
	}
	pattern, err := s.patternRepo.GetByID(ctx, nil, patternID)
	if err != nil {
		return nil, err
	}
	if pattern == nil || pattern.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return pattern, nil
}

func (s *insightService) DeactivatePattern(ctx context.Context, userID, patternID uuid.UUID) error {
	pattern, err := s.ownedPattern(ctx, userID, patternID)
	if err != nil {
		return err
	}
	return s.patternRepo.Deactivate(ctx, nil, pattern.ID)
}

func (s *insightService) DeletePattern(ctx context.Context, userID, patternID uuid.UUID) error {
	pattern, err := s.ownedPattern(ctx, userID, patternID)
	if err != nil {
		return err
	}
	return s.patternRepo.Delete(ctx, nil, pattern.ID)
}
