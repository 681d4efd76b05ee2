package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/types"
)

type PatternObservationRepo interface {
	Append(ctx context.Context, tx *gorm.DB, obs *types.PatternObservation) error
	GetByPatternID(ctx context.Context, tx *gorm.DB, patternID uuid.UUID) ([]*types.PatternObservation, error)
	CountByPatternID(ctx context.Context, tx *gorm.DB, patternID uuid.UUID) (int64, error)
}

type patternObservationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternObservationRepo(db *gorm.DB, baseLog *logger.Logger) PatternObservationRepo {
	return &patternObservationRepo{db: db, log: baseLog.With("repo", "PatternObservationRepo")}
}

// Append is idempotent per (pattern, trigger event); re-running a tracker
// cycle over the same trigger is a no-op.
func (r *patternObservationRepo) Append(ctx context.Context, tx *gorm.DB, obs *types.PatternObservation) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if obs == nil || obs.PatternID == uuid.Nil || obs.TriggerEventID == uuid.Nil {
		return nil
	}
	if obs.ID == uuid.Nil {
		obs.ID = uuid.New()
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pattern_id"}, {Name: "trigger_event_id"}},
			DoNothing: true,
		}).
		Create(obs).Error
}

func (r *patternObservationRepo) GetByPatternID(ctx context.Context, tx *gorm.DB, patternID uuid.UUID) ([]*types.PatternObservation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.PatternObservation
	if patternID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("pattern_id = ?", patternID).
		Order("observed_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *patternObservationRepo) CountByPatternID(ctx context.Context, tx *gorm.DB, patternID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if patternID == uuid.Nil {
		return 0, nil
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.PatternObservation{}).
		Where("pattern_id = ?", patternID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
