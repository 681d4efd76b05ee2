package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/types"
)

type BehavioralPatternRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, pattern *types.BehavioralPattern) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BehavioralPattern, error)
	GetByNaturalKey(ctx context.Context, tx *gorm.DB, pattern *types.BehavioralPattern) (*types.BehavioralPattern, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BehavioralPattern, error)
	GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minConfidence float64) ([]*types.BehavioralPattern, error)
	Deactivate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type behavioralPatternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBehavioralPatternRepo(db *gorm.DB, baseLog *logger.Logger) BehavioralPatternRepo {
	return &behavioralPatternRepo{db: db, log: baseLog.With("repo", "BehavioralPatternRepo")}
}

// Upsert keys on the natural pattern identity so re-detection refreshes counts
// and scores in place. A row that was deactivated stays deactivated.
func (r *behavioralPatternRepo) Upsert(ctx context.Context, tx *gorm.DB, pattern *types.BehavioralPattern) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if pattern == nil || pattern.UserID == uuid.Nil {
		return nil
	}
	if pattern.ID == uuid.Nil {
		pattern.ID = uuid.New()
	}
	pattern.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "pattern_type"}, {Name: "trigger_keywords"},
				{Name: "response_platform"}, {Name: "response_type"}, {Name: "time_offset_minutes"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"time_window_minutes", "occurrence_count", "consistency_rate",
				"confidence_score", "first_observed_at", "last_observed_at", "updated_at",
			}),
		}).
		Create(pattern).Error
}

func (r *behavioralPatternRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BehavioralPattern, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.BehavioralPattern
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// GetByNaturalKey resolves the stored row for a pattern identity. Needed
// after an upsert, where a conflict leaves the in-memory id pointing at a row
// that was never inserted.
func (r *behavioralPatternRepo) GetByNaturalKey(ctx context.Context, tx *gorm.DB, pattern *types.BehavioralPattern) (*types.BehavioralPattern, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if pattern == nil || pattern.UserID == uuid.Nil {
		return nil, nil
	}
	var row types.BehavioralPattern
	err := transaction.WithContext(ctx).
		Where(
			"user_id = ? AND pattern_type = ? AND trigger_keywords = ? AND response_platform = ? AND response_type = ? AND time_offset_minutes = ?",
			pattern.UserID, pattern.PatternType, pattern.TriggerKeywords,
			pattern.ResponsePlatform, pattern.ResponseType, pattern.TimeOffsetMinutes,
		).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *behavioralPatternRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.BehavioralPattern, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.BehavioralPattern
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("confidence_score DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *behavioralPatternRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minConfidence float64) ([]*types.BehavioralPattern, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.BehavioralPattern
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND confidence_score >= ?", userID, true, minConfidence).
		Order("confidence_score DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *behavioralPatternRepo) Deactivate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.BehavioralPattern{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error
}

func (r *behavioralPatternRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.BehavioralPattern{}).Error
}
