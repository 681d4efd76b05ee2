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

type TraitEstimateRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.TraitEstimate, error)
	Upsert(ctx context.Context, tx *gorm.DB, estimate *types.TraitEstimate) error
}

type traitEstimateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTraitEstimateRepo(db *gorm.DB, baseLog *logger.Logger) TraitEstimateRepo {
	return &traitEstimateRepo{db: db, log: baseLog.With("repo", "TraitEstimateRepo")}
}

func (r *traitEstimateRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.TraitEstimate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.TraitEstimate
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
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

// Upsert writes the full estimate keyed on user_id. The caller owns the
// arithmetic; this only persists whatever state it is handed.
func (r *traitEstimateRepo) Upsert(ctx context.Context, tx *gorm.DB, estimate *types.TraitEstimate) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if estimate == nil || estimate.UserID == uuid.Nil {
		return nil
	}
	if estimate.ID == uuid.Nil {
		estimate.ID = uuid.New()
	}
	estimate.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"openness", "conscientiousness", "extraversion", "agreeableness",
				"neuroticism", "evidence_weight", "total_signal_count",
				"last_updated_at", "updated_at",
			}),
		}).
		Create(estimate).Error
}
