package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/types"
)

type ExtractionJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.ExtractionJob) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ExtractionJob, error)
	MarkRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, itemsExtracted int) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errorMessage string) error
	GetRecentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ExtractionJob, error)
}

type extractionJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExtractionJobRepo(db *gorm.DB, baseLog *logger.Logger) ExtractionJobRepo {
	return &extractionJobRepo{db: db, log: baseLog.With("repo", "ExtractionJobRepo")}
}

func (r *extractionJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.ExtractionJob) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil || job.UserID == uuid.Nil {
		return nil
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = types.ExtractionPending
	}
	return transaction.WithContext(ctx).Create(job).Error
}

func (r *extractionJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ExtractionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.ExtractionJob
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

func (r *extractionJobRepo) MarkRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.ExtractionJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     types.ExtractionRunning,
			"started_at": now,
			"updated_at": now,
		}).Error
}

func (r *extractionJobRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, itemsExtracted int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.ExtractionJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          types.ExtractionCompleted,
			"items_extracted": itemsExtracted,
			"completed_at":    now,
			"updated_at":      now,
		}).Error
}

func (r *extractionJobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errorMessage string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.ExtractionJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        types.ExtractionFailed,
			"error_message": errorMessage,
			"completed_at":  now,
			"updated_at":    now,
		}).Error
}

func (r *extractionJobRepo) GetRecentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ExtractionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ExtractionJob
	if userID == uuid.Nil {
		return results, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
