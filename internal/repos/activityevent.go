package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/types"
)

type ActivityEventRepo interface {
	CreateMany(ctx context.Context, tx *gorm.DB, events []*types.ActivityEvent) error
	GetByUserAndRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.ActivityEvent, error)
	GetByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.ActivityEvent, error)
}

type activityEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityEventRepo(db *gorm.DB, baseLog *logger.Logger) ActivityEventRepo {
	return &activityEventRepo{db: db, log: baseLog.With("repo", "ActivityEventRepo")}
}

func (r *activityEventRepo) CreateMany(ctx context.Context, tx *gorm.DB, events []*types.ActivityEvent) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return nil
	}
	for _, ev := range events {
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
	}
	return transaction.WithContext(ctx).CreateInBatches(&events, 200).Error
}

func (r *activityEventRepo) GetByUserAndRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.ActivityEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ActivityEvent
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND occurred_at >= ? AND occurred_at < ?", userID, from, to).
		Order("occurred_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *activityEventRepo) GetByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.ActivityEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ActivityEvent
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND occurred_at >= ?", userID, since).
		Order("occurred_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
