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

type TriggerEventRepo interface {
	UpsertMany(ctx context.Context, tx *gorm.DB, events []*types.TriggerEvent) error
	GetByUserAndRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.TriggerEvent, error)
	GetUpcoming(ctx context.Context, tx *gorm.DB, userID uuid.UUID, within time.Duration) ([]*types.TriggerEvent, error)
}

type triggerEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTriggerEventRepo(db *gorm.DB, baseLog *logger.Logger) TriggerEventRepo {
	return &triggerEventRepo{db: db, log: baseLog.With("repo", "TriggerEventRepo")}
}

// UpsertMany keys on (user_id, external_id) so repeated calendar syncs refresh
// rather than duplicate events.
func (r *triggerEventRepo) UpsertMany(ctx context.Context, tx *gorm.DB, events []*types.TriggerEvent) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, ev := range events {
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		ev.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"summary", "description", "start_time", "end_time",
				"attendee_count", "classified_type", "keywords", "updated_at",
			}),
		}).
		Create(&events).Error
}

func (r *triggerEventRepo) GetByUserAndRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.TriggerEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TriggerEvent
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, from, to).
		Order("start_time ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *triggerEventRepo) GetUpcoming(ctx context.Context, tx *gorm.DB, userID uuid.UUID, within time.Duration) ([]*types.TriggerEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TriggerEvent
	if userID == uuid.Nil || within <= 0 {
		return results, nil
	}
	now := time.Now().UTC()
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND start_time >= ? AND start_time < ?", userID, now, now.Add(within)).
		Order("start_time ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
