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

type EvidenceRepo interface {
	UpsertMany(ctx context.Context, tx *gorm.DB, records []*types.EvidenceRecord) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.EvidenceRecord, error)
	GetByUserAndDimension(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dimension string) ([]*types.EvidenceRecord, error)
}

type evidenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceRepo {
	return &evidenceRepo{db: db, log: baseLog.With("repo", "EvidenceRepo")}
}

// UpsertMany replaces each (user, platform, feature, dimension) row with the
// latest evidence in one statement.
func (r *evidenceRepo) UpsertMany(ctx context.Context, tx *gorm.DB, records []*types.EvidenceRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.UpdatedAt = now
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "platform"}, {Name: "feature"}, {Name: "dimension"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"value", "raw_value", "correlation", "effect_size",
				"description", "citation", "impact", "updated_at",
			}),
		}).
		Create(&records).Error
}

func (r *evidenceRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.EvidenceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EvidenceRecord
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("impact DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *evidenceRepo) GetByUserAndDimension(ctx context.Context, tx *gorm.DB, userID uuid.UUID, dimension string) ([]*types.EvidenceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EvidenceRecord
	if userID == uuid.Nil || dimension == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND dimension = ?", userID, dimension).
		Order("impact DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
