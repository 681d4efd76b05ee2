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

type PlatformConnectionRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, conn *types.PlatformConnection) error
	GetByUserAndPlatform(ctx context.Context, tx *gorm.DB, userID uuid.UUID, platform string) (*types.PlatformConnection, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PlatformConnection, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ConnectionStatus) error
	GetUserIDsWithActiveConnections(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
}

type platformConnectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlatformConnectionRepo(db *gorm.DB, baseLog *logger.Logger) PlatformConnectionRepo {
	return &platformConnectionRepo{db: db, log: baseLog.With("repo", "PlatformConnectionRepo")}
}

func (r *platformConnectionRepo) Upsert(ctx context.Context, tx *gorm.DB, conn *types.PlatformConnection) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if conn == nil || conn.UserID == uuid.Nil || conn.Platform == "" {
		return nil
	}
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	conn.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "platform"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token", "refresh_token", "token_expires_at", "status", "metadata", "updated_at",
			}),
		}).
		Create(conn).Error
}

func (r *platformConnectionRepo) GetByUserAndPlatform(ctx context.Context, tx *gorm.DB, userID uuid.UUID, platform string) (*types.PlatformConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || platform == "" {
		return nil, nil
	}
	var row types.PlatformConnection
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
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

func (r *platformConnectionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PlatformConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.PlatformConnection
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("platform ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *platformConnectionRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.ConnectionStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.PlatformConnection{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *platformConnectionRepo) GetUserIDsWithActiveConnections(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.PlatformConnection{}).
		Where("status = ?", types.ConnectionActive).
		Distinct().
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
