package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConnectionStatus string

const (
	ConnectionActive       ConnectionStatus = "active"
	ConnectionNeedsReauth  ConnectionStatus = "needs_reauth"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// PlatformConnection holds a user's OAuth grant for one platform. Tokens are
// stored encrypted; only the token provider service ever decrypts them.
type PlatformConnection struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_platform_connection,unique,priority:1" json:"user_id"`
	User           *User            `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Platform       string           `gorm:"not null;index:idx_platform_connection,unique,priority:2" json:"platform"`
	AccessToken    string           `gorm:"column:access_token" json:"-"`
	RefreshToken   string           `gorm:"column:refresh_token" json:"-"`
	TokenExpiresAt *time.Time       `gorm:"column:token_expires_at" json:"token_expires_at,omitempty"`
	Status         ConnectionStatus `gorm:"column:status;not null;default:active" json:"status"`
	Metadata       datatypes.JSON   `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
}

func (PlatformConnection) TableName() string { return "platform_connection" }
