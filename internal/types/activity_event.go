package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityEvent is one timestamped action on a tracked platform (a played
// track, a commit, a watched video). Immutable once stored.
type ActivityEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Platform   string         `gorm:"not null;index" json:"platform"`
	DataType   string         `gorm:"column:data_type;not null;index" json:"data_type"`
	Payload    datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	OccurredAt time.Time      `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ActivityEvent) TableName() string { return "activity_event" }
