package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Trigger classification buckets, in matching priority order.
const (
	TriggerHighStakes = "high_stakes"
	TriggerFocusWork  = "focus_work"
	TriggerSocial     = "social"
	TriggerMeeting    = "meeting"
	TriggerOther      = "other"
)

// TriggerEvent mirrors one calendar-like event read from the external
// calendar collaborator. Immutable once stored.
type TriggerEvent struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_trigger_event,unique,priority:1" json:"user_id"`
	User           *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ExternalID     string         `gorm:"column:external_id;not null;index:idx_trigger_event,unique,priority:2" json:"external_id"`
	Summary        string         `gorm:"column:summary" json:"summary"`
	Description    string         `gorm:"column:description" json:"description"`
	StartTime      time.Time      `gorm:"column:start_time;not null;index" json:"start_time"`
	EndTime        *time.Time     `gorm:"column:end_time" json:"end_time,omitempty"`
	AttendeeCount  int            `gorm:"column:attendee_count;not null;default:0" json:"attendee_count"`
	ClassifiedType string         `gorm:"column:classified_type;index" json:"classified_type"`
	Keywords       datatypes.JSON `gorm:"type:jsonb;column:keywords" json:"keywords,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TriggerEvent) TableName() string { return "trigger_event" }
