package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PatternObservation is the append-only audit trail behind the upserted
// pattern rows: one row per (pattern, trigger event), recording whether and
// when the expected response was seen.
type PatternObservation struct {
	ID               uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatternID        uuid.UUID          `gorm:"type:uuid;not null;index:idx_pattern_observation,unique,priority:1" json:"pattern_id"`
	Pattern          *BehavioralPattern `gorm:"constraint:OnDelete:CASCADE;foreignKey:PatternID;references:ID" json:"pattern,omitempty"`
	TriggerEventID   uuid.UUID          `gorm:"type:uuid;not null;index:idx_pattern_observation,unique,priority:2" json:"trigger_event_id"`
	ResponseObserved bool               `gorm:"column:response_observed;not null;default:false" json:"response_observed"`
	ResponseAt       *time.Time         `gorm:"column:response_at" json:"response_at,omitempty"`
	OffsetMinutes    *int               `gorm:"column:offset_minutes" json:"offset_minutes,omitempty"`
	ObservedAt       time.Time          `gorm:"column:observed_at;not null;default:now()" json:"observed_at"`
	CreatedAt        time.Time          `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt        gorm.DeletedAt     `gorm:"index" json:"deleted_at,omitempty"`
}

func (PatternObservation) TableName() string { return "pattern_observation" }
