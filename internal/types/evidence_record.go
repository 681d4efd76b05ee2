package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EvidenceRecord keeps the latest evidence for one (user, platform, feature,
// dimension). Upserts replace the row; there is no history beyond the
// current value.
type EvidenceRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_evidence_record,unique,priority:1" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Platform    string         `gorm:"not null;index:idx_evidence_record,unique,priority:2" json:"platform"`
	Feature     string         `gorm:"not null;index:idx_evidence_record,unique,priority:3" json:"feature"`
	Dimension   string         `gorm:"not null;index:idx_evidence_record,unique,priority:4" json:"dimension"`
	Value       float64        `gorm:"column:value;not null" json:"value"`
	RawValue    datatypes.JSON `gorm:"type:jsonb;column:raw_value" json:"raw_value,omitempty"`
	Correlation float64        `gorm:"column:correlation;not null" json:"correlation"`
	EffectSize  string         `gorm:"column:effect_size" json:"effect_size"`
	Description string         `gorm:"column:description" json:"description"`
	Citation    string         `gorm:"column:citation" json:"citation"`
	Impact      float64        `gorm:"column:impact;not null" json:"impact"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (EvidenceRecord) TableName() string { return "evidence_record" }
