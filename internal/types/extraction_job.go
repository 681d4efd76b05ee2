package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExtractionJobStatus string

const (
	ExtractionPending   ExtractionJobStatus = "pending"
	ExtractionRunning   ExtractionJobStatus = "running"
	ExtractionCompleted ExtractionJobStatus = "completed"
	ExtractionFailed    ExtractionJobStatus = "failed"
)

// ExtractionJob is the ledger row for one platform extraction run.
type ExtractionJob struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	User           *User               `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Platform       string              `gorm:"not null;index" json:"platform"`
	Status         ExtractionJobStatus `gorm:"column:status;not null;default:pending;index" json:"status"`
	ItemsExtracted int                 `gorm:"column:items_extracted;not null;default:0" json:"items_extracted"`
	ErrorMessage   string              `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedAt      *time.Time          `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time          `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time           `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"deleted_at,omitempty"`
}

func (ExtractionJob) TableName() string { return "extraction_job" }
