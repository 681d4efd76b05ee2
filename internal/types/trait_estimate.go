package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Big Five dimension identifiers.
const (
	DimensionOpenness          = "openness"
	DimensionConscientiousness = "conscientiousness"
	DimensionExtraversion      = "extraversion"
	DimensionAgreeableness     = "agreeableness"
	DimensionNeuroticism       = "neuroticism"
)

func Dimensions() []string {
	return []string{
		DimensionOpenness,
		DimensionConscientiousness,
		DimensionExtraversion,
		DimensionAgreeableness,
		DimensionNeuroticism,
	}
}

// TraitEstimate is the running trait state for one user. Scores live on a
// 0-100 scale where 50 is the neutral prior, not a discovered value.
// EvidenceWeight only ever grows; it dampens the pull of new observations.
type TraitEstimate struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Openness          float64        `gorm:"column:openness;not null;default:50" json:"openness"`
	Conscientiousness float64        `gorm:"column:conscientiousness;not null;default:50" json:"conscientiousness"`
	Extraversion      float64        `gorm:"column:extraversion;not null;default:50" json:"extraversion"`
	Agreeableness     float64        `gorm:"column:agreeableness;not null;default:50" json:"agreeableness"`
	Neuroticism       float64        `gorm:"column:neuroticism;not null;default:50" json:"neuroticism"`
	EvidenceWeight    float64        `gorm:"column:evidence_weight;not null;default:1" json:"evidence_weight"`
	TotalSignalCount  int            `gorm:"column:total_signal_count;not null;default:0" json:"total_signal_count"`
	LastUpdatedAt     *time.Time     `gorm:"column:last_updated_at" json:"last_updated_at,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (TraitEstimate) TableName() string { return "trait_estimate" }

// NewNeutralEstimate is the lazy prior created on a user's first signal.
func NewNeutralEstimate(userID uuid.UUID) *TraitEstimate {
	return &TraitEstimate{
		ID:                uuid.New(),
		UserID:            userID,
		Openness:          50,
		Conscientiousness: 50,
		Extraversion:      50,
		Agreeableness:     50,
		Neuroticism:       50,
		EvidenceWeight:    1.0,
	}
}

func (e *TraitEstimate) Score(dimension string) float64 {
	switch dimension {
	case DimensionOpenness:
		return e.Openness
	case DimensionConscientiousness:
		return e.Conscientiousness
	case DimensionExtraversion:
		return e.Extraversion
	case DimensionAgreeableness:
		return e.Agreeableness
	case DimensionNeuroticism:
		return e.Neuroticism
	}
	return 0
}

func (e *TraitEstimate) SetScore(dimension string, score float64) {
	switch dimension {
	case DimensionOpenness:
		e.Openness = score
	case DimensionConscientiousness:
		e.Conscientiousness = score
	case DimensionExtraversion:
		e.Extraversion = score
	case DimensionAgreeableness:
		e.Agreeableness = score
	case DimensionNeuroticism:
		e.Neuroticism = score
	}
}
