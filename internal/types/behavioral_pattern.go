package types

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pattern types, derived from the trigger-to-response time offset.
const (
	PatternPreEventRitual    = "pre_event_ritual"
	PatternPostEventRecovery = "post_event_recovery"
	PatternStressResponse    = "stress_response"
)

// BehavioralPattern is a recurring trigger-to-response association.
// TriggerKeywords is stored as a sorted comma-joined list so it can take part
// in the natural uniqueness key; re-detection upserts on that key instead of
// duplicating rows. ConfidenceScore is always recomputed from counts and
// observation span, never set directly by callers.
type BehavioralPattern struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index:idx_behavioral_pattern,unique,priority:1" json:"user_id"`
	User              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	PatternType       string         `gorm:"column:pattern_type;not null;index:idx_behavioral_pattern,unique,priority:2" json:"pattern_type"`
	TriggerKeywords   string         `gorm:"column:trigger_keywords;not null;default:'';index:idx_behavioral_pattern,unique,priority:3" json:"trigger_keywords"`
	ResponsePlatform  string         `gorm:"column:response_platform;not null;index:idx_behavioral_pattern,unique,priority:4" json:"response_platform"`
	ResponseType      string         `gorm:"column:response_type;not null;index:idx_behavioral_pattern,unique,priority:5" json:"response_type"`
	TimeOffsetMinutes int            `gorm:"column:time_offset_minutes;not null;index:idx_behavioral_pattern,unique,priority:6" json:"time_offset_minutes"`
	TimeWindowMinutes int            `gorm:"column:time_window_minutes;not null;default:15" json:"time_window_minutes"`
	OccurrenceCount   int            `gorm:"column:occurrence_count;not null;default:0" json:"occurrence_count"`
	ConsistencyRate   float64        `gorm:"column:consistency_rate;not null;default:0" json:"consistency_rate"`
	ConfidenceScore   float64        `gorm:"column:confidence_score;not null;default:0;index" json:"confidence_score"`
	FirstObservedAt   time.Time      `gorm:"column:first_observed_at" json:"first_observed_at"`
	LastObservedAt    time.Time      `gorm:"column:last_observed_at" json:"last_observed_at"`
	IsActive          bool           `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (BehavioralPattern) TableName() string { return "behavioral_pattern" }

// JoinKeywords canonicalizes a keyword set for the uniqueness key.
func JoinKeywords(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func (p *BehavioralPattern) KeywordList() []string {
	if p.TriggerKeywords == "" {
		return nil
	}
	return strings.Split(p.TriggerKeywords, ",")
}
