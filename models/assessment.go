package models

import "time"

/************************************************
/**** MARK: ASSESSMENT PATTERNS ****/
/************************************************/
const ASSESSMENT_PATTERN_NORMAL = "normal"
const ASSESSMENT_PATTERN_HEAVY = "heavy"
const ASSESSMENT_PATTERN_LIGHT = "light"
const ASSESSMENT_PATTERN_IRREGULAR = "irregular"

// Assessment is a completed health questionnaire. Pattern is computed from
// the answers at creation time and may be empty when the answers were
// inconclusive.
type Assessment struct {
	ID               int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID           int64      `gorm:"not null;index" json:"user_id"`
	CycleLengthDays  int        `gorm:"not null;default:0" json:"cycle_length_days"`
	PeriodLengthDays int        `gorm:"not null;default:0" json:"period_length_days"`
	FlowLevel        int        `gorm:"not null;default:0" json:"flow_level"` // 1 (light) .. 5 (very heavy)
	Symptoms         string     `gorm:"type:text" json:"symptoms"`
	Pattern          string     `gorm:"default:''" json:"pattern"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// ComputePattern maps the raw answers onto a categorical pattern.
// Flow dominates: very heavy or very light flow is reported before cycle
// irregularity.
func (a Assessment) ComputePattern() string {
	switch {
	case a.FlowLevel >= 4:
		return ASSESSMENT_PATTERN_HEAVY
	case a.FlowLevel == 1 && a.PeriodLengthDays > 0 && a.PeriodLengthDays <= 2:
		return ASSESSMENT_PATTERN_LIGHT
	case a.CycleLengthDays > 0 && (a.CycleLengthDays < 21 || a.CycleLengthDays > 35):
		return ASSESSMENT_PATTERN_IRREGULAR
	case a.CycleLengthDays == 0 && a.FlowLevel == 0:
		return ""
	default:
		return ASSESSMENT_PATTERN_NORMAL
	}
}
