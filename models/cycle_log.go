package models

import "time"

// CycleLog is one recorded period. EndDate stays nil while the period is
// ongoing.
type CycleLog struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID    int64      `gorm:"not null;index" json:"user_id"`
	StartDate *time.Time `gorm:"not null" json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	FlowLevel int        `gorm:"not null;default:0" json:"flow_level"`
	Symptoms  string     `gorm:"type:text" json:"symptoms"`
	Notes     string     `gorm:"type:text" json:"notes"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at"`
}
