package models

import "time"

/************************************************
/**** MARK: WEBHOOK JOB STATUS ****/
/************************************************/
const WEBHOOK_JOB_STATUS_PENDING = "pending"
const WEBHOOK_JOB_STATUS_PROCESSING = "processing"
const WEBHOOK_JOB_STATUS_COMPLETED = "completed"
const WEBHOOK_JOB_STATUS_FAILED = "failed"

/************************************************
/**** MARK: WEBHOOK EVENTS ****/
/************************************************/
const WEBHOOK_EVENT_CONVERSATION_CREATED = "conversation.created"
const WEBHOOK_EVENT_MESSAGE_ADDED = "message.added"
const WEBHOOK_EVENT_CONVERSATION_UPDATED = "conversation.updated"

// WebhookJob is one attempted delivery of a domain event to one registered
// URL. A single event fans out into one job per matching registration, each
// with its own retry budget. Jobs terminate as completed (2xx) or failed
// (attempts exhausted); they are never silently dropped.
//
// Payload holds the event data JSON; the delivery envelope adds event name
// and the firing timestamp (CreatedAt, so retries carry a stable timestamp).
type WebhookJob struct {
	ID           int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	WebhookID    string     `gorm:"not null;index" json:"webhook_id"`
	EventName    string     `gorm:"not null;index" json:"event_name"`
	URL          string     `gorm:"not null" json:"url"`
	Method       string     `gorm:"not null;default:'POST'" json:"method"`
	Payload      string     `gorm:"type:text" json:"payload"`
	Headers      string     `gorm:"type:text" json:"headers"`
	AttemptsMade int        `gorm:"not null;default:0" json:"attempts_made"`
	Status       string     `gorm:"not null;default:'pending';index" json:"status"`
	ScheduledAt  *time.Time `gorm:"index" json:"scheduled_at"`
	ProcessedAt  *time.Time `json:"processed_at"`
	LastError    string     `gorm:"type:text" json:"last_error"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}
