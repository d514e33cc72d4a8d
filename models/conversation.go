package models

import (
	"strings"
	"time"
)

// Maximum preview length in runes, before the ellipsis marker.
const PREVIEW_MAX_LENGTH = 50

const PREVIEW_ELLIPSIS = "..."

// PREVIEW_EMPTY_FALLBACK is what list views show while a conversation has no
// assistant reply yet. The column itself stays empty until the first reply.
const PREVIEW_EMPTY_FALLBACK = "No messages yet"

// Conversation is a chat thread between one user and the assistant,
// optionally anchored to a health assessment. AssessmentPattern is a
// point-in-time copy taken when the assessment is linked, not a live join.
type Conversation struct {
	ID                string     `gorm:"primary_key;type:char(36)" json:"id"`
	UserID            int64      `gorm:"not null;index" json:"user_id"`
	AssessmentID      *int64     `gorm:"index" json:"assessment_id"`
	AssessmentPattern string     `gorm:"default:''" json:"assessment_pattern"`
	Preview           string     `gorm:"default:''" json:"preview"`
	CreatedAt         *time.Time `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
	DeletedAt         *time.Time `gorm:"index" json:"deleted_at"`
}

// TruncatePreview derives the stored preview from assistant text.
// Idempotent: feeding the output back in yields the same string.
func TruncatePreview(content string, max int) string {
	if max <= 0 {
		max = PREVIEW_MAX_LENGTH
	}
	trimmed := strings.TrimSpace(content)
	runes := []rune(trimmed)
	if len(runes) <= max {
		return trimmed
	}
	// Already-truncated input keeps its marker instead of growing a second one.
	if len(runes) == max+len([]rune(PREVIEW_ELLIPSIS)) && strings.HasSuffix(trimmed, PREVIEW_ELLIPSIS) {
		return trimmed
	}
	return string(runes[:max]) + PREVIEW_ELLIPSIS
}

// DisplayPreview is the list-view rendering of the stored column.
func (c Conversation) DisplayPreview() string {
	if strings.TrimSpace(c.Preview) == "" {
		return PREVIEW_EMPTY_FALLBACK
	}
	return c.Preview
}
