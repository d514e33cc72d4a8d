package models

import "time"

/************************************************
/**** MARK: MESSAGE ROLES ****/
/************************************************/
const MESSAGE_ROLE_USER = "user"
const MESSAGE_ROLE_ASSISTANT = "assistant"

// Message is one utterance inside a conversation. Messages form a singly
// linked chain per conversation: ParentMessageID points at the previous
// message's id and is empty only for the first message. The link is resolved
// server-side on insert, never taken from the caller as-is.
//
// UserID is 0 for assistant-authored messages.
type Message struct {
	ID              string     `gorm:"primary_key;type:char(36)" json:"id"`
	ConversationID  string     `gorm:"not null;type:char(36);index" json:"conversation_id"`
	UserID          int64      `gorm:"not null;default:0;index" json:"user_id"`
	Role            string     `gorm:"not null" json:"role"`
	Content         string     `gorm:"type:text" json:"content"`
	ParentMessageID string     `gorm:"type:char(36);default:''" json:"parent_message_id"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
	EditedAt        *time.Time `json:"edited_at"`
	DeletedAt       *time.Time `gorm:"index" json:"deleted_at"`
}

func (m Message) IsAssistant() bool {
	return m.Role == MESSAGE_ROLE_ASSISTANT
}
