// Package chat owns the conversation/message pipeline: the store enforcing
// thread invariants and the orchestrator producing assistant replies.
package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"selene/models"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"
)

// Store is the single point of truth for conversations and messages. Every
// write re-verifies ownership against the DB; nothing is cached.
type Store struct {
	db         *gorm.DB
	previewMax int

	// Per-conversation append serialization. Two concurrent appends must not
	// both claim the same parent message.
	convLocks sync.Map // conversation id -> *sync.Mutex
}

// ConversationSummary is the list-view projection of a conversation.
type ConversationSummary struct {
	ID                string     `json:"id"`
	AssessmentID      *int64     `json:"assessment_id"`
	AssessmentPattern string     `json:"assessment_pattern"`
	Preview           string     `json:"preview"`
	CreatedAt         *time.Time `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
}

func NewStore(db *gorm.DB, previewMax int) *Store {
	if previewMax <= 0 {
		previewMax = models.PREVIEW_MAX_LENGTH
	}
	return &Store{db: db, previewMax: previewMax}
}

func (s *Store) lockConversation(id string) func() {
	v, _ := s.convLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// getOwned loads a live conversation and checks ownership.
func (s *Store) getOwned(conversationID string, userID int64) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.Where("id = ?", conversationID).First(&conv).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, ErrNotOwner
	}
	return &conv, nil
}

// GetConversation returns a conversation owned by userID.
func (s *Store) GetConversation(conversationID string, userID int64) (*models.Conversation, error) {
	return s.getOwned(conversationID, userID)
}

// CreateConversation starts a new thread, optionally linked to an assessment
// at creation. The assessment's pattern is copied best-effort: a failed
// lookup logs a warning and the conversation is created without a pattern.
func (s *Store) CreateConversation(userID int64, assessmentID *int64) (*models.Conversation, error) {
	conv := &models.Conversation{
		ID:     uuid.NewString(),
		UserID: userID,
	}
	if assessmentID != nil {
		conv.AssessmentID = assessmentID
		if a, err := s.FindAssessment(*assessmentID); err != nil {
			log.WithFields(log.Fields{
				"conversation_id": conv.ID,
				"assessment_id":   *assessmentID,
			}).WithError(err).Warn("assessment lookup failed, linking without pattern")
		} else {
			conv.AssessmentPattern = a.Pattern
		}
	}
	if err := s.db.Create(conv).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// FindAssessment is the read-only assessment lookup used by link operations.
func (s *Store) FindAssessment(id int64) (*models.Assessment, error) {
	var a models.Assessment
	if err := s.db.First(&a, id).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	return &a, nil
}

// LinkAssessment attaches an assessment to a conversation and copies its
// pattern as a point-in-time snapshot. Idempotent; a failed pattern lookup
// still links (warned, not fatal).
func (s *Store) LinkAssessment(conversationID string, userID, assessmentID int64) error {
	if _, err := s.getOwned(conversationID, userID); err != nil {
		return err
	}

	pattern := ""
	if a, err := s.FindAssessment(assessmentID); err != nil {
		log.WithFields(log.Fields{
			"conversation_id": conversationID,
			"assessment_id":   assessmentID,
		}).WithError(err).Warn("assessment lookup failed, linking without pattern")
	} else {
		pattern = a.Pattern
	}

	now := time.Now()
	updates := map[string]interface{}{
		"assessment_id":      assessmentID,
		"assessment_pattern": pattern,
		"updated_at":         now,
	}
	if err := s.db.Model(&models.Conversation{}).Where("id = ?", conversationID).Updates(updates).Error; err != nil {
		return fmt.Errorf("link assessment: %w", err)
	}
	return nil
}

// latestMessage returns the newest live message of a conversation, or nil.
func (s *Store) latestMessage(conversationID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at desc, id desc").
		First(&msg).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest message: %w", err)
	}
	return &msg, nil
}

// AppendUserMessage adds a user message to the thread. The parent link is
// resolved server-side: whatever the caller sent, the stored parent is the
// conversation's true latest message at insertion time.
func (s *Store) AppendUserMessage(conversationID string, userID int64, content, parentMessageID string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	unlock := s.lockConversation(conversationID)
	defer unlock()

	if _, err := s.getOwned(conversationID, userID); err != nil {
		return nil, err
	}

	latest, err := s.latestMessage(conversationID)
	if err != nil {
		return nil, err
	}
	parent := ""
	if latest != nil {
		parent = latest.ID
	}
	if parentMessageID != "" && parentMessageID != parent {
		log.WithFields(log.Fields{
			"conversation_id": conversationID,
			"claimed_parent":  parentMessageID,
			"actual_parent":   parent,
		}).Debug("repairing client-supplied parent link")
	}

	msg := &models.Message{
		ID:              uuid.NewString(),
		ConversationID:  conversationID,
		UserID:          userID,
		Role:            models.MESSAGE_ROLE_USER,
		Content:         content,
		ParentMessageID: parent,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	s.touchConversation(conversationID)
	return msg, nil
}

// AppendAssistantMessage adds a system-authored reply, chained after the
// thread's current latest message.
func (s *Store) AppendAssistantMessage(conversationID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	unlock := s.lockConversation(conversationID)
	defer unlock()

	latest, err := s.latestMessage(conversationID)
	if err != nil {
		return nil, err
	}
	parent := ""
	if latest != nil {
		parent = latest.ID
	}

	msg := &models.Message{
		ID:              uuid.NewString(),
		ConversationID:  conversationID,
		UserID:          0,
		Role:            models.MESSAGE_ROLE_ASSISTANT,
		Content:         content,
		ParentMessageID: parent,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}
	s.touchConversation(conversationID)
	return msg, nil
}

func (s *Store) touchConversation(conversationID string) {
	if err := s.db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error; err != nil {
		log.WithField("conversation_id", conversationID).WithError(err).Warn("failed to bump conversation updated_at")
	}
}

// UpdatePreview recomputes the stored preview from assistant text.
// Best-effort cache: callers treat failures as non-fatal.
func (s *Store) UpdatePreview(conversationID, assistantContent string) error {
	preview := models.TruncatePreview(assistantContent, s.previewMax)
	if err := s.db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("preview", preview).Error; err != nil {
		return fmt.Errorf("update preview: %w", err)
	}
	return nil
}

// Thread returns the live messages of a conversation in chain order.
func (s *Store) Thread(conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	if err := s.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at asc, id asc").
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return msgs, nil
}

// ListForUser returns conversation summaries for list views. Preview falls
// back to a readable placeholder and updated_at prefers the last message's
// timestamp when messages are more recent than the row itself.
func (s *Store) ListForUser(userID int64) ([]ConversationSummary, error) {
	var convs []models.Conversation
	if err := s.db.
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summary := ConversationSummary{
			ID:                c.ID,
			AssessmentID:      c.AssessmentID,
			AssessmentPattern: c.AssessmentPattern,
			Preview:           c.DisplayPreview(),
			CreatedAt:         c.CreatedAt,
			UpdatedAt:         c.UpdatedAt,
		}
		if latest, err := s.latestMessage(c.ID); err == nil && latest != nil && latest.CreatedAt != nil {
			if summary.UpdatedAt == nil || latest.CreatedAt.After(*summary.UpdatedAt) {
				summary.UpdatedAt = latest.CreatedAt
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// DeleteConversation soft-deletes a thread for its owner. Rows are retained;
// gorm's DeletedAt handling hides them from queries.
func (s *Store) DeleteConversation(conversationID string, userID int64) error {
	if _, err := s.getOwned(conversationID, userID); err != nil {
		return err
	}
	if err := s.db.Where("id = ?", conversationID).Delete(&models.Conversation{}).Error; err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}
