package chat

import (
	"context"
	"fmt"

	"selene/models"
	"selene/ratelimit"

	log "github.com/sirupsen/logrus"
)

// GenerateFunc is the opaque text-generation collaborator. History is the
// thread so far (oldest first); assessmentPattern may be empty.
type GenerateFunc func(ctx context.Context, userText string, history []models.Message, assessmentPattern string) (string, error)

// Notifier queues domain events for webhook fan-out. Delivery is
// fire-and-forget relative to the request path.
type Notifier interface {
	Emit(event string, data interface{}) error
}

// Orchestrator turns an incoming user message into an assistant reply:
// quota check, generation, persistence, preview update, notification.
type Orchestrator struct {
	store    *Store
	limiter  *ratelimit.Limiter
	generate GenerateFunc
	notifier Notifier
}

type RespondInput struct {
	ConversationID  string
	UserID          int64
	Content         string
	ParentMessageID string
}

type RespondResult struct {
	UserMessage      *models.Message `json:"user_message"`
	AssistantMessage *models.Message `json:"assistant_message,omitempty"`
	Reply            string          `json:"reply"`
	QuotaExceeded    bool            `json:"quota_exceeded,omitempty"`
}

func NewOrchestrator(store *Store, limiter *ratelimit.Limiter, generate GenerateFunc, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		store:    store,
		limiter:  limiter,
		generate: generate,
		notifier: notifier,
	}
}

// Respond runs the full pipeline for one user message.
//
// The user's message is persisted before the quota check, so a quota refusal
// or a generation failure never loses what the user wrote. Exactly one
// assistant message is inserted per successful invocation. A preview-update
// failure is logged and swallowed: the thread is the source of truth, the
// preview is a cache.
func (o *Orchestrator) Respond(ctx context.Context, in RespondInput) (*RespondResult, error) {
	// Ownership is verified inside the append, before any generation work.
	userMsg, err := o.store.AppendUserMessage(in.ConversationID, in.UserID, in.Content, in.ParentMessageID)
	if err != nil {
		return nil, err
	}
	o.emit(models.WEBHOOK_EVENT_MESSAGE_ADDED, userMsg)

	result := &RespondResult{UserMessage: userMsg}

	if !o.limiter.CanMakeCall() {
		result.Reply = o.limiter.LimitExceededMessage()
		result.QuotaExceeded = true
		log.WithFields(log.Fields{
			"conversation_id": in.ConversationID,
			"user_id":         in.UserID,
		}).Warn("generation quota exhausted, returning canned reply")
		return result, ErrQuotaExceeded
	}

	conv, err := o.store.GetConversation(in.ConversationID, in.UserID)
	if err != nil {
		return result, err
	}
	history, err := o.store.Thread(in.ConversationID)
	if err != nil {
		return result, err
	}

	o.limiter.IncrementCallCount()
	replyText, err := o.generate(ctx, userMsg.Content, history, conv.AssessmentPattern)
	if err != nil {
		log.WithFields(log.Fields{
			"conversation_id": in.ConversationID,
			"message_id":      userMsg.ID,
		}).WithError(err).Error("assistant generation failed")
		return result, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	assistantMsg, err := o.store.AppendAssistantMessage(in.ConversationID, replyText)
	if err != nil {
		return result, err
	}
	result.AssistantMessage = assistantMsg
	result.Reply = assistantMsg.Content

	if err := o.store.UpdatePreview(in.ConversationID, assistantMsg.Content); err != nil {
		log.WithField("conversation_id", in.ConversationID).WithError(err).Warn("preview update failed")
	}

	o.emit(models.WEBHOOK_EVENT_MESSAGE_ADDED, assistantMsg)
	o.emit(models.WEBHOOK_EVENT_CONVERSATION_UPDATED, map[string]interface{}{
		"conversation_id": in.ConversationID,
		"preview":         models.TruncatePreview(assistantMsg.Content, o.store.previewMax),
	})

	return result, nil
}

func (o *Orchestrator) emit(event string, data interface{}) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Emit(event, data); err != nil {
		log.WithField("event", event).WithError(err).Error("failed to queue webhook notification")
	}
}
