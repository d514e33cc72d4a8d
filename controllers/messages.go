package controllers

import (
	"errors"
	"net/http"

	"selene/chat"
	"selene/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type SendMessageRequest struct {
	Content         string `json:"content" form:"content"`
	ParentMessageID string `json:"parent_message_id" form:"parent_message_id"`
}

// SendMessage appends the user's message and runs the assistant pipeline.
// A quota refusal is a 429 carrying the canned reply; the message itself is
// already saved by then.
func SendMessage(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	id, ok := ParamUUID(c, "id")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := orchestrator.Respond(c.Request.Context(), chat.RespondInput{
		ConversationID:  id,
		UserID:          user.ID,
		Content:         req.Content,
		ParentMessageID: req.ParentMessageID,
	})
	if err != nil {
		if errors.Is(err, chat.ErrQuotaExceeded) {
			c.JSON(http.StatusTooManyRequests, result)
			return
		}
		respondChatError(c, err)
		return
	}

	RespondSuccess(c, result)
}

func GetMessages(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	id, ok := ParamUUID(c, "id")
	if !ok {
		return
	}

	if _, err := chatStore.GetConversation(id, user.ID); err != nil {
		respondChatError(c, err)
		return
	}
	messages, err := chatStore.Thread(id)
	if err != nil {
		respondChatError(c, err)
		return
	}
	RespondSuccess(c, messages)
}

func notifyConversationCreated(conv *models.Conversation) {
	if notifier == nil {
		return
	}
	if err := notifier.Emit(models.WEBHOOK_EVENT_CONVERSATION_CREATED, conv); err != nil {
		log.WithField("conversation_id", conv.ID).WithError(err).Error("failed to queue webhook notification")
	}
}

func notifyConversationUpdated(conv *models.Conversation) {
	if notifier == nil {
		return
	}
	if err := notifier.Emit(models.WEBHOOK_EVENT_CONVERSATION_UPDATED, conv); err != nil {
		log.WithField("conversation_id", conv.ID).WithError(err).Error("failed to queue webhook notification")
	}
}
