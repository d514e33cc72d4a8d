package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type CreateConversationRequest struct {
	AssessmentID *int64 `json:"assessment_id" form:"assessment_id"`
}

func CreateConversation(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}

	var req CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	conv, err := chatStore.CreateConversation(user.ID, req.AssessmentID)
	if err != nil {
		respondChatError(c, err)
		return
	}
	notifyConversationCreated(conv)
	RespondSuccess(c, conv)
}

func GetConversations(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}

	summaries, err := chatStore.ListForUser(user.ID)
	if err != nil {
		respondChatError(c, err)
		return
	}
	RespondSuccess(c, summaries)
}

func GetConversationByID(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	id, ok := ParamUUID(c, "id")
	if !ok {
		return
	}

	conv, err := chatStore.GetConversation(id, user.ID)
	if err != nil {
		respondChatError(c, err)
		return
	}
	messages, err := chatStore.Thread(id)
	if err != nil {
		respondChatError(c, err)
		return
	}

	RespondSuccess(c, gin.H{
		"conversation": conv,
		"messages":     messages,
	})
}

type LinkAssessmentRequest struct {
	AssessmentID int64 `json:"assessment_id" form:"assessment_id"`
}

func LinkAssessment(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	id, ok := ParamUUID(c, "id")
	if !ok {
		return
	}

	var req LinkAssessmentRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AssessmentID <= 0 {
		RespondError(c, "assessment_id is required", http.StatusBadRequest)
		return
	}

	if err := chatStore.LinkAssessment(id, user.ID, req.AssessmentID); err != nil {
		respondChatError(c, err)
		return
	}
	if conv, err := chatStore.GetConversation(id, user.ID); err == nil {
		notifyConversationUpdated(conv)
	}
	RespondSuccess(c, gin.H{"linked": true})
}

func DeleteConversation(c *gin.Context) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "not authenticated", http.StatusUnauthorized)
		return
	}
	id, ok := ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := chatStore.DeleteConversation(id, user.ID); err != nil {
		respondChatError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"deleted": true})
}
