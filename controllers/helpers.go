package controllers

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"selene/chat"

	"github.com/gin-gonic/gin"
)

func ParamID(c *gin.Context, name string) (int64, bool) {
	v := c.Param(name)
	if v == "" {
		RespondError(c, name+" is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, name+" is invalid", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// ParamUUID reads an opaque string id path param (conversations, messages).
func ParamUUID(c *gin.Context, name string) (string, bool) {
	v := strings.TrimSpace(c.Param(name))
	if v == "" {
		RespondError(c, name+" is required", http.StatusBadRequest)
		return "", false
	}
	return v, true
}

// respondChatError maps the chat error taxonomy onto HTTP codes.
func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNotOwner):
		RespondError(c, "conversation does not belong to you", http.StatusForbidden)
	case errors.Is(err, chat.ErrNotFound):
		RespondError(c, "not found", http.StatusNotFound)
	case errors.Is(err, chat.ErrEmptyContent):
		RespondError(c, "content must not be empty", http.StatusBadRequest)
	case errors.Is(err, chat.ErrGenerationFailed):
		RespondError(c, "could not generate a reply, your message was saved", http.StatusBadGateway)
	default:
		RespondError(c, err.Error(), http.StatusInternalServerError)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	s := getenv(k, "")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
