package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"selene/chat"
	"selene/db"
	"selene/models"
	"selene/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { gdb.Close() })
	require.NoError(t, db.AutoMigrate(gdb).Error)
	return gdb
}

type captureNotifier struct {
	events []string
}

func (n *captureNotifier) Emit(event string, data interface{}) error {
	n.events = append(n.events, event)
	return nil
}

func TestLinkAssessmentEmitsConversationUpdated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gdb := newTestDB(t)

	store := chat.NewStore(gdb, 50)
	events := &captureNotifier{}
	SetPipeline(store, nil, ratelimit.NewLimiter(10), events)

	user := models.User{Name: "Ana", Email: "ana@example.com", Status: models.USER_STATUS_AVAILABLE}
	require.NoError(t, gdb.Create(&user).Error)

	assessment := models.Assessment{UserID: user.ID, CycleLengthDays: 28, PeriodLengthDays: 5, FlowLevel: 5}
	assessment.Pattern = assessment.ComputePattern()
	require.NoError(t, gdb.Create(&assessment).Error)

	conv, err := store.CreateConversation(user.ID, nil)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/conversations/:id/link-assessment", func(c *gin.Context) {
		c.Set(ctxUserKey, user)
	}, LinkAssessment)

	body, _ := json.Marshal(gin.H{"assessment_id": assessment.ID})
	req := httptest.NewRequest(http.MethodPost, "/conversations/"+conv.ID+"/link-assessment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, events.events, models.WEBHOOK_EVENT_CONVERSATION_UPDATED)

	got, err := store.GetConversation(conv.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ASSESSMENT_PATTERN_HEAVY, got.AssessmentPattern)
}
