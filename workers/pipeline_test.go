package workers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"selene/chat"
	"selene/config"
	"selene/models"
	"selene/ratelimit"
	"selene/webhooks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercises the whole path: an incoming user message becomes an assistant
// reply, a stored preview, and delivered webhook notifications, with the
// first delivery attempt failing and succeeding on retry.
func TestMessagePipelineEndToEnd(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gdb := newTestDB(t)

	registry, err := webhooks.NewRegistry([]config.WebhookRegistration{
		{URL: server.URL, Event: models.WEBHOOK_EVENT_MESSAGE_ADDED},
	})
	require.NoError(t, err)
	dispatcher := webhooks.NewDispatcher(gdb, registry)

	assessment := models.Assessment{UserID: 7, CycleLengthDays: 28, PeriodLengthDays: 6, FlowLevel: 5}
	assessment.Pattern = assessment.ComputePattern()
	require.NoError(t, gdb.Create(&assessment).Error)

	store := chat.NewStore(gdb, 50)
	limiter := ratelimit.NewLimiter(10)
	generate := func(ctx context.Context, userText string, history []models.Message, pattern string) (string, error) {
		if pattern != models.ASSESSMENT_PATTERN_HEAVY {
			return "", fmt.Errorf("expected heavy pattern, got %q", pattern)
		}
		return "Cramps with heavy flow are common. " + strings.Repeat("Rest and hydration help. ", 4), nil
	}
	orch := chat.NewOrchestrator(store, limiter, generate, dispatcher)

	conv, err := store.CreateConversation(7, &assessment.ID)
	require.NoError(t, err)

	result, err := orch.Respond(context.Background(), chat.RespondInput{
		ConversationID: conv.ID,
		UserID:         7,
		Content:        "I have cramps",
	})
	require.NoError(t, err)
	require.NotNil(t, result.AssistantMessage)

	got, err := store.GetConversation(conv.ID, 7)
	require.NoError(t, err)
	assert.Len(t, []rune(got.Preview), 50+len(models.PREVIEW_ELLIPSIS))
	assert.True(t, strings.HasSuffix(got.Preview, models.PREVIEW_ELLIPSIS))

	// one job per message.added event: the user's message and the reply
	var jobs []models.WebhookJob
	require.NoError(t, gdb.Order("id asc").Find(&jobs).Error)
	require.Len(t, jobs, 2)

	cfg := webhookTestConfig()
	p := NewWebhookProcessor(gdb, cfg)

	p.ProcessDue()
	p.ProcessDue()

	first := reloadJob(t, gdb, jobs[0].ID)
	second := reloadJob(t, gdb, jobs[1].ID)
	assert.Equal(t, models.WEBHOOK_JOB_STATUS_COMPLETED, first.Status)
	assert.Equal(t, 2, first.AttemptsMade)
	assert.Equal(t, models.WEBHOOK_JOB_STATUS_COMPLETED, second.Status)
	assert.Equal(t, 1, second.AttemptsMade)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}
