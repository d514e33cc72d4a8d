package chat

import (
	"context"
	"errors"
	"testing"

	"selene/models"
	"selene/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	Event string
	Data  interface{}
}

type fakeNotifier struct {
	events []recordedEvent
}

func (f *fakeNotifier) Emit(event string, data interface{}) error {
	f.events = append(f.events, recordedEvent{Event: event, Data: data})
	return nil
}

func (f *fakeNotifier) count(event string) int {
	n := 0
	for _, e := range f.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func staticReply(reply string) GenerateFunc {
	return func(ctx context.Context, userText string, history []models.Message, pattern string) (string, error) {
		return reply, nil
	}
}

func TestRespondSuccess(t *testing.T) {
	store := NewStore(newTestDB(t), 50)
	limiter := ratelimit.NewLimiter(10)
	notifier := &fakeNotifier{}

	orch := NewOrchestrator(store, limiter, staticReply("Warm compresses can help with cramps."), notifier)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	result, err := orch.Respond(context.Background(), RespondInput{
		ConversationID: conv.ID,
		UserID:         1,
		Content:        "I have cramps",
	})
	require.NoError(t, err)
	require.NotNil(t, result.UserMessage)
	require.NotNil(t, result.AssistantMessage)
	assert.Equal(t, "Warm compresses can help with cramps.", result.Reply)
	assert.False(t, result.QuotaExceeded)
	assert.Equal(t, result.UserMessage.ID, result.AssistantMessage.ParentMessageID)

	msgs, err := store.Thread(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MESSAGE_ROLE_USER, msgs[0].Role)
	assert.Equal(t, models.MESSAGE_ROLE_ASSISTANT, msgs[1].Role)

	got, err := store.GetConversation(conv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Warm compresses can help with cramps.", got.Preview)

	assert.Equal(t, 2, notifier.count(models.WEBHOOK_EVENT_MESSAGE_ADDED))
	assert.Equal(t, 1, notifier.count(models.WEBHOOK_EVENT_CONVERSATION_UPDATED))
	assert.Equal(t, 1, limiter.UsageStats().CallsToday)
}

func TestRespondQuotaExceededKeepsUserMessage(t *testing.T) {
	store := NewStore(newTestDB(t), 50)
	limiter := ratelimit.NewLimiter(0)
	notifier := &fakeNotifier{}

	called := false
	orch := NewOrchestrator(store, limiter, func(ctx context.Context, userText string, history []models.Message, pattern string) (string, error) {
		called = true
		return "should not run", nil
	}, notifier)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	result, err := orch.Respond(context.Background(), RespondInput{
		ConversationID: conv.ID,
		UserID:         1,
		Content:        "anyone there?",
	})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	require.NotNil(t, result)
	assert.True(t, result.QuotaExceeded)
	assert.Equal(t, limiter.LimitExceededMessage(), result.Reply)
	assert.Nil(t, result.AssistantMessage)
	assert.False(t, called)

	// the user's text survived the refusal
	msgs, err := store.Thread(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MESSAGE_ROLE_USER, msgs[0].Role)
	assert.Equal(t, "anyone there?", msgs[0].Content)

	assert.Equal(t, 1, notifier.count(models.WEBHOOK_EVENT_MESSAGE_ADDED))
	assert.Equal(t, 0, notifier.count(models.WEBHOOK_EVENT_CONVERSATION_UPDATED))
}

func TestRespondGenerationFailureKeepsUserMessage(t *testing.T) {
	store := NewStore(newTestDB(t), 50)
	limiter := ratelimit.NewLimiter(10)

	orch := NewOrchestrator(store, limiter, func(ctx context.Context, userText string, history []models.Message, pattern string) (string, error) {
		return "", errors.New("upstream timeout")
	}, &fakeNotifier{})

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	result, err := orch.Respond(context.Background(), RespondInput{
		ConversationID: conv.ID,
		UserID:         1,
		Content:        "hello",
	})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	require.NotNil(t, result)
	assert.NotNil(t, result.UserMessage)
	assert.Nil(t, result.AssistantMessage)

	msgs, err := store.Thread(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MESSAGE_ROLE_USER, msgs[0].Role)
}

func TestRespondPassesContextToGeneration(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb, 50)
	limiter := ratelimit.NewLimiter(10)

	a := models.Assessment{UserID: 1, CycleLengthDays: 28, PeriodLengthDays: 5, FlowLevel: 5}
	a.Pattern = a.ComputePattern()
	require.NoError(t, gdb.Create(&a).Error)

	var gotPattern string
	var gotHistory int
	orch := NewOrchestrator(store, limiter, func(ctx context.Context, userText string, history []models.Message, pattern string) (string, error) {
		gotPattern = pattern
		gotHistory = len(history)
		return "ok", nil
	}, &fakeNotifier{})

	conv, err := store.CreateConversation(1, &a.ID)
	require.NoError(t, err)

	_, err = orch.Respond(context.Background(), RespondInput{
		ConversationID: conv.ID,
		UserID:         1,
		Content:        "I have cramps",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ASSESSMENT_PATTERN_HEAVY, gotPattern)
	// history includes the just-appended user message
	assert.Equal(t, 1, gotHistory)
}

func TestRespondOwnershipCheckedBeforeGeneration(t *testing.T) {
	store := NewStore(newTestDB(t), 50)
	limiter := ratelimit.NewLimiter(10)

	called := false
	orch := NewOrchestrator(store, limiter, func(ctx context.Context, userText string, history []models.Message, pattern string) (string, error) {
		called = true
		return "nope", nil
	}, &fakeNotifier{})

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	_, err = orch.Respond(context.Background(), RespondInput{
		ConversationID: conv.ID,
		UserID:         2,
		Content:        "hi",
	})
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.False(t, called)
	assert.Equal(t, 0, limiter.UsageStats().CallsToday)
}
