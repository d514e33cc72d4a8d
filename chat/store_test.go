package chat

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"selene/db"
	"selene/models"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a throwaway sqlite database. A file per test, not
// :memory:, because gorm's connection pool would hand each connection its
// own empty in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { gdb.Close() })
	require.NoError(t, db.AutoMigrate(gdb).Error)
	return gdb
}

func TestCreateConversation(t *testing.T) {
	store := NewStore(newTestDB(t), 50)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, int64(1), conv.UserID)
	assert.Nil(t, conv.AssessmentID)
	assert.Empty(t, conv.Preview)

	got, err := store.GetConversation(conv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
}

func TestCreateConversationWithAssessment(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb, 50)

	a := models.Assessment{UserID: 1, CycleLengthDays: 28, PeriodLengthDays: 5, FlowLevel: 5}
	a.Pattern = a.ComputePattern()
	require.NoError(t, gdb.Create(&a).Error)

	conv, err := store.CreateConversation(1, &a.ID)
	require.NoError(t, err)
	require.NotNil(t, conv.AssessmentID)
	assert.Equal(t, a.ID, *conv.AssessmentID)
	assert.Equal(t, models.ASSESSMENT_PATTERN_HEAVY, conv.AssessmentPattern)
}

func TestCreateConversationWithMissingAssessment(t *testing.T) {
	store := NewStore(newTestDB(t), 50)

	missing := int64(999)
	conv, err := store.CreateConversation(1, &missing)
	require.NoError(t, err)
	require.NotNil(t, conv.AssessmentID)
	assert.Empty(t, conv.AssessmentPattern)
}

func TestGetConversationOwnership(t *testing.T) {
	store := NewStore(newTestDB(t), 50)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	_, err = store.GetConversation(conv.ID, 2)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = store.GetConversation("does-not-exist", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendUserMessageValidation(t *testing.T) {
	store := NewStore(newTestDB(t), 50)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	_, err = store.AppendUserMessage(conv.ID, 1, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = store.AppendUserMessage(conv.ID, 2, "hi", "")
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = store.AppendUserMessage("nope", 1, "hi", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParentLinksFormAChain(t *testing.T) {
	store := NewStore(newTestDB(t), 50)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	first, err := store.AppendUserMessage(conv.ID, 1, "first", "")
	require.NoError(t, err)
	assert.Empty(t, first.ParentMessageID)

	time.Sleep(5 * time.Millisecond)
	// the claimed parent is bogus; the store must repair it
	second, err := store.AppendUserMessage(conv.ID, 1, "second", "stale-or-forged-id")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ParentMessageID)

	time.Sleep(5 * time.Millisecond)
	third, err := store.AppendAssistantMessage(conv.ID, "a reply")
	require.NoError(t, err)
	assert.Equal(t, second.ID, third.ParentMessageID)
	assert.Equal(t, int64(0), third.UserID)
	assert.True(t, third.IsAssistant())

	msgs, err := store.Thread(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "a reply", msgs[2].Content)
}

func TestConcurrentAppendsSerializePerConversation(t *testing.T) {
	store := NewStore(newTestDB(t), 50)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.AppendUserMessage(conv.ID, 1, fmt.Sprintf("message %d", i), "")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	msgs, err := store.Thread(conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, n)

	// the appends must have formed one chain: a single root and every other
	// message claiming a distinct existing parent
	ids := map[string]bool{}
	for _, m := range msgs {
		ids[m.ID] = true
	}
	roots := 0
	parents := map[string]int{}
	for _, m := range msgs {
		if m.ParentMessageID == "" {
			roots++
			continue
		}
		assert.True(t, ids[m.ParentMessageID], "parent %s is not a message in the thread", m.ParentMessageID)
		parents[m.ParentMessageID]++
	}
	assert.Equal(t, 1, roots)
	assert.Len(t, parents, n-1)
	for id, count := range parents {
		assert.Equalf(t, 1, count, "parent %s claimed by more than one message", id)
	}
}

func TestLinkAssessment(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb, 50)

	a := models.Assessment{UserID: 1, CycleLengthDays: 19, PeriodLengthDays: 4, FlowLevel: 2}
	a.Pattern = a.ComputePattern()
	require.NoError(t, gdb.Create(&a).Error)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	require.NoError(t, store.LinkAssessment(conv.ID, 1, a.ID))
	// relinking the same assessment is a no-op, not an error
	require.NoError(t, store.LinkAssessment(conv.ID, 1, a.ID))

	got, err := store.GetConversation(conv.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, got.AssessmentID)
	assert.Equal(t, a.ID, *got.AssessmentID)
	assert.Equal(t, models.ASSESSMENT_PATTERN_IRREGULAR, got.AssessmentPattern)

	assert.ErrorIs(t, store.LinkAssessment(conv.ID, 2, a.ID), ErrNotOwner)
}

func TestLinkAssessmentSnapshotDoesNotFollowUpdates(t *testing.T) {
	gdb := newTestDB(t)
	store := NewStore(gdb, 50)

	a := models.Assessment{UserID: 1, Pattern: models.ASSESSMENT_PATTERN_NORMAL}
	require.NoError(t, gdb.Create(&a).Error)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)
	require.NoError(t, store.LinkAssessment(conv.ID, 1, a.ID))

	require.NoError(t, gdb.Model(&models.Assessment{}).Where("id = ?", a.ID).
		Update("pattern", models.ASSESSMENT_PATTERN_HEAVY).Error)

	got, err := store.GetConversation(conv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ASSESSMENT_PATTERN_NORMAL, got.AssessmentPattern)
}

func TestUpdatePreviewTruncates(t *testing.T) {
	store := NewStore(newTestDB(t), 10)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	require.NoError(t, store.UpdatePreview(conv.ID, "a rather long assistant answer"))
	got, err := store.GetConversation(conv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "a rather l...", got.Preview)
}

func TestListForUser(t *testing.T) {
	store := NewStore(newTestDB(t), 50)

	empty, err := store.CreateConversation(1, nil)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	active, err := store.CreateConversation(1, nil)
	require.NoError(t, err)
	_, err = store.AppendUserMessage(active.ID, 1, "hello", "")
	require.NoError(t, err)
	require.NoError(t, store.UpdatePreview(active.ID, "hi there"))

	// another user's thread must not leak into the listing
	_, err = store.CreateConversation(2, nil)
	require.NoError(t, err)

	list, err := store.ListForUser(1)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]ConversationSummary{}
	for _, s := range list {
		byID[s.ID] = s
	}
	assert.Equal(t, models.PREVIEW_EMPTY_FALLBACK, byID[empty.ID].Preview)
	assert.Equal(t, "hi there", byID[active.ID].Preview)
	require.NotNil(t, byID[active.ID].UpdatedAt)
	require.NotNil(t, byID[empty.ID].UpdatedAt)
	assert.True(t, byID[active.ID].UpdatedAt.After(*byID[empty.ID].UpdatedAt))
}

func TestDeleteConversationHidesThread(t *testing.T) {
	store := NewStore(newTestDB(t), 50)

	conv, err := store.CreateConversation(1, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, store.DeleteConversation(conv.ID, 2), ErrNotOwner)
	require.NoError(t, store.DeleteConversation(conv.ID, 1))

	_, err = store.GetConversation(conv.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.ListForUser(1)
	require.NoError(t, err)
	assert.Empty(t, list)
}
