package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/pkg/workspace"
)

func setupStore() (*Store, *bus.Bus) {
	clock := workspace.NewClock()
	b := bus.New(clock)
	return NewStore(b, clock), b
}

func TestCreateThread(t *testing.T) {
	s, _ := setupStore()

	thread := s.CreateThread("art-1", "bob", "missing tests", "no coverage for the error path",
		workspace.SeverityBlocking, ThreadOptions{Tags: []string{"tests"}, Location: "store.go:42"})
	require.NotNil(t, thread)

	assert.Equal(t, "art-1", thread.ArtifactID)
	assert.Equal(t, workspace.FeedbackStatusPending, thread.Status)
	assert.Equal(t, "store.go:42", thread.Location)
	require.Len(t, thread.Comments, 1)
	assert.Equal(t, "no coverage for the error path", thread.Comments[0].Content)
	assert.NoError(t, thread.Validate())
}

func TestCreateThread_UnknownSeverity(t *testing.T) {
	s, _ := setupStore()
	assert.Nil(t, s.CreateThread("art-1", "bob", "t", "c", workspace.Severity("meh"), ThreadOptions{}))
}

func TestCriticalThreadPublishesEvent(t *testing.T) {
	s, b := setupStore()

	var got []*workspace.FeedbackThread
	b.Subscribe(workspace.EventFeedbackCritical, func(env bus.Envelope) {
		got = append(got, env.Payload.(*workspace.FeedbackThread))
	})

	s.CreateThread("art-1", "bob", "nit", "typo", workspace.SeverityNit, ThreadOptions{})
	s.CreateThread("art-1", "bob", "blocker", "broken", workspace.SeverityBlocking, ThreadOptions{})
	crit := s.CreateThread("art-1", "bob", "secrets leaked", "key in payload", workspace.SeverityCritical, ThreadOptions{})

	require.Len(t, got, 1)
	assert.Equal(t, crit.ID, got[0].ID)
}

func TestAddComment(t *testing.T) {
	s, _ := setupStore()

	thread := s.CreateThread("art-1", "bob", "t", "first", workspace.SeverityNit, ThreadOptions{})
	updated := s.AddComment(thread.ID, "alice", "agreed, fixing")
	require.NotNil(t, updated)

	require.Len(t, updated.Comments, 2)
	assert.Equal(t, "alice", updated.Comments[1].Author)
	assert.Greater(t, updated.UpdatedAtMs, updated.CreatedAtMs)

	assert.Nil(t, s.AddComment("missing", "alice", "hello?"))
}

func TestUpdateThreadStatus(t *testing.T) {
	s, _ := setupStore()

	thread := s.CreateThread("art-1", "bob", "t", "c", workspace.SeverityBlocking, ThreadOptions{})

	updated := s.UpdateThreadStatus(thread.ID, workspace.FeedbackStatusAddressed)
	require.NotNil(t, updated)
	assert.Equal(t, workspace.FeedbackStatusAddressed, updated.Status)

	assert.Nil(t, s.UpdateThreadStatus(thread.ID, workspace.FeedbackStatus("done-ish")))
	assert.Nil(t, s.UpdateThreadStatus("missing", workspace.FeedbackStatusAddressed))
}

func TestHasBlockingFeedback(t *testing.T) {
	s, _ := setupStore()

	assert.False(t, s.HasBlockingFeedback("art-1"))

	s.CreateThread("art-1", "bob", "nit", "typo", workspace.SeverityNit, ThreadOptions{})
	assert.False(t, s.HasBlockingFeedback("art-1"))

	blocker := s.CreateThread("art-1", "bob", "blocker", "broken", workspace.SeverityBlocking, ThreadOptions{})
	assert.True(t, s.HasBlockingFeedback("art-1"))

	// Addressing the blocker clears the predicate
	s.UpdateThreadStatus(blocker.ID, workspace.FeedbackStatusAddressed)
	assert.False(t, s.HasBlockingFeedback("art-1"))
}

func TestGetThreadsForArtifact(t *testing.T) {
	s, _ := setupStore()

	s.CreateThread("art-1", "bob", "a", "c", workspace.SeverityNit, ThreadOptions{})
	s.CreateThread("art-1", "carol", "b", "c", workspace.SeverityNit, ThreadOptions{})
	s.CreateThread("art-2", "bob", "c", "c", workspace.SeverityNit, ThreadOptions{})

	threads := s.GetThreadsForArtifact("art-1")
	require.Len(t, threads, 2)
	assert.Equal(t, "a", threads[0].Title)
	assert.Equal(t, "b", threads[1].Title)
	assert.Empty(t, s.GetThreadsForArtifact("missing"))
}

func TestFilterThreads(t *testing.T) {
	s, _ := setupStore()

	s.CreateThread("art-1", "bob", "a", "c", workspace.SeverityNit, ThreadOptions{})
	s.CreateThread("art-2", "carol", "b", "c", workspace.SeverityCritical, ThreadOptions{})

	critical := s.FilterThreads(func(th *workspace.FeedbackThread) bool {
		return th.Severity == workspace.SeverityCritical
	})
	require.Len(t, critical, 1)
	assert.Equal(t, "b", critical[0].Title)
}

func TestRestoreThread_NoEvents(t *testing.T) {
	s, b := setupStore()

	calls := 0
	b.Subscribe(workspace.EventFeedbackCritical, func(bus.Envelope) { calls++ })

	s.RestoreThread(&workspace.FeedbackThread{
		ID:         "00000000-0000-0000-0000-000000000001",
		ArtifactID: "art-1",
		Author:     "bob",
		Severity:   workspace.SeverityCritical,
		Status:     workspace.FeedbackStatusPending,
		Comments:   []workspace.FeedbackComment{{Author: "bob", Content: "restored"}},
	})

	assert.Zero(t, calls)
	assert.True(t, s.HasBlockingFeedback("art-1"))
	assert.Len(t, s.GetThreadsForArtifact("art-1"), 1)
}
