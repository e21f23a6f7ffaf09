package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/internal/feedback"
	"github.com/warrenhq/warren/pkg/workspace"
)

func TestUpdateArtifactCreatesThenAppends(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{})
	rec := recordEvents(t, r.Bus())

	v1 := r.UpdateArtifact(ws.ID, "readme", "draft", "agent", "alice", ArtifactOptions{Description: "first draft"})
	require.NotNil(t, v1)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, workspace.ChangeTypeCreate, v1.ChangeType)
	assert.Empty(t, v1.Lineage)
	assert.Equal(t, ws.ID+"-readme", v1.ArtifactID)
	assert.Equal(t, v1.ArtifactID, ws.Artifacts["readme"])

	v2 := r.UpdateArtifact(ws.ID, "readme", "edited", "alice", "alice", ArtifactOptions{})
	require.NotNil(t, v2)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, workspace.ChangeTypeUpdate, v2.ChangeType)
	assert.Equal(t, []string{v1.ID}, v2.Lineage)

	assert.Len(t, rec.named(workspace.EventWorkspaceArtifactUpdated), 2)
	assert.Same(t, v2, r.GetArtifact(ws.ID, "readme"))
	assert.Len(t, r.GetArtifactHistory(ws.ID, "readme"), 2)
}

func TestUpdateArtifactRejectsInactiveWorkspace(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{})
	require.NotNil(t, r.UpdateWorkspaceStatus(ws.ID, workspace.StatusFrozen, "alice"))
	rec := recordEvents(t, r.Bus())

	assert.Nil(t, r.UpdateArtifact(ws.ID, "readme", "draft", "agent", "alice", ArtifactOptions{}))
	assert.Empty(t, ws.Artifacts)
	assert.Empty(t, rec.events, "rejected writes are silent on the bus")
}

func TestUpdateArtifactRejectsUnknownWorkspace(t *testing.T) {
	r := newTestRegistry(t)
	assert.Nil(t, r.UpdateArtifact("no-such-workspace", "readme", "draft", "agent", "alice", ArtifactOptions{}))
}

func TestRollbackArtifact(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{})
	require.NotNil(t, r.UpdateArtifact(ws.ID, "readme", "v1 data", "agent", "alice", ArtifactOptions{}))
	require.NotNil(t, r.UpdateArtifact(ws.ID, "readme", "v2 data", "agent", "alice", ArtifactOptions{}))
	rec := recordEvents(t, r.Bus())

	v3 := r.RollbackArtifact(ws.ID, "readme", 1, "alice", "v2 broke the build")
	require.NotNil(t, v3)
	assert.Equal(t, 3, v3.Version)
	assert.Equal(t, workspace.ChangeTypeRollback, v3.ChangeType)
	assert.Equal(t, "v1 data", v3.Data)

	assert.Len(t, r.GetArtifactHistory(ws.ID, "readme"), 3, "rollback appends, never truncates")
	assert.Len(t, rec.named(workspace.EventWorkspaceArtifactRollback), 1)

	assert.Nil(t, r.RollbackArtifact(ws.ID, "no-such-key", 1, "alice", ""))
	assert.Nil(t, r.RollbackArtifact(ws.ID, "readme", 99, "alice", ""))
}

func TestAddFeedback(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{})
	require.NotNil(t, r.UpdateArtifact(ws.ID, "readme", "draft", "agent", "alice", ArtifactOptions{}))
	rec := recordEvents(t, r.Bus())

	thread := r.AddFeedback(ws.ID, "readme", "bob", "Missing usage section", "Add an example invocation", workspace.SeverityBlocking, feedback.ThreadOptions{
		Tags:     []string{"docs"},
		Location: "README.md:1",
	})
	require.NotNil(t, thread)
	assert.Equal(t, ws.ID+"-readme", thread.ArtifactID)
	assert.True(t, thread.IsBlocking())

	require.Len(t, rec.named(workspace.EventWorkspaceFeedbackAdded), 1)
	require.Len(t, rec.named(workspace.EventFeedbackAdded), 1)
	assert.Empty(t, rec.named(workspace.EventWorkspaceCriticalFeedback))

	threads := r.GetFeedbackForArtifact(ws.ID, "readme")
	require.Len(t, threads, 1)
	assert.Same(t, thread, threads[0])
}

func TestAddFeedbackCriticalRepublishesWithWorkspaceContext(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{})
	require.NotNil(t, r.UpdateArtifact(ws.ID, "design", "draft", "agent", "alice", ArtifactOptions{}))
	rec := recordEvents(t, r.Bus())

	thread := r.AddFeedback(ws.ID, "design", "bob", "Data loss on restart", "State is never flushed", workspace.SeverityCritical, feedback.ThreadOptions{})
	require.NotNil(t, thread)

	events := rec.named(workspace.EventWorkspaceCriticalFeedback)
	require.Len(t, events, 1)
	payload := events[0].Payload.(workspace.FeedbackPayload)
	assert.Equal(t, ws.ID, payload.WorkspaceID)
	assert.Equal(t, "design", payload.ArtifactKey)
	assert.Same(t, thread, payload.Thread)
	assert.Len(t, rec.named(workspace.EventFeedbackCritical), 1)
}

func TestAddFeedbackRejections(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{})

	assert.Nil(t, r.AddFeedback("no-such-workspace", "readme", "bob", "t", "c", workspace.SeverityNit, feedback.ThreadOptions{}))
	assert.Nil(t, r.AddFeedback(ws.ID, "no-such-key", "bob", "t", "c", workspace.SeverityNit, feedback.ThreadOptions{}))
}

func TestLookupMissesReturnNil(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{})

	assert.Nil(t, r.GetArtifact(ws.ID, "no-such-key"))
	assert.Nil(t, r.GetArtifactHistory("no-such-workspace", "readme"))
	assert.Nil(t, r.GetFeedbackForArtifact(ws.ID, "no-such-key"))
}
