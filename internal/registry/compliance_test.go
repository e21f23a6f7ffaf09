package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/internal/conflict"
	"github.com/warrenhq/warren/internal/feedback"
	"github.com/warrenhq/warren/pkg/workspace"
)

func TestGenerateCompliancePackage(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "release-audit", "alice", CreateOptions{})
	require.NotNil(t, r.UpdateArtifact(ws.ID, "readme", "v1", "agent", "alice", ArtifactOptions{}))
	require.NotNil(t, r.UpdateArtifact(ws.ID, "readme", "v2", "agent", "alice", ArtifactOptions{}))
	require.NotNil(t, r.UpdateArtifact(ws.ID, "design", "v1", "agent", "alice", ArtifactOptions{}))
	require.NotNil(t, r.AddFeedback(ws.ID, "readme", "bob", "t", "c", workspace.SeverityBlocking, feedback.ThreadOptions{}))
	require.NotNil(t, r.AddFeedback(ws.ID, "design", "bob", "t", "c", workspace.SeverityCritical, feedback.ThreadOptions{}))
	rec := recordEvents(t, r.Bus())

	pkg := r.GenerateCompliancePackage(ws.ID, "auditor")
	require.NotNil(t, pkg)
	assert.Equal(t, "proj-1", pkg.ProjectID)
	assert.Equal(t, "auditor", pkg.GeneratedBy)
	assert.Len(t, pkg.Artifacts, 2)

	assert.Equal(t, 2, pkg.Summary.ArtifactCount)
	assert.Equal(t, 3, pkg.Summary.TotalVersions)
	assert.Equal(t, 2, pkg.Summary.TotalFeedback)
	assert.Equal(t, 1, pkg.Summary.BlockingFeedback)
	assert.Equal(t, 1, pkg.Summary.CriticalFeedback)

	for _, artifact := range pkg.Artifacts {
		require.NotNil(t, artifact.CurrentVersion)
		assert.Equal(t, artifact.CurrentVersion, artifact.VersionHistory[len(artifact.VersionHistory)-1])
	}

	assert.Len(t, rec.named(workspace.EventCompliancePackageGenerated), 1)
	assert.Nil(t, r.GenerateCompliancePackage("no-such-workspace", "auditor"))
}

func TestCompliancePackageOrderIsDeterministic(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{})
	for _, key := range []string{"zeta", "alpha", "mid", "beta", "omega"} {
		require.NotNil(t, r.UpdateArtifact(ws.ID, key, "v1", "agent", "alice", ArtifactOptions{}))
	}

	want := []string{"alpha", "beta", "mid", "omega", "zeta"}
	for i := 0; i < 20; i++ {
		pkg := r.GenerateCompliancePackage(ws.ID, "auditor")
		require.NotNil(t, pkg)
		keys := make([]string, 0, len(pkg.Artifacts))
		for _, artifact := range pkg.Artifacts {
			keys = append(keys, artifact.Key)
		}
		require.Equal(t, want, keys, "artifact order changed on regeneration %d", i)
	}
}

func TestAttachSignature(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{})
	pkg := r.GenerateCompliancePackage(ws.ID, "auditor")
	require.NotNil(t, pkg)
	rec := recordEvents(t, r.Bus())

	signed := r.AttachSignature(pkg, workspace.Signature{
		Signer:    "release-bot",
		Algorithm: "ed25519",
		Value:     "c2lnbmF0dXJl",
	})
	require.NotNil(t, signed)
	require.Len(t, pkg.Signatures, 1)
	assert.NotZero(t, pkg.Signatures[0].SignedAtMs)
	assert.Len(t, rec.named(workspace.EventCompliancePackageSigned), 1)

	assert.Nil(t, r.AttachSignature(pkg, workspace.Signature{Signer: "release-bot"}), "signature without a value is rejected")
	assert.Len(t, pkg.Signatures, 1)
}

func TestGetMetrics(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{Members: []string{"bob"}})
	require.NotNil(t, r.UpdateArtifact(ws.ID, "readme", "v1", "agent", "alice", ArtifactOptions{}))
	require.NotNil(t, r.UpdateArtifact(ws.ID, "readme", "v2", "agent", "bob", ArtifactOptions{}))

	fb := r.AddFeedback(ws.ID, "readme", "bob", "t", "c", workspace.SeverityNit, feedback.ThreadOptions{})
	require.NotNil(t, fb)
	require.NotNil(t, r.Feedback().UpdateThreadStatus(fb.ID, workspace.FeedbackStatusAddressed))
	require.NotNil(t, r.AddFeedback(ws.ID, "readme", "bob", "t2", "c2", workspace.SeverityBlocking, feedback.ThreadOptions{}))

	m := r.GetMetrics(ws.ID)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.ArtifactCount)
	assert.Equal(t, 2, m.TotalVersions)
	assert.Equal(t, 2, m.TotalFeedback)
	assert.Equal(t, 1, m.PendingFeedback)
	assert.Equal(t, 1, m.ActiveConflicts, "alice/bob edits inside the window conflict")
	assert.Equal(t, 2, m.MemberCount)

	assert.Nil(t, r.GetMetrics("no-such-workspace"))
}

// Two authors edit the same artifact back to back, the conflict is
// resolved last-write-wins, and the exported workspace carries the whole
// story.
func TestConcurrentEditLifecycle(t *testing.T) {
	r := newTestRegistry(t)
	ws := r.CreateWorkspace("proj-1", "ws", "alice", CreateOptions{Members: []string{"bob"}})
	rec := recordEvents(t, r.Bus())

	v1 := r.UpdateArtifact(ws.ID, "readme", "alice's draft", "agent", "alice", ArtifactOptions{})
	require.NotNil(t, v1)
	v2 := r.UpdateArtifact(ws.ID, "readme", "bob's rewrite", "agent", "bob", ArtifactOptions{})
	require.NotNil(t, v2)

	conflicts := r.GetConflictsForWorkspace(ws.ID)
	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, "alice", c.Agent1)
	assert.Equal(t, "bob", c.Agent2)
	assert.Equal(t, 1, c.Version1)
	assert.Equal(t, 2, c.Version2)
	assert.Equal(t, workspace.ConflictStatusDetected, c.Status)
	require.Len(t, rec.named(workspace.EventConflictDetected), 1)

	resolved := r.ResolveConflict(c.ID, workspace.ResolutionLastWriteWins, "alice", conflict.ResolveOptions{
		WinningVersion: 2,
		Reason:         "bob's rewrite supersedes the draft",
	})
	require.NotNil(t, resolved)
	assert.Equal(t, workspace.ConflictStatusResolved, resolved.Status)
	assert.Empty(t, r.GetActiveConflicts())
	require.Len(t, rec.named(workspace.EventConflictResolved), 1)

	exported := r.ExportWorkspace(ws.ID, "alice")
	require.NotEmpty(t, exported)

	var export WorkspaceExport
	require.NoError(t, json.Unmarshal([]byte(exported), &export))
	require.Len(t, export.Artifacts, 1)
	assert.Len(t, export.Artifacts[0].VersionHistory, 2)
	require.Len(t, export.Conflicts, 1)
	assert.Equal(t, workspace.ConflictStatusResolved, export.Conflicts[0].Status)
	require.NotNil(t, export.Metrics)
	assert.Zero(t, export.Metrics.ActiveConflicts)
}

func TestExportWorkspaceUnknown(t *testing.T) {
	r := newTestRegistry(t)
	assert.Empty(t, r.ExportWorkspace("no-such-workspace", "alice"))
}
