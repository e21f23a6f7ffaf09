package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/internal/versioning"
	"github.com/warrenhq/warren/pkg/workspace"
)

func setupDetector(t *testing.T) (*Detector, *versioning.Store, *bus.Bus) {
	clock := workspace.NewClock()
	b := bus.New(clock)
	vs := versioning.NewStore(b, clock)
	d := NewDetector(b, vs, clock, 0)
	t.Cleanup(d.Close)
	return d, vs, b
}

// seedAndAnnounce restores a crafted history and publishes the head version
// as an artifact:version:updated event, so tests control timestamps exactly.
func seedAndAnnounce(vs *versioning.Store, b *bus.Bus, history []*workspace.ArtifactVersion) {
	head := history[len(history)-1]
	vs.RestoreArtifactVersions(head.ArtifactID, history)
	b.Publish(workspace.EventArtifactVersionUpdated, head, bus.PublishOptions{
		AggregateType: workspace.AggregateBlackboard,
		AggregateID:   head.ArtifactID,
	})
}

func version(artifactID string, n int, author string, tsMs int64) *workspace.ArtifactVersion {
	lineage := make([]string, 0, n-1)
	for i := 1; i < n; i++ {
		lineage = append(lineage, artifactID+"-v"+string(rune('0'+i)))
	}
	return &workspace.ArtifactVersion{
		ID:          artifactID + "-v" + string(rune('0'+n)),
		ArtifactID:  artifactID,
		Version:     n,
		Data:        "data",
		Author:      author,
		TimestampMs: tsMs,
		ChangeType:  workspace.ChangeTypeUpdate,
		Lineage:     lineage,
	}
}

const minuteMs = 60 * 1000

func TestDetectsDifferentAuthorsInsideWindow(t *testing.T) {
	d, vs, b := setupDetector(t)
	d.RegisterArtifact("art-1", "ws-1", "readme")

	base := int64(1_000_000)
	seedAndAnnounce(vs, b, []*workspace.ArtifactVersion{
		version("art-1", 1, "alice", base),
		version("art-1", 2, "bob", base+4*minuteMs),
	})

	conflicts := d.GetConflictsForWorkspace("ws-1")
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, "alice", c.Agent1)
	assert.Equal(t, "bob", c.Agent2)
	assert.Equal(t, 1, c.Version1)
	assert.Equal(t, 2, c.Version2)
	assert.Equal(t, "readme", c.ArtifactKey)
	assert.Equal(t, workspace.ConflictStatusDetected, c.Status)
	assert.NoError(t, c.Validate())
}

func TestNoConflictOutsideWindow(t *testing.T) {
	d, vs, b := setupDetector(t)
	d.RegisterArtifact("art-1", "ws-1", "readme")

	base := int64(1_000_000)
	seedAndAnnounce(vs, b, []*workspace.ArtifactVersion{
		version("art-1", 1, "alice", base),
		version("art-1", 2, "bob", base+6*minuteMs),
	})

	assert.Empty(t, d.GetConflictsForWorkspace("ws-1"))
}

func TestNoConflictForSameAuthor(t *testing.T) {
	d, vs, b := setupDetector(t)
	d.RegisterArtifact("art-1", "ws-1", "readme")

	base := int64(1_000_000)
	seedAndAnnounce(vs, b, []*workspace.ArtifactVersion{
		version("art-1", 1, "alice", base),
		version("art-1", 2, "alice", base+minuteMs),
	})

	assert.Empty(t, d.GetConflictsForWorkspace("ws-1"))
}

func TestMostRecentCandidateWins(t *testing.T) {
	d, vs, b := setupDetector(t)
	d.RegisterArtifact("art-1", "ws-1", "readme")

	// Both v1 and v2 sit inside the window; only the most recent (v2) is
	// the candidate, and it shares the new version's author, so no conflict.
	base := int64(1_000_000)
	seedAndAnnounce(vs, b, []*workspace.ArtifactVersion{
		version("art-1", 1, "alice", base),
		version("art-1", 2, "bob", base+minuteMs),
		version("art-1", 3, "bob", base+2*minuteMs),
	})

	assert.Empty(t, d.GetConflictsForWorkspace("ws-1"))
}

func TestUnregisteredArtifactIgnored(t *testing.T) {
	d, vs, b := setupDetector(t)

	base := int64(1_000_000)
	seedAndAnnounce(vs, b, []*workspace.ArtifactVersion{
		version("art-1", 1, "alice", base),
		version("art-1", 2, "bob", base+minuteMs),
	})

	assert.Empty(t, d.GetActiveConflicts())
}

func TestLiveUpdatesConflict(t *testing.T) {
	d, vs, _ := setupDetector(t)
	d.RegisterArtifact("art-1", "ws-1", "readme")

	// Real writes land milliseconds apart, well inside the window
	require.NotNil(t, vs.CreateVersion("art-1", "v1", "agent", "alice", "", nil))
	require.NotNil(t, vs.UpdateVersion("art-1", "v2", "agent", "bob", "", nil))

	conflicts := d.GetConflictsForWorkspace("ws-1")
	require.Len(t, conflicts, 1)
	assert.Equal(t, "alice", conflicts[0].Agent1)
	assert.Equal(t, "bob", conflicts[0].Agent2)
}

func TestConflictDetectedEventPublished(t *testing.T) {
	d, vs, b := setupDetector(t)
	d.RegisterArtifact("art-1", "ws-1", "readme")

	var got []*workspace.Conflict
	b.Subscribe(workspace.EventConflictDetected, func(env bus.Envelope) {
		got = append(got, env.Payload.(*workspace.Conflict))
	})

	vs.CreateVersion("art-1", "v1", "agent", "alice", "", nil)
	vs.UpdateVersion("art-1", "v2", "agent", "bob", "", nil)

	require.Len(t, got, 1)
	assert.Equal(t, "ws-1", got[0].WorkspaceID)
}

func TestResolveConflict(t *testing.T) {
	d, vs, b := setupDetector(t)
	d.RegisterArtifact("art-1", "ws-1", "readme")

	var resolvedEvents int
	b.Subscribe(workspace.EventConflictResolved, func(bus.Envelope) { resolvedEvents++ })

	vs.CreateVersion("art-1", "v1", "agent", "alice", "", nil)
	vs.UpdateVersion("art-1", "v2", "agent", "bob", "", nil)

	conflicts := d.GetConflictsForWorkspace("ws-1")
	require.Len(t, conflicts, 1)

	resolved := d.ResolveConflict(conflicts[0].ID, workspace.ResolutionLastWriteWins, "alice",
		ResolveOptions{WinningVersion: 2, Reason: "bob's version is newer"})
	require.NotNil(t, resolved)

	assert.Equal(t, workspace.ConflictStatusResolved, resolved.Status)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, workspace.ResolutionLastWriteWins, resolved.Resolution.Strategy)
	assert.Equal(t, "alice", resolved.Resolution.ResolvedBy)
	assert.Equal(t, 2, resolved.Resolution.WinningVersion)
	assert.Equal(t, 1, resolvedEvents)

	// Resolution is bookkeeping: artifact history is untouched
	assert.Len(t, vs.GetVersionHistory("art-1"), 2)
	assert.Empty(t, d.GetActiveConflicts())
}

func TestResolveConflict_RejectStrategy(t *testing.T) {
	d, vs, _ := setupDetector(t)
	d.RegisterArtifact("art-1", "ws-1", "readme")

	vs.CreateVersion("art-1", "v1", "agent", "alice", "", nil)
	vs.UpdateVersion("art-1", "v2", "agent", "bob", "", nil)

	conflicts := d.GetConflictsForWorkspace("ws-1")
	require.Len(t, conflicts, 1)

	resolved := d.ResolveConflict(conflicts[0].ID, workspace.ResolutionReject, "alice",
		ResolveOptions{Reason: "false positive"})
	require.NotNil(t, resolved)
	assert.Equal(t, workspace.ConflictStatusRejected, resolved.Status)
}

func TestResolveConflict_Invalid(t *testing.T) {
	d, _, _ := setupDetector(t)

	assert.Nil(t, d.ResolveConflict("missing", workspace.ResolutionMerge, "alice", ResolveOptions{}))

	d.RegisterArtifact("art-1", "ws-1", "readme")
	assert.Nil(t, d.ResolveConflict("missing", workspace.ResolutionStrategy("duel"), "alice", ResolveOptions{}))
}

func TestUnregisterWorkspace(t *testing.T) {
	d, vs, _ := setupDetector(t)
	d.RegisterArtifact("art-1", "ws-1", "readme")

	vs.CreateVersion("art-1", "v1", "agent", "alice", "", nil)
	vs.UpdateVersion("art-1", "v2", "agent", "bob", "", nil)
	require.Len(t, d.GetConflictsForWorkspace("ws-1"), 1)

	d.UnregisterWorkspace("ws-1")

	assert.Empty(t, d.GetConflictsForWorkspace("ws-1"))
	assert.Zero(t, d.CountActiveForWorkspace("ws-1"))

	// Further updates on the unregistered artifact no longer conflict
	vs.UpdateVersion("art-1", "v3", "agent", "carol", "", nil)
	assert.Empty(t, d.GetActiveConflicts())
}
