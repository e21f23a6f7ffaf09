// Package conflict flags concurrent edits to the same artifact. The
// detector runs synchronously on the publisher's call stack whenever a new
// artifact version is announced, so a conflicting write sees its conflict
// recorded before the originating operation returns.
//
// The check is a heuristic, not a causal one: two versions conflict when
// they are authored by different actors within the detection window. Data
// content is never compared, and rapid edits by the same author never
// conflict even if they came from logically concurrent sessions.
package conflict

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/internal/versioning"
	"github.com/warrenhq/warren/pkg/workspace"
)

// DefaultWindowMs is the detection window: a new version conflicts with the
// most recent sibling written strictly earlier and less than five minutes
// before it.
const DefaultWindowMs = 5 * 60 * 1000

type artifactRef struct {
	workspaceID string
	artifactKey string
}

// Detector watches artifact:version:updated events and records conflicts.
// Resolution is bookkeeping only: the detector never touches artifact data,
// even for last-write-wins or merge strategies. Applying the outcome is
// the caller's separate responsibility.
type Detector struct {
	mu          sync.Mutex
	bus         *bus.Bus
	versions    *versioning.Store
	clock       *workspace.Clock
	windowMs    int64
	conflicts   map[string]*workspace.Conflict
	byWorkspace map[string][]string    // workspaceID -> conflict ids, detection order
	artifacts   map[string]artifactRef // secondary index: artifactID -> owning workspace
	unsubscribe func()
}

// NewDetector creates a detector subscribed to version events on the bus.
// A windowMs of 0 selects DefaultWindowMs.
func NewDetector(b *bus.Bus, versions *versioning.Store, clock *workspace.Clock, windowMs int64) *Detector {
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}

	d := &Detector{
		bus:         b,
		versions:    versions,
		clock:       clock,
		windowMs:    windowMs,
		conflicts:   make(map[string]*workspace.Conflict),
		byWorkspace: make(map[string][]string),
		artifacts:   make(map[string]artifactRef),
	}
	d.unsubscribe = b.Subscribe(workspace.EventArtifactVersionUpdated, d.onVersionUpdated)
	return d
}

// Close detaches the detector from the bus.
func (d *Detector) Close() {
	d.unsubscribe()
}

// RegisterArtifact records which workspace owns an artifact id. The
// registry calls this when an artifact is first created, keeping the
// reverse lookup incremental instead of scanning workspaces.
func (d *Detector) RegisterArtifact(artifactID, workspaceID, artifactKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.artifacts[artifactID] = artifactRef{workspaceID: workspaceID, artifactKey: artifactKey}
}

// UnregisterWorkspace drops the conflict index and artifact registrations
// of a deleted workspace.
func (d *Detector) UnregisterWorkspace(workspaceID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range d.byWorkspace[workspaceID] {
		delete(d.conflicts, id)
	}
	delete(d.byWorkspace, workspaceID)

	for artifactID, ref := range d.artifacts {
		if ref.workspaceID == workspaceID {
			delete(d.artifacts, artifactID)
		}
	}
}

func (d *Detector) onVersionUpdated(env bus.Envelope) {
	v, ok := env.Payload.(*workspace.ArtifactVersion)
	if !ok {
		log.Printf("[Conflict] Ignoring %s event with unexpected payload %T", env.Event, env.Payload)
		return
	}

	d.mu.Lock()
	ref, registered := d.artifacts[v.ArtifactID]
	d.mu.Unlock()
	if !registered {
		// Artifact not owned by any workspace (e.g. hydration stub churn)
		return
	}

	// Most recent strictly-earlier sibling inside the window.
	var candidate *workspace.ArtifactVersion
	for _, prior := range d.versions.GetVersionHistory(v.ArtifactID) {
		dt := v.TimestampMs - prior.TimestampMs
		if prior.ID == v.ID || dt <= 0 || dt >= d.windowMs {
			continue
		}
		if candidate == nil || prior.TimestampMs > candidate.TimestampMs {
			candidate = prior
		}
	}

	if candidate == nil || candidate.Author == v.Author {
		return
	}

	conflict := &workspace.Conflict{
		ID:           uuid.New().String(),
		WorkspaceID:  ref.workspaceID,
		ArtifactKey:  ref.artifactKey,
		Agent1:       candidate.Author,
		Agent2:       v.Author,
		Version1:     candidate.Version,
		Version2:     v.Version,
		DetectedAtMs: d.clock.NowMs(),
		Status:       workspace.ConflictStatusDetected,
	}

	d.mu.Lock()
	d.conflicts[conflict.ID] = conflict
	d.byWorkspace[ref.workspaceID] = append(d.byWorkspace[ref.workspaceID], conflict.ID)
	d.mu.Unlock()

	log.Printf("[Conflict] Detected on %s/%s: %s (v%d) vs %s (v%d)",
		ref.workspaceID, ref.artifactKey, conflict.Agent1, conflict.Version1, conflict.Agent2, conflict.Version2)

	d.bus.Publish(workspace.EventConflictDetected, conflict, bus.PublishOptions{
		AggregateType: workspace.AggregateConflict,
		AggregateID:   conflict.ID,
	})
}

// ResolveOptions carry the optional resolution metadata.
type ResolveOptions struct {
	WinningVersion int
	MergedData     any
	Reason         string
}

// ResolveConflict stamps a resolution onto a detected conflict. The reject
// strategy moves the conflict to rejected; every other strategy moves it to
// resolved. Returns nil if the conflict id or strategy is unknown.
func (d *Detector) ResolveConflict(conflictID string, strategy workspace.ResolutionStrategy, resolvedBy string, opts ResolveOptions) *workspace.Conflict {
	if err := strategy.Validate(); err != nil {
		log.Printf("[Conflict] Resolution rejected for %s: %v", conflictID, err)
		return nil
	}

	d.mu.Lock()
	conflict, ok := d.conflicts[conflictID]
	if !ok {
		d.mu.Unlock()
		log.Printf("[Conflict] Resolution rejected: unknown conflict %s", conflictID)
		return nil
	}

	conflict.Resolution = &workspace.ConflictResolution{
		Strategy:       strategy,
		ResolvedBy:     resolvedBy,
		ResolvedAtMs:   d.clock.NowMs(),
		WinningVersion: opts.WinningVersion,
		MergedData:     opts.MergedData,
		Reason:         opts.Reason,
	}
	if strategy == workspace.ResolutionReject {
		conflict.Status = workspace.ConflictStatusRejected
	} else {
		conflict.Status = workspace.ConflictStatusResolved
	}
	d.mu.Unlock()

	d.bus.Publish(workspace.EventConflictResolved, conflict, bus.PublishOptions{
		AggregateType: workspace.AggregateConflict,
		AggregateID:   conflict.ID,
	})

	return conflict
}

// GetConflict returns a conflict by id, or nil.
func (d *Detector) GetConflict(conflictID string) *workspace.Conflict {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conflicts[conflictID]
}

// GetConflictsForWorkspace returns a workspace's conflicts in detection
// order.
func (d *Detector) GetConflictsForWorkspace(workspaceID string) []*workspace.Conflict {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := d.byWorkspace[workspaceID]
	out := make([]*workspace.Conflict, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.conflicts[id])
	}
	return out
}

// GetActiveConflicts returns every conflict not yet resolved or rejected.
func (d *Detector) GetActiveConflicts() []*workspace.Conflict {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*workspace.Conflict
	for _, ids := range d.byWorkspace {
		for _, id := range ids {
			c := d.conflicts[id]
			if c.Status == workspace.ConflictStatusDetected || c.Status == workspace.ConflictStatusResolving {
				out = append(out, c)
			}
		}
	}
	return out
}

// CountActiveForWorkspace returns how many unresolved conflicts a workspace
// carries. Used by the metrics read.
func (d *Detector) CountActiveForWorkspace(workspaceID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := 0
	for _, id := range d.byWorkspace[workspaceID] {
		c := d.conflicts[id]
		if c.Status == workspace.ConflictStatusDetected || c.Status == workspace.ConflictStatusResolving {
			count++
		}
	}
	return count
}
