package registry

import (
	"log"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/internal/conflict"
	"github.com/warrenhq/warren/internal/feedback"
	"github.com/warrenhq/warren/pkg/workspace"
)

// ArtifactOptions carry the optional fields of UpdateArtifact.
type ArtifactOptions struct {
	Type        string
	Description string
	Metadata    map[string]any
}

// UpdateArtifact writes an artifact into a workspace: first write creates
// version 1, later writes append the next version. Only active workspaces
// accept writes. On a first write the artifact id is derived from the
// workspace id and key, registered on the workspace and with the conflict
// detector before the version is announced. Returns nil if the workspace
// is unknown or not active.
func (r *Registry) UpdateArtifact(workspaceID, artifactKey string, data any, source, author string, opts ArtifactOptions) *workspace.ArtifactVersion {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Artifact write rejected: unknown workspace %s", workspaceID)
		return nil
	}
	if ws.Status != workspace.StatusActive {
		r.mu.Unlock()
		log.Printf("[Registry] Artifact write rejected: workspace %s is %s", workspaceID, ws.Status)
		return nil
	}

	artifactID, exists := ws.Artifacts[artifactKey]
	if !exists {
		artifactID = workspaceID + "-" + artifactKey
		ws.Artifacts[artifactKey] = artifactID
		r.artifactIndex[artifactID] = workspaceID
	}
	ws.UpdatedAtMs = r.clock.NowMs()
	r.mu.Unlock()

	// Register before announcing so the detector can attribute the event.
	if !exists {
		r.conflicts.RegisterArtifact(artifactID, workspaceID, artifactKey)
	}

	var v *workspace.ArtifactVersion
	if exists {
		v = r.versions.UpdateVersion(artifactID, data, source, author, opts.Description, opts.Metadata)
	} else {
		v = r.versions.CreateVersion(artifactID, data, source, author, opts.Description, opts.Metadata)
	}
	if v == nil {
		return nil
	}

	r.publishWorkspace(workspace.EventWorkspaceArtifactUpdated, workspaceID, workspace.ArtifactPayload{
		WorkspaceID: workspaceID,
		ArtifactKey: artifactKey,
		Version:     v,
	})

	r.scheduleWorkspaceUpsert(ws, 0)
	r.scheduleEntryUpsert(workspaceID, artifactKey, artifactID, opts.Type, source, v)
	return v
}

// RollbackArtifact restores an artifact to the data of an earlier version
// by appending a new head version; history is never truncated. Returns nil
// if the workspace, key, or target version is unknown.
func (r *Registry) RollbackArtifact(workspaceID, artifactKey string, targetVersion int, author, reason string) *workspace.ArtifactVersion {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Rollback rejected: unknown workspace %s", workspaceID)
		return nil
	}
	artifactID, ok := ws.Artifacts[artifactKey]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Rollback rejected: workspace %s has no artifact %q", workspaceID, artifactKey)
		return nil
	}
	ws.UpdatedAtMs = r.clock.NowMs()
	r.mu.Unlock()

	v := r.versions.RollbackToVersion(artifactID, targetVersion, author, reason)
	if v == nil {
		return nil
	}

	r.publishWorkspace(workspace.EventWorkspaceArtifactRollback, workspaceID, workspace.ArtifactPayload{
		WorkspaceID: workspaceID,
		ArtifactKey: artifactKey,
		Version:     v,
	})

	r.scheduleWorkspaceUpsert(ws, 0)
	r.scheduleEntryUpsert(workspaceID, artifactKey, artifactID, "", v.Source, v)
	return v
}

// GetArtifact returns the current version of a workspace artifact, or nil.
func (r *Registry) GetArtifact(workspaceID, artifactKey string) *workspace.ArtifactVersion {
	artifactID := r.lookupArtifactID(workspaceID, artifactKey)
	if artifactID == "" {
		return nil
	}
	return r.versions.GetCurrentVersion(artifactID)
}

// GetArtifactHistory returns the full version history of a workspace
// artifact, oldest first. Returns nil if the workspace or key is unknown.
func (r *Registry) GetArtifactHistory(workspaceID, artifactKey string) []*workspace.ArtifactVersion {
	artifactID := r.lookupArtifactID(workspaceID, artifactKey)
	if artifactID == "" {
		return nil
	}
	return r.versions.GetVersionHistory(artifactID)
}

// AddFeedback opens a feedback thread on a workspace artifact. Returns nil
// if the workspace or key is unknown, or the severity is invalid.
func (r *Registry) AddFeedback(workspaceID, artifactKey, author, title, comment string, severity workspace.Severity, opts feedback.ThreadOptions) *workspace.FeedbackThread {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Feedback rejected: unknown workspace %s", workspaceID)
		return nil
	}
	artifactID, ok := ws.Artifacts[artifactKey]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Feedback rejected: workspace %s has no artifact %q", workspaceID, artifactKey)
		return nil
	}
	r.mu.Unlock()

	thread := r.feedback.CreateThread(artifactID, author, title, comment, severity, opts)
	if thread == nil {
		return nil
	}

	r.publishWorkspace(workspace.EventWorkspaceFeedbackAdded, workspaceID, workspace.FeedbackPayload{
		WorkspaceID: workspaceID,
		ArtifactKey: artifactKey,
		Thread:      thread,
	})
	r.bus.Publish(workspace.EventFeedbackAdded, thread, bus.PublishOptions{
		AggregateType: workspace.AggregateFeedback,
		AggregateID:   thread.ID,
	})

	r.scheduleFeedbackUpsert(workspaceID, thread)
	return thread
}

// GetFeedbackForArtifact returns all threads on a workspace artifact.
func (r *Registry) GetFeedbackForArtifact(workspaceID, artifactKey string) []*workspace.FeedbackThread {
	artifactID := r.lookupArtifactID(workspaceID, artifactKey)
	if artifactID == "" {
		return nil
	}
	return r.feedback.GetThreadsForArtifact(artifactID)
}

// ResolveConflict delegates to the conflict detector and schedules no
// writes: resolution is pure bookkeeping on the detected record.
func (r *Registry) ResolveConflict(conflictID string, strategy workspace.ResolutionStrategy, resolvedBy string, opts conflict.ResolveOptions) *workspace.Conflict {
	return r.conflicts.ResolveConflict(conflictID, strategy, resolvedBy, opts)
}

// GetConflictsForWorkspace returns a workspace's conflicts in detection
// order.
func (r *Registry) GetConflictsForWorkspace(workspaceID string) []*workspace.Conflict {
	return r.conflicts.GetConflictsForWorkspace(workspaceID)
}

// GetActiveConflicts returns every unresolved conflict across workspaces.
func (r *Registry) GetActiveConflicts() []*workspace.Conflict {
	return r.conflicts.GetActiveConflicts()
}

func (r *Registry) lookupArtifactID(workspaceID, artifactKey string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[workspaceID]
	if !ok {
		log.Printf("[Registry] Lookup failed: unknown workspace %s", workspaceID)
		return ""
	}
	artifactID, ok := ws.Artifacts[artifactKey]
	if !ok {
		log.Printf("[Registry] Lookup failed: workspace %s has no artifact %q", workspaceID, artifactKey)
		return ""
	}
	return artifactID
}
