package registry

import (
	"context"
	"fmt"
	"log"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/internal/persist"
	"github.com/warrenhq/warren/pkg/workspace"
)

// ConfigurePersistence attaches a durable store and hydrates in-memory
// state from it. Persisted workspaces, their latest artifact versions, and
// feedback threads are restored; soft-deleted workspaces are skipped.
// Hydration publishes no events and triggers no conflict scan. After this
// call every bus event is also mirrored into the store's event log.
//
// Read errors abort hydration and propagate: a store that answers but
// answers badly is a configuration problem, not a condition to limp past.
func (r *Registry) ConfigurePersistence(ctx context.Context, store persist.Store) error {
	records, err := store.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persisted workspaces: %w", err)
	}

	restored := 0
	for _, rec := range records {
		if rec.DeletedAtMs != 0 {
			continue
		}
		if err := r.hydrateWorkspace(ctx, store, rec); err != nil {
			return err
		}
		restored++
	}

	r.mu.Lock()
	r.store = store
	r.mu.Unlock()

	r.detachDispatcher = bus.AttachDurableDispatcher(r.bus, r.sched, store)

	log.Printf("[Registry] Persistence configured: %d workspace(s) hydrated", restored)
	return nil
}

// FlushPersistence blocks until every scheduled write has completed or the
// context is done.
func (r *Registry) FlushPersistence(ctx context.Context) error {
	return r.sched.Flush(ctx)
}

// PendingWrites returns how many scheduled writes have not completed yet.
func (r *Registry) PendingWrites() int {
	return r.sched.PendingCount()
}

// Close detaches the registry's bus subscriptions and the durable
// dispatcher. It does not flush or close the store.
func (r *Registry) Close() {
	if r.detachDispatcher != nil {
		r.detachDispatcher()
		r.detachDispatcher = nil
	}
	if r.unsubCritical != nil {
		r.unsubCritical()
		r.unsubCritical = nil
	}
	r.conflicts.Close()
}

func (r *Registry) hydrateWorkspace(ctx context.Context, store persist.Store, rec *persist.WorkspaceRecord) error {
	ws := &workspace.Workspace{
		ID:          rec.WorkspaceID,
		ProjectID:   rec.ProjectID,
		Name:        rec.Name,
		Description: rec.Description,
		Status:      workspace.Status(rec.Status),
		CreatedAtMs: rec.CreatedAtMs,
		UpdatedAtMs: rec.UpdatedAtMs,
		ClosedAtMs:  rec.ClosedAtMs,
		CreatedBy:   rec.CreatedBy,
		Members:     rec.Members,
		Artifacts:   make(map[string]string),
		Metadata:    rec.Metadata,
	}
	for key, artifactID := range rec.ArtifactMap {
		ws.Artifacts[key] = artifactID
	}

	entries, err := store.ListBlackboardEntries(ctx, rec.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to list entries for workspace %s: %w", rec.WorkspaceID, err)
	}
	for _, entry := range entries {
		if _, mapped := ws.Artifacts[entry.ArtifactKey]; !mapped {
			ws.Artifacts[entry.ArtifactKey] = entry.ArtifactID
		}
		r.versions.RestoreArtifactVersions(entry.ArtifactID, []*workspace.ArtifactVersion{restoredVersion(entry)})
		r.conflicts.RegisterArtifact(entry.ArtifactID, rec.WorkspaceID, entry.ArtifactKey)
	}

	feedbackRows, err := store.ListBlackboardFeedback(ctx, rec.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to list feedback for workspace %s: %w", rec.WorkspaceID, err)
	}
	for _, row := range feedbackRows {
		r.feedback.RestoreThread(restoredThread(row))
	}

	r.mu.Lock()
	r.workspaces[ws.ID] = ws
	for _, artifactID := range ws.Artifacts {
		r.artifactIndex[artifactID] = ws.ID
	}
	r.mu.Unlock()
	return nil
}

// restoredVersion rebuilds a single-version history stub from a persisted
// entry. Only the latest version survives persistence, so the lineage is
// synthesized from the artifact id and the version counter, and the stub is
// marked so readers can tell it apart from a live history.
func restoredVersion(entry *persist.BlackboardEntryRecord) *workspace.ArtifactVersion {
	lineage := make([]string, 0, entry.Payload.Version-1)
	for i := 1; i < entry.Payload.Version; i++ {
		lineage = append(lineage, fmt.Sprintf("%s-v%d", entry.ArtifactID, i))
	}

	meta := map[string]any{"restoredFromPersistence": true}
	for k, v := range entry.Payload.Metadata {
		meta[k] = v
	}

	changeType := workspace.ChangeType(entry.Payload.ChangeType)
	if changeType == "" {
		changeType = workspace.ChangeTypeUpdate
	}

	return &workspace.ArtifactVersion{
		ID:          fmt.Sprintf("%s-v%d", entry.ArtifactID, entry.Payload.Version),
		ArtifactID:  entry.ArtifactID,
		Version:     entry.Payload.Version,
		Data:        entry.Payload.Data,
		Source:      entry.Source,
		Author:      entry.Payload.Author,
		TimestampMs: entry.Payload.TimestampMs,
		ChangeType:  changeType,
		Lineage:     lineage,
		Metadata:    meta,
	}
}

// restoredThread rebuilds a feedback thread from a persisted row. Full
// comment history is carried in the row's metadata; rows written before
// that field existed fall back to a single comment synthesized from the
// initial content.
func restoredThread(row *persist.FeedbackRecord) *workspace.FeedbackThread {
	comments := row.Metadata.Comments
	if len(comments) == 0 {
		comments = []workspace.FeedbackComment{
			{
				ID:          row.FeedbackID + "-c1",
				Author:      row.SourceActor,
				Content:     row.Content,
				CreatedAtMs: row.CreatedAtMs,
			},
		}
	}

	return &workspace.FeedbackThread{
		ID:          row.FeedbackID,
		ArtifactID:  row.TargetID,
		Author:      row.SourceActor,
		Severity:    workspace.Severity(row.Severity),
		Status:      workspace.FeedbackStatus(row.Status),
		Comments:    comments,
		Tags:        row.Metadata.Tags,
		Location:    row.Metadata.Location,
		CreatedAtMs: row.CreatedAtMs,
		UpdatedAtMs: row.UpdatedAtMs,
	}
}

// scheduleWorkspaceUpsert snapshots the workspace row under the lock and
// schedules its write. A non-zero deletedAt tombstones the row.
func (r *Registry) scheduleWorkspaceUpsert(ws *workspace.Workspace, deletedAt int64) {
	r.mu.Lock()
	store := r.store
	if store == nil {
		r.mu.Unlock()
		return
	}
	rec := workspaceRecord(ws, deletedAt)
	r.mu.Unlock()

	r.sched.Schedule("workspace:upsert "+ws.ID, func(ctx context.Context) error {
		return store.UpsertWorkspace(ctx, rec)
	})
}

// scheduleEntryUpsert schedules the artifact's latest version for durable
// write. The expected predecessor version lets the store reject stale or
// out-of-order arrivals regardless of goroutine scheduling.
func (r *Registry) scheduleEntryUpsert(workspaceID, artifactKey, artifactID, artifactType, source string, v *workspace.ArtifactVersion) {
	r.mu.Lock()
	store := r.store
	r.mu.Unlock()
	if store == nil {
		return
	}

	if artifactType == "" {
		artifactType = "artifact"
	}
	rec := &persist.BlackboardEntryRecord{
		WorkspaceID:  workspaceID,
		ArtifactKey:  artifactKey,
		ArtifactID:   artifactID,
		ArtifactType: artifactType,
		Source:       source,
		Payload: persist.ArtifactPayload{
			Data:        v.Data,
			Version:     v.Version,
			Author:      v.Author,
			TimestampMs: v.TimestampMs,
			ChangeType:  string(v.ChangeType),
			Metadata:    v.Metadata,
		},
		ExpectedVersion: v.Version - 1,
	}

	r.sched.Schedule(fmt.Sprintf("entry:upsert %s/%s v%d", workspaceID, artifactKey, v.Version), func(ctx context.Context) error {
		return store.UpsertBlackboardEntry(ctx, rec)
	})
}

func (r *Registry) scheduleFeedbackUpsert(workspaceID string, thread *workspace.FeedbackThread) {
	r.mu.Lock()
	store := r.store
	r.mu.Unlock()
	if store == nil {
		return
	}

	rec := feedbackRecord(workspaceID, thread)
	r.sched.Schedule("feedback:upsert "+thread.ID, func(ctx context.Context) error {
		return store.SaveBlackboardFeedback(ctx, rec)
	})
}

// workspaceRecord snapshots a workspace into its persisted shape. Caller
// holds r.mu.
func workspaceRecord(ws *workspace.Workspace, deletedAt int64) *persist.WorkspaceRecord {
	members := make([]string, len(ws.Members))
	copy(members, ws.Members)
	artifactMap := make(map[string]string, len(ws.Artifacts))
	for key, id := range ws.Artifacts {
		artifactMap[key] = id
	}

	return &persist.WorkspaceRecord{
		WorkspaceID: ws.ID,
		ProjectID:   ws.ProjectID,
		Name:        ws.Name,
		Description: ws.Description,
		Status:      string(ws.Status),
		CreatedBy:   ws.CreatedBy,
		Members:     members,
		ArtifactMap: artifactMap,
		Metadata:    ws.Metadata,
		CreatedAtMs: ws.CreatedAtMs,
		UpdatedAtMs: ws.UpdatedAtMs,
		ClosedAtMs:  ws.ClosedAtMs,
		DeletedAtMs: deletedAt,
	}
}

func feedbackRecord(workspaceID string, thread *workspace.FeedbackThread) *persist.FeedbackRecord {
	content := ""
	if len(thread.Comments) > 0 {
		content = thread.Comments[0].Content
	}
	comments := make([]workspace.FeedbackComment, len(thread.Comments))
	copy(comments, thread.Comments)

	return &persist.FeedbackRecord{
		WorkspaceID: workspaceID,
		FeedbackID:  thread.ID,
		TargetID:    thread.ArtifactID,
		SourceActor: thread.Author,
		Content:     content,
		Severity:    string(thread.Severity),
		Status:      string(thread.Status),
		Metadata: persist.FeedbackMetadata{
			Comments: comments,
			Tags:     thread.Tags,
			Location: thread.Location,
		},
		CreatedAtMs: thread.CreatedAtMs,
		UpdatedAtMs: thread.UpdatedAtMs,
	}
}
