// Package persist is the durable storage boundary of the collaboration
// engine. The engine's in-memory state is authoritative; writes are
// scheduled fire-and-forget and reconciled by the store through
// expected-version preconditions rather than arrival order. The reverse
// path rebuilds in-memory state from these records at startup.
package persist

import (
	"context"
	"errors"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/pkg/workspace"
)

// ErrVersionConflict is returned by UpsertBlackboardEntry when the stored
// version does not match the write's expected predecessor version. The
// store, not the scheduler, is the final arbiter of persistence ordering.
var ErrVersionConflict = errors.New("blackboard entry version conflict")

// WorkspaceRecord is the persisted shape of a workspace. Deletion is a
// soft-delete: the record keeps its status and gains a DeletedAtMs stamp.
type WorkspaceRecord struct {
	WorkspaceID string            `json:"workspace_id"`
	ProjectID   string            `json:"project_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	CreatedBy   string            `json:"created_by"`
	Members     []string          `json:"members"`
	ArtifactMap map[string]string `json:"artifact_map"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAtMs int64             `json:"created_at_ms"`
	UpdatedAtMs int64             `json:"updated_at_ms"`
	ClosedAtMs  int64             `json:"closed_at_ms,omitempty"`
	DeletedAtMs int64             `json:"deleted_at_ms,omitempty"`
}

// ArtifactPayload is the versioned payload of a blackboard entry. Only the
// latest version is stored per entry; intermediate history is not retained
// by this store.
type ArtifactPayload struct {
	Data        any            `json:"data"`
	Version     int            `json:"version"`
	Author      string         `json:"author"`
	TimestampMs int64          `json:"timestamp_ms"`
	ChangeType  string         `json:"change_type"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// BlackboardEntryRecord is the persisted current state of one artifact in a
// workspace, addressed by (workspaceId, artifactKey).
type BlackboardEntryRecord struct {
	WorkspaceID     string          `json:"workspace_id"`
	ArtifactKey     string          `json:"artifact_key"`
	ArtifactID      string          `json:"artifact_id"`
	ArtifactType    string          `json:"artifact_type"`
	Source          string          `json:"source"`
	Payload         ArtifactPayload `json:"payload"`
	ExpectedVersion int             `json:"expected_version"` // Predecessor version this write assumes
}

// FeedbackMetadata carries the thread details folded into a feedback row.
type FeedbackMetadata struct {
	Comments []workspace.FeedbackComment `json:"comments,omitempty"`
	Tags     []string                    `json:"tags,omitempty"`
	Location string                      `json:"location,omitempty"`
}

// FeedbackRecord is the persisted shape of a feedback thread.
type FeedbackRecord struct {
	WorkspaceID string           `json:"workspace_id"`
	FeedbackID  string           `json:"feedback_id"`
	TargetID    string           `json:"target_id"` // Artifact id the thread is attached to
	SourceActor string           `json:"source_actor"`
	Content     string           `json:"content"` // Initial comment content
	Severity    string           `json:"severity"`
	Status      string           `json:"status"`
	Metadata    FeedbackMetadata `json:"metadata"`
	CreatedAtMs int64            `json:"created_at_ms"`
	UpdatedAtMs int64            `json:"updated_at_ms"`
}

// SnapshotPayload bundles a full workspace view at snapshot time.
type SnapshotPayload struct {
	Workspace *WorkspaceRecord         `json:"workspace"`
	Artifacts []*BlackboardEntryRecord `json:"artifacts"`
	Feedback  []*FeedbackRecord        `json:"feedback"`
}

// SnapshotRecord is an append-only full-state snapshot of a workspace.
type SnapshotRecord struct {
	WorkspaceID  string          `json:"workspace_id"`
	SnapshotType string          `json:"snapshot_type"`
	Payload      SnapshotPayload `json:"payload"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	CreatedBy    string          `json:"created_by"`
	CreatedAtMs  int64           `json:"created_at_ms"`
}

// Store is the contract the engine consumes for durability. Implementations
// must treat ExpectedVersion as a monotonic precondition on blackboard
// entries: a write whose predecessor version is not the one committed is
// rejected with ErrVersionConflict.
type Store interface {
	UpsertWorkspace(ctx context.Context, rec *WorkspaceRecord) error
	UpsertBlackboardEntry(ctx context.Context, rec *BlackboardEntryRecord) error
	SaveBlackboardFeedback(ctx context.Context, rec *FeedbackRecord) error
	SaveWorkspaceSnapshot(ctx context.Context, rec *SnapshotRecord) error

	ListWorkspaces(ctx context.Context) ([]*WorkspaceRecord, error)
	ListBlackboardEntries(ctx context.Context, workspaceID string) ([]*BlackboardEntryRecord, error)
	ListBlackboardFeedback(ctx context.Context, workspaceID string) ([]*FeedbackRecord, error)
	ListWorkspaceSnapshots(ctx context.Context, workspaceID string) ([]*SnapshotRecord, error)

	// RecordEvent mirrors a bus envelope into the durable event log and the
	// instance's live event channel.
	RecordEvent(ctx context.Context, env bus.Envelope) error

	Close() error
}
