package workspace

// Event names published by the collaboration engine. Subscribers receive a
// typed payload per event name; the payload types are documented next to
// each constant and dispatched by a switch at the subscriber boundary.
const (
	// EventWorkspaceCreated carries *Workspace
	EventWorkspaceCreated = "workspace:created"

	// EventWorkspaceStatusChanged carries StatusChangedPayload
	EventWorkspaceStatusChanged = "workspace:status:changed"

	// EventWorkspaceOpened carries LifecyclePayload
	EventWorkspaceOpened = "workspace:opened"

	// EventWorkspaceClosed carries LifecyclePayload
	EventWorkspaceClosed = "workspace:closed"

	// EventWorkspaceArchived carries LifecyclePayload
	EventWorkspaceArchived = "workspace:archived"

	// EventWorkspaceDeleted carries LifecyclePayload
	EventWorkspaceDeleted = "workspace:deleted"

	// EventMemberAdded carries MemberPayload
	EventMemberAdded = "workspace:member:added"

	// EventMemberRemoved carries MemberPayload
	EventMemberRemoved = "workspace:member:removed"

	// EventWorkspaceArtifactUpdated carries ArtifactPayload
	EventWorkspaceArtifactUpdated = "workspace:artifact:updated"

	// EventWorkspaceArtifactRollback carries ArtifactPayload
	EventWorkspaceArtifactRollback = "workspace:artifact:rollback"

	// EventArtifactVersionUpdated carries *ArtifactVersion. Published by the
	// versioning store on every create/update/rollback; the conflict
	// detector scans on it synchronously.
	EventArtifactVersionUpdated = "artifact:version:updated"

	// EventWorkspaceFeedbackAdded carries FeedbackPayload
	EventWorkspaceFeedbackAdded = "workspace:feedback:added"

	// EventFeedbackAdded carries *FeedbackThread. Subsystem-scoped twin of
	// EventWorkspaceFeedbackAdded for consumers without workspace context.
	EventFeedbackAdded = "feedback:added"

	// EventFeedbackCritical carries *FeedbackThread
	EventFeedbackCritical = "feedback:critical"

	// EventWorkspaceCriticalFeedback carries FeedbackPayload. Republished by
	// the registry when it observes EventFeedbackCritical.
	EventWorkspaceCriticalFeedback = "workspace:critical_feedback"

	// EventConflictDetected carries *Conflict
	EventConflictDetected = "workspace:conflict:detected"

	// EventConflictResolved carries *Conflict
	EventConflictResolved = "workspace:conflict:resolved"

	// EventCompliancePackageGenerated carries *CompliancePackage
	EventCompliancePackageGenerated = "workspace:compliance:package_generated"

	// EventCompliancePackageSigned carries SignaturePayload
	EventCompliancePackageSigned = "workspace:compliance:package_signed"
)

// Aggregate types used on event envelopes for persistence partitioning.
const (
	AggregateWorkspace  = "workspace"
	AggregateBlackboard = "blackboard"
	AggregateFeedback   = "feedback"
	AggregateConflict   = "conflict"
	AggregateCompliance = "compliance"
)

// StatusChangedPayload accompanies EventWorkspaceStatusChanged.
type StatusChangedPayload struct {
	WorkspaceID string `json:"workspace_id"`
	OldStatus   Status `json:"old_status"`
	NewStatus   Status `json:"new_status"`
	UpdatedBy   string `json:"updated_by"`
}

// LifecyclePayload accompanies open/close/archive/delete events.
type LifecyclePayload struct {
	WorkspaceID string `json:"workspace_id"`
	Actor       string `json:"actor"`
	Reason      string `json:"reason,omitempty"`
}

// MemberPayload accompanies membership events.
type MemberPayload struct {
	WorkspaceID string `json:"workspace_id"`
	Member      string `json:"member"`
	Actor       string `json:"actor"`
}

// ArtifactPayload accompanies workspace-scoped artifact events.
type ArtifactPayload struct {
	WorkspaceID string           `json:"workspace_id"`
	ArtifactKey string           `json:"artifact_key"`
	Version     *ArtifactVersion `json:"version"`
}

// FeedbackPayload accompanies workspace-scoped feedback events.
type FeedbackPayload struct {
	WorkspaceID string          `json:"workspace_id"`
	ArtifactKey string          `json:"artifact_key"`
	Thread      *FeedbackThread `json:"thread"`
}

// SignaturePayload accompanies EventCompliancePackageSigned.
type SignaturePayload struct {
	PackageID   string    `json:"package_id"`
	WorkspaceID string    `json:"workspace_id"`
	Signature   Signature `json:"signature"`
}
