// Package registry implements the workspace registry: workspace identity,
// membership, status lifecycle, and the artifact-key to artifact-id mapping.
// It is the orchestration point that composes the versioning store, the
// feedback store, and the conflict detector, publishes every state change
// on the event bus, and schedules durable writes.
//
// All services are explicitly constructed and injected; there is no hidden
// global instance. Callers create one registry at startup and pass it by
// reference.
package registry

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/internal/conflict"
	"github.com/warrenhq/warren/internal/feedback"
	"github.com/warrenhq/warren/internal/persist"
	"github.com/warrenhq/warren/internal/versioning"
	"github.com/warrenhq/warren/pkg/workspace"
)

// Registry owns the in-memory workspace map and the secondary artifact
// index. In-memory state is authoritative; persistence is fire-and-forget
// behind the scheduler and reconciled by expected-version checks.
type Registry struct {
	mu                sync.Mutex
	bus               *bus.Bus
	clock             *workspace.Clock
	versions          *versioning.Store
	feedback          *feedback.Store
	conflicts         *conflict.Detector
	workspaces        map[string]*workspace.Workspace
	artifactIndex     map[string]string // artifactID -> workspaceID
	activeWorkspaceID string

	store            persist.Store
	sched            *persist.Scheduler
	detachDispatcher func()
	unsubCritical    func()
}

// New creates a registry over explicitly constructed collaborators.
func New(b *bus.Bus, clock *workspace.Clock, versions *versioning.Store, fb *feedback.Store, conflicts *conflict.Detector) *Registry {
	r := &Registry{
		bus:           b,
		clock:         clock,
		versions:      versions,
		feedback:      fb,
		conflicts:     conflicts,
		workspaces:    make(map[string]*workspace.Workspace),
		artifactIndex: make(map[string]string),
		sched:         persist.NewScheduler(),
	}
	r.unsubCritical = b.Subscribe(workspace.EventFeedbackCritical, r.onCriticalFeedback)
	return r
}

// NewDefault wires a complete engine: clock, bus, versioning store,
// feedback store, conflict detector, and the registry composing them.
func NewDefault() *Registry {
	clock := workspace.NewClock()
	b := bus.New(clock)
	versions := versioning.NewStore(b, clock)
	fb := feedback.NewStore(b, clock)
	detector := conflict.NewDetector(b, versions, clock, 0)
	return New(b, clock, versions, fb, detector)
}

// Bus returns the event bus the registry publishes on.
func (r *Registry) Bus() *bus.Bus { return r.bus }

// Versions returns the artifact versioning store.
func (r *Registry) Versions() *versioning.Store { return r.versions }

// Feedback returns the feedback thread store.
func (r *Registry) Feedback() *feedback.Store { return r.feedback }

// Conflicts returns the conflict detector/resolver.
func (r *Registry) Conflicts() *conflict.Detector { return r.conflicts }

// CreateOptions carry the optional fields of CreateWorkspace.
type CreateOptions struct {
	Description string
	Members     []string
	Metadata    map[string]any
}

// CreateWorkspace registers a new active workspace. Members default to the
// creator; the creator is always first in the member list.
func (r *Registry) CreateWorkspace(projectID, name, createdBy string, opts CreateOptions) *workspace.Workspace {
	now := r.clock.NowMs()

	members := []string{createdBy}
	for _, m := range opts.Members {
		if m != createdBy {
			members = append(members, m)
		}
	}

	ws := &workspace.Workspace{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Name:        name,
		Description: opts.Description,
		Status:      workspace.StatusActive,
		CreatedAtMs: now,
		UpdatedAtMs: now,
		CreatedBy:   createdBy,
		Members:     members,
		Artifacts:   make(map[string]string),
		Metadata:    opts.Metadata,
	}

	r.mu.Lock()
	r.workspaces[ws.ID] = ws
	r.mu.Unlock()

	r.publishWorkspace(workspace.EventWorkspaceCreated, ws.ID, ws)
	r.scheduleWorkspaceUpsert(ws, 0)
	return ws
}

// UpdateWorkspaceStatus transitions a workspace's lifecycle state. Returns
// nil if the workspace is unknown or the status invalid.
func (r *Registry) UpdateWorkspaceStatus(workspaceID string, newStatus workspace.Status, updatedBy string) *workspace.Workspace {
	if err := newStatus.Validate(); err != nil {
		log.Printf("[Registry] Status change rejected for %s: %v", workspaceID, err)
		return nil
	}

	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Status change rejected: unknown workspace %s", workspaceID)
		return nil
	}
	oldStatus := ws.Status
	ws.Status = newStatus
	ws.UpdatedAtMs = r.clock.NowMs()
	r.mu.Unlock()

	r.publishWorkspace(workspace.EventWorkspaceStatusChanged, ws.ID, workspace.StatusChangedPayload{
		WorkspaceID: ws.ID,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		UpdatedBy:   updatedBy,
	})
	if newStatus == workspace.StatusArchived {
		r.publishWorkspace(workspace.EventWorkspaceArchived, ws.ID, workspace.LifecyclePayload{
			WorkspaceID: ws.ID,
			Actor:       updatedBy,
		})
	}
	r.scheduleWorkspaceUpsert(ws, 0)
	return ws
}

// AddMember adds an actor to the workspace. Idempotent: adding an existing
// member is a no-op that returns the workspace unchanged and fires no
// event.
func (r *Registry) AddMember(workspaceID, member, actor string) *workspace.Workspace {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Add member rejected: unknown workspace %s", workspaceID)
		return nil
	}
	if ws.HasMember(member) {
		r.mu.Unlock()
		return ws
	}
	ws.Members = append(ws.Members, member)
	ws.UpdatedAtMs = r.clock.NowMs()
	r.mu.Unlock()

	r.publishWorkspace(workspace.EventMemberAdded, ws.ID, workspace.MemberPayload{
		WorkspaceID: ws.ID,
		Member:      member,
		Actor:       actor,
	})
	r.scheduleWorkspaceUpsert(ws, 0)
	return ws
}

// RemoveMember removes an actor from the workspace. Idempotent: removing
// an absent member is a no-op that returns the workspace unchanged.
func (r *Registry) RemoveMember(workspaceID, member, actor string) *workspace.Workspace {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Remove member rejected: unknown workspace %s", workspaceID)
		return nil
	}
	if !ws.HasMember(member) {
		r.mu.Unlock()
		return ws
	}
	for i, m := range ws.Members {
		if m == member {
			ws.Members = append(ws.Members[:i:i], ws.Members[i+1:]...)
			break
		}
	}
	ws.UpdatedAtMs = r.clock.NowMs()
	r.mu.Unlock()

	r.publishWorkspace(workspace.EventMemberRemoved, ws.ID, workspace.MemberPayload{
		WorkspaceID: ws.ID,
		Member:      member,
		Actor:       actor,
	})
	r.scheduleWorkspaceUpsert(ws, 0)
	return ws
}

// OpenWorkspace marks a workspace as the process's active workspace.
// Returns nil if the workspace is unknown.
func (r *Registry) OpenWorkspace(workspaceID, actor string) *workspace.Workspace {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Open rejected: unknown workspace %s", workspaceID)
		return nil
	}
	r.activeWorkspaceID = workspaceID
	r.mu.Unlock()

	r.publishWorkspace(workspace.EventWorkspaceOpened, ws.ID, workspace.LifecyclePayload{
		WorkspaceID: ws.ID,
		Actor:       actor,
	})
	return ws
}

// CloseWorkspace stamps the workspace closed and clears the active marker
// if it pointed here. Returns nil if the workspace is unknown.
func (r *Registry) CloseWorkspace(workspaceID, actor string) *workspace.Workspace {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Close rejected: unknown workspace %s", workspaceID)
		return nil
	}
	ws.ClosedAtMs = r.clock.NowMs()
	ws.UpdatedAtMs = ws.ClosedAtMs
	if r.activeWorkspaceID == workspaceID {
		r.activeWorkspaceID = ""
	}
	r.mu.Unlock()

	r.publishWorkspace(workspace.EventWorkspaceClosed, ws.ID, workspace.LifecyclePayload{
		WorkspaceID: ws.ID,
		Actor:       actor,
	})
	r.scheduleWorkspaceUpsert(ws, 0)
	return ws
}

// ArchiveWorkspace is shorthand for transitioning a workspace to archived.
func (r *Registry) ArchiveWorkspace(workspaceID, actor string) *workspace.Workspace {
	return r.UpdateWorkspaceStatus(workspaceID, workspace.StatusArchived, actor)
}

// DeleteWorkspace removes a workspace and its conflict index from memory.
// Persistence receives a soft-delete upsert: the record keeps its status
// and gains a deleted_at_ms stamp, preserving the audit trail. Returns
// false if the workspace is unknown.
func (r *Registry) DeleteWorkspace(workspaceID, deletedBy, reason string) bool {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Delete rejected: unknown workspace %s", workspaceID)
		return false
	}
	delete(r.workspaces, workspaceID)
	for artifactID, wsID := range r.artifactIndex {
		if wsID == workspaceID {
			delete(r.artifactIndex, artifactID)
		}
	}
	if r.activeWorkspaceID == workspaceID {
		r.activeWorkspaceID = ""
	}
	deletedAt := r.clock.NowMs()
	r.mu.Unlock()

	r.conflicts.UnregisterWorkspace(workspaceID)

	r.publishWorkspace(workspace.EventWorkspaceDeleted, workspaceID, workspace.LifecyclePayload{
		WorkspaceID: workspaceID,
		Actor:       deletedBy,
		Reason:      reason,
	})
	r.scheduleWorkspaceUpsert(ws, deletedAt)
	return true
}

// GetWorkspace returns a workspace by id, or nil.
func (r *Registry) GetWorkspace(workspaceID string) *workspace.Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workspaces[workspaceID]
}

// GetWorkspacesForProject returns every workspace of a project.
func (r *Registry) GetWorkspacesForProject(projectID string) []*workspace.Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*workspace.Workspace
	for _, ws := range r.workspaces {
		if ws.ProjectID == projectID {
			out = append(out, ws)
		}
	}
	return out
}

// GetActiveWorkspace returns the workspace last opened with OpenWorkspace,
// or nil if none is open.
func (r *Registry) GetActiveWorkspace() *workspace.Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeWorkspaceID == "" {
		return nil
	}
	return r.workspaces[r.activeWorkspaceID]
}

// onCriticalFeedback republishes a critical feedback thread with workspace
// context for subscribers that only listen at the workspace scope.
func (r *Registry) onCriticalFeedback(env bus.Envelope) {
	thread, ok := env.Payload.(*workspace.FeedbackThread)
	if !ok {
		return
	}

	r.mu.Lock()
	workspaceID, ok := r.artifactIndex[thread.ArtifactID]
	if !ok {
		r.mu.Unlock()
		return
	}
	artifactKey := ""
	if ws := r.workspaces[workspaceID]; ws != nil {
		for key, id := range ws.Artifacts {
			if id == thread.ArtifactID {
				artifactKey = key
				break
			}
		}
	}
	r.mu.Unlock()

	r.publishWorkspace(workspace.EventWorkspaceCriticalFeedback, workspaceID, workspace.FeedbackPayload{
		WorkspaceID: workspaceID,
		ArtifactKey: artifactKey,
		Thread:      thread,
	})
}

func (r *Registry) publishWorkspace(event, workspaceID string, payload any) {
	r.bus.Publish(event, payload, bus.PublishOptions{
		AggregateType: workspace.AggregateWorkspace,
		AggregateID:   workspaceID,
	})
}
