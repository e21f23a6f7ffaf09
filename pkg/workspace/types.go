package workspace

import (
	"fmt"

	"github.com/google/uuid"
)

// Workspace is a scoped collaboration context for a project. It owns the
// membership list and the artifact key to artifact id mapping. Artifact keys
// are unique within a workspace; artifact ids are globally unique.
type Workspace struct {
	ID          string            `json:"id"`         // UUID - unique identifier for this workspace
	ProjectID   string            `json:"project_id"` // Caller-supplied project identifier
	Name        string            `json:"name"`       // Human-readable workspace name
	Description string            `json:"description,omitempty"`
	Status      Status            `json:"status"`        // Lifecycle state
	CreatedAtMs int64             `json:"created_at_ms"` // Unix milliseconds, monotonic clock
	UpdatedAtMs int64             `json:"updated_at_ms"` // Bumped by every mutation, strictly increasing
	ClosedAtMs  int64             `json:"closed_at_ms,omitempty"`
	CreatedBy   string            `json:"created_by"`
	Members     []string          `json:"members"`   // Ordered set of actor ids, no duplicates
	Artifacts   map[string]string `json:"artifacts"` // artifactKey -> artifactID
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// Status defines the lifecycle state of a workspace.
// Artifacts are immutable unless the workspace is active.
type Status string

const (
	// StatusActive is the only state that accepts artifact writes
	StatusActive Status = "active"

	// StatusArchived marks a workspace kept for audit only
	StatusArchived Status = "archived"

	// StatusFrozen blocks writes while keeping the workspace visible
	StatusFrozen Status = "frozen"

	// StatusMerging marks a workspace whose artifacts are being folded into another
	StatusMerging Status = "merging"
)

// ChangeType describes how an artifact version came to exist.
type ChangeType string

const (
	// ChangeTypeCreate is the first version of an artifact
	ChangeTypeCreate ChangeType = "create"

	// ChangeTypeUpdate is a normal successor version
	ChangeTypeUpdate ChangeType = "update"

	// ChangeTypeRollback copies the data of an earlier version into a new head version
	ChangeTypeRollback ChangeType = "rollback"
)

// ArtifactVersion is one immutable entry in an artifact's append-only
// history. Version numbers start at 1 and increase strictly by one; the
// lineage holds the ids of all prior versions, so len(Lineage) == Version-1.
type ArtifactVersion struct {
	ID                string         `json:"id"`          // Version id (UUID, or synthesized on hydration)
	ArtifactID        string         `json:"artifact_id"` // Globally unique artifact id
	Version           int            `json:"version"`     // Starts at 1, increments by 1
	Data              any            `json:"data"`        // Artifact payload, JSON-serialized at the persistence boundary
	Source            string         `json:"source"`      // Producing subsystem (e.g. "agent", "user")
	Author            string         `json:"author"`      // Actor id that produced this version
	TimestampMs       int64          `json:"timestamp_ms"`
	ChangeType        ChangeType     `json:"change_type"`
	ChangeDescription string         `json:"change_description,omitempty"`
	Lineage           []string       `json:"lineage"` // Ordered ids of all prior versions
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// ConflictStatus defines the lifecycle state of a detected conflict.
type ConflictStatus string

const (
	ConflictStatusDetected  ConflictStatus = "detected"
	ConflictStatusResolving ConflictStatus = "resolving"
	ConflictStatusResolved  ConflictStatus = "resolved"
	ConflictStatusRejected  ConflictStatus = "rejected"
)

// ResolutionStrategy names how a conflict was settled.
type ResolutionStrategy string

const (
	ResolutionLastWriteWins ResolutionStrategy = "last-write-wins"
	ResolutionMerge         ResolutionStrategy = "merge"
	ResolutionReject        ResolutionStrategy = "reject"
	ResolutionManual        ResolutionStrategy = "manual"
)

// Conflict records two versions of the same artifact authored by different
// actors within the detection window. Resolution is bookkeeping only: the
// engine never applies the winning data back onto the artifact itself.
type Conflict struct {
	ID           string              `json:"id"`
	WorkspaceID  string              `json:"workspace_id"`
	ArtifactKey  string              `json:"artifact_key"`
	Agent1       string              `json:"agent1"`   // Author of the earlier version
	Agent2       string              `json:"agent2"`   // Author of the later version
	Version1     int                 `json:"version1"` // Earlier version number
	Version2     int                 `json:"version2"` // Later version number
	DetectedAtMs int64               `json:"detected_at_ms"`
	Status       ConflictStatus      `json:"status"`
	Resolution   *ConflictResolution `json:"resolution,omitempty"`
}

// ConflictResolution stamps how and by whom a conflict was settled.
type ConflictResolution struct {
	Strategy       ResolutionStrategy `json:"strategy"`
	ResolvedBy     string             `json:"resolved_by"`
	ResolvedAtMs   int64              `json:"resolved_at_ms"`
	WinningVersion int                `json:"winning_version,omitempty"`
	MergedData     any                `json:"merged_data,omitempty"`
	Reason         string             `json:"reason,omitempty"`
}

// Validate checks if the Workspace has valid field values.
// Returns an error if any validation fails.
func (w *Workspace) Validate() error {
	if !isValidUUID(w.ID) {
		return fmt.Errorf("invalid workspace ID: not a valid UUID")
	}

	if w.ProjectID == "" {
		return fmt.Errorf("project ID cannot be empty")
	}

	if w.Name == "" {
		return fmt.Errorf("workspace name cannot be empty")
	}

	if err := w.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if w.CreatedBy == "" {
		return fmt.Errorf("created_by cannot be empty")
	}

	seen := make(map[string]bool, len(w.Members))
	for i, member := range w.Members {
		if member == "" {
			return fmt.Errorf("empty member at index %d", i)
		}
		if seen[member] {
			return fmt.Errorf("duplicate member %q", member)
		}
		seen[member] = true
	}

	return nil
}

// HasMember reports whether the actor is already in the membership list.
func (w *Workspace) HasMember(actor string) bool {
	for _, m := range w.Members {
		if m == actor {
			return true
		}
	}
	return false
}

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusActive, StatusArchived, StatusFrozen, StatusMerging:
		return nil
	default:
		return fmt.Errorf("unknown workspace status: %q", s)
	}
}

// Validate checks if the ChangeType is a valid enum value.
func (ct ChangeType) Validate() error {
	switch ct {
	case ChangeTypeCreate, ChangeTypeUpdate, ChangeTypeRollback:
		return nil
	default:
		return fmt.Errorf("unknown change type: %q", ct)
	}
}

// Validate checks if the ArtifactVersion has valid field values.
func (v *ArtifactVersion) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("version ID cannot be empty")
	}

	if v.ArtifactID == "" {
		return fmt.Errorf("artifact ID cannot be empty")
	}

	if v.Version < 1 {
		return fmt.Errorf("invalid version: must be >= 1, got %d", v.Version)
	}

	if err := v.ChangeType.Validate(); err != nil {
		return fmt.Errorf("invalid change type: %w", err)
	}

	if v.Author == "" {
		return fmt.Errorf("author cannot be empty")
	}

	if len(v.Lineage) != v.Version-1 {
		return fmt.Errorf("lineage length %d does not match version %d (want %d)",
			len(v.Lineage), v.Version, v.Version-1)
	}

	return nil
}

// Validate checks if the ConflictStatus is a valid enum value.
func (cs ConflictStatus) Validate() error {
	switch cs {
	case ConflictStatusDetected, ConflictStatusResolving,
		ConflictStatusResolved, ConflictStatusRejected:
		return nil
	default:
		return fmt.Errorf("unknown conflict status: %q", cs)
	}
}

// Validate checks if the ResolutionStrategy is a valid enum value.
func (rs ResolutionStrategy) Validate() error {
	switch rs {
	case ResolutionLastWriteWins, ResolutionMerge, ResolutionReject, ResolutionManual:
		return nil
	default:
		return fmt.Errorf("unknown resolution strategy: %q", rs)
	}
}

// Validate checks if the Conflict has valid field values.
func (c *Conflict) Validate() error {
	if !isValidUUID(c.ID) {
		return fmt.Errorf("invalid conflict ID: not a valid UUID")
	}

	if c.WorkspaceID == "" {
		return fmt.Errorf("workspace ID cannot be empty")
	}

	if c.Agent1 == "" || c.Agent2 == "" {
		return fmt.Errorf("conflict agents cannot be empty")
	}

	if c.Agent1 == c.Agent2 {
		return fmt.Errorf("conflict agents must differ, got %q twice", c.Agent1)
	}

	if c.Version1 < 1 || c.Version2 <= c.Version1 {
		return fmt.Errorf("invalid version pair: %d, %d", c.Version1, c.Version2)
	}

	return c.Status.Validate()
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
