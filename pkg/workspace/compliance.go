package workspace

import "fmt"

// CompliancePackage is a point-in-time, signable export of a workspace's
// full artifact/version/feedback graph. Packages are immutable once
// generated; signatures are appended by a separate signing step.
type CompliancePackage struct {
	PackageID     string               `json:"package_id"`
	ProjectID     string               `json:"project_id"`
	WorkspaceID   string               `json:"workspace_id"`
	GeneratedAtMs int64                `json:"generated_at_ms"`
	GeneratedBy   string               `json:"generated_by"`
	Artifacts     []ComplianceArtifact `json:"artifacts"`
	Summary       ComplianceSummary    `json:"summary"`
	Signatures    []Signature          `json:"signatures"`
	Metadata      map[string]any       `json:"metadata,omitempty"`
}

// ComplianceArtifact is one artifact's full history inside a package.
type ComplianceArtifact struct {
	Key             string             `json:"key"`
	CurrentVersion  *ArtifactVersion   `json:"current_version"`
	VersionHistory  []*ArtifactVersion `json:"version_history"`
	FeedbackThreads []*FeedbackThread  `json:"feedback_threads"`
}

// ComplianceSummary carries the aggregate counts for a package.
type ComplianceSummary struct {
	ArtifactCount    int `json:"artifact_count"`
	TotalVersions    int `json:"total_versions"`
	TotalFeedback    int `json:"total_feedback"`
	BlockingFeedback int `json:"blocking_feedback"`
	CriticalFeedback int `json:"critical_feedback"`
}

// Signature is evidence recorded against a compliance package by the
// external signing subsystem. The engine only stores it.
type Signature struct {
	Signer     string `json:"signer"`
	Algorithm  string `json:"algorithm"`
	Value      string `json:"value"` // Encoded signature bytes, opaque to the engine
	SignedAtMs int64  `json:"signed_at_ms"`
}

// Validate checks that the signature carries a signer and a value.
func (s Signature) Validate() error {
	if s.Signer == "" {
		return fmt.Errorf("signature signer cannot be empty")
	}
	if s.Value == "" {
		return fmt.Errorf("signature value cannot be empty")
	}
	return nil
}

// WorkspaceMetrics is a derived read over one workspace's collaboration
// state. Computed on demand, never cached.
type WorkspaceMetrics struct {
	WorkspaceID     string `json:"workspace_id"`
	ArtifactCount   int    `json:"artifact_count"`
	TotalVersions   int    `json:"total_versions"`
	TotalFeedback   int    `json:"total_feedback"`
	PendingFeedback int    `json:"pending_feedback"`
	ActiveConflicts int    `json:"active_conflicts"`
	MemberCount     int    `json:"member_count"`
}
