package registry

import (
	"context"
	"encoding/json"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/internal/persist"
	"github.com/warrenhq/warren/pkg/workspace"
)

// GenerateCompliancePackage assembles a read-only audit bundle for a
// workspace: every artifact's full version history plus its feedback
// threads, with counts summarized. Generation mutates nothing. Returns nil
// if the workspace is unknown.
func (r *Registry) GenerateCompliancePackage(workspaceID, generatedBy string) *workspace.CompliancePackage {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Compliance package rejected: unknown workspace %s", workspaceID)
		return nil
	}
	projectID := ws.ProjectID
	artifacts := make(map[string]string, len(ws.Artifacts))
	keys := make([]string, 0, len(ws.Artifacts))
	for key, id := range ws.Artifacts {
		artifacts[key] = id
		keys = append(keys, key)
	}
	r.mu.Unlock()

	// Stable artifact order so identical inputs produce identical packages.
	sort.Strings(keys)

	pkg := &workspace.CompliancePackage{
		PackageID:     uuid.New().String(),
		ProjectID:     projectID,
		WorkspaceID:   workspaceID,
		GeneratedAtMs: r.clock.NowMs(),
		GeneratedBy:   generatedBy,
	}

	for _, key := range keys {
		artifactID := artifacts[key]
		history := r.versions.GetVersionHistory(artifactID)
		threads := r.feedback.GetThreadsForArtifact(artifactID)

		var current *workspace.ArtifactVersion
		if len(history) > 0 {
			current = history[len(history)-1]
		}
		pkg.Artifacts = append(pkg.Artifacts, workspace.ComplianceArtifact{
			Key:             key,
			CurrentVersion:  current,
			VersionHistory:  history,
			FeedbackThreads: threads,
		})

		pkg.Summary.TotalVersions += len(history)
		pkg.Summary.TotalFeedback += len(threads)
		for _, thread := range threads {
			switch thread.Severity {
			case workspace.SeverityBlocking:
				pkg.Summary.BlockingFeedback++
			case workspace.SeverityCritical:
				pkg.Summary.CriticalFeedback++
			}
		}
	}
	pkg.Summary.ArtifactCount = len(artifacts)

	r.bus.Publish(workspace.EventCompliancePackageGenerated, pkg, bus.PublishOptions{
		AggregateType: workspace.AggregateCompliance,
		AggregateID:   pkg.PackageID,
	})
	return pkg
}

// AttachSignature appends an attestation to a generated package. Returns
// nil if the signature is invalid.
func (r *Registry) AttachSignature(pkg *workspace.CompliancePackage, sig workspace.Signature) *workspace.CompliancePackage {
	if err := sig.Validate(); err != nil {
		log.Printf("[Registry] Signature rejected for package %s: %v", pkg.PackageID, err)
		return nil
	}
	if sig.SignedAtMs == 0 {
		sig.SignedAtMs = r.clock.NowMs()
	}
	pkg.Signatures = append(pkg.Signatures, sig)

	r.bus.Publish(workspace.EventCompliancePackageSigned, workspace.SignaturePayload{
		PackageID:   pkg.PackageID,
		WorkspaceID: pkg.WorkspaceID,
		Signature:   sig,
	}, bus.PublishOptions{
		AggregateType: workspace.AggregateCompliance,
		AggregateID:   pkg.PackageID,
	})
	return pkg
}

// GetMetrics computes a workspace's live counters on demand. Returns nil
// if the workspace is unknown.
func (r *Registry) GetMetrics(workspaceID string) *workspace.WorkspaceMetrics {
	r.mu.Lock()
	ws, ok := r.workspaces[workspaceID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[Registry] Metrics rejected: unknown workspace %s", workspaceID)
		return nil
	}
	artifactIDs := make([]string, 0, len(ws.Artifacts))
	for _, id := range ws.Artifacts {
		artifactIDs = append(artifactIDs, id)
	}
	memberCount := len(ws.Members)
	r.mu.Unlock()

	m := &workspace.WorkspaceMetrics{
		WorkspaceID:   workspaceID,
		ArtifactCount: len(artifactIDs),
		MemberCount:   memberCount,
	}
	for _, artifactID := range artifactIDs {
		m.TotalVersions += len(r.versions.GetVersionHistory(artifactID))
		for _, thread := range r.feedback.GetThreadsForArtifact(artifactID) {
			m.TotalFeedback++
			if thread.Status == workspace.FeedbackStatusPending {
				m.PendingFeedback++
			}
		}
	}
	m.ActiveConflicts = r.conflicts.CountActiveForWorkspace(workspaceID)
	return m
}

// WorkspaceExport is the JSON shape produced by ExportWorkspace.
type WorkspaceExport struct {
	Workspace *workspace.Workspace           `json:"workspace"`
	Artifacts []workspace.ComplianceArtifact `json:"artifacts"`
	Conflicts []*workspace.Conflict          `json:"conflicts"`
	Metrics   *workspace.WorkspaceMetrics    `json:"metrics"`
}

// ExportWorkspace serializes a full workspace view to JSON and appends an
// export snapshot to persistence. Returns "" if the workspace is unknown
// or the contents cannot be marshalled.
func (r *Registry) ExportWorkspace(workspaceID, exportedBy string) string {
	pkg := r.GenerateCompliancePackage(workspaceID, exportedBy)
	if pkg == nil {
		return ""
	}

	export := WorkspaceExport{
		Workspace: r.GetWorkspace(workspaceID),
		Artifacts: pkg.Artifacts,
		Conflicts: r.conflicts.GetConflictsForWorkspace(workspaceID),
		Metrics:   r.GetMetrics(workspaceID),
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		log.Printf("[Registry] Export failed for workspace %s: %v", workspaceID, err)
		return ""
	}

	r.scheduleExportSnapshot(export.Workspace, exportedBy)
	return string(data)
}

func (r *Registry) scheduleExportSnapshot(ws *workspace.Workspace, exportedBy string) {
	r.mu.Lock()
	store := r.store
	if store == nil || ws == nil {
		r.mu.Unlock()
		return
	}
	rec := &persist.SnapshotRecord{
		WorkspaceID:  ws.ID,
		SnapshotType: "export",
		Payload: persist.SnapshotPayload{
			Workspace: workspaceRecord(ws, 0),
		},
		CreatedBy:   exportedBy,
		CreatedAtMs: r.clock.NowMs(),
	}
	r.mu.Unlock()

	r.sched.Schedule("snapshot:export "+ws.ID, func(ctx context.Context) error {
		return store.SaveWorkspaceSnapshot(ctx, rec)
	})
}
