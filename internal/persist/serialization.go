package persist

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between record structs and Redis
// hashes. Redis stores data as string-to-string maps; complex fields are
// JSON-encoded into single hash fields, which keeps scalar fields
// individually readable (the version field in particular, for the
// expected-version check) while leaving nested structures flexible.

// WorkspaceToHash converts a WorkspaceRecord to Redis hash format.
func WorkspaceToHash(rec *WorkspaceRecord) (map[string]interface{}, error) {
	membersJSON, err := json.Marshal(rec.Members)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal members: %w", err)
	}

	artifactMapJSON, err := json.Marshal(rec.ArtifactMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact_map: %w", err)
	}

	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return map[string]interface{}{
		"workspace_id":  rec.WorkspaceID,
		"project_id":    rec.ProjectID,
		"name":          rec.Name,
		"description":   rec.Description,
		"status":        rec.Status,
		"created_by":    rec.CreatedBy,
		"members":       string(membersJSON),
		"artifact_map":  string(artifactMapJSON),
		"metadata":      string(metadataJSON),
		"created_at_ms": rec.CreatedAtMs,
		"updated_at_ms": rec.UpdatedAtMs,
		"closed_at_ms":  rec.ClosedAtMs,
		"deleted_at_ms": rec.DeletedAtMs,
	}, nil
}

// HashToWorkspace converts a Redis hash back to a WorkspaceRecord.
func HashToWorkspace(hash map[string]string) (*WorkspaceRecord, error) {
	var members []string
	if s := hash["members"]; s != "" {
		if err := json.Unmarshal([]byte(s), &members); err != nil {
			return nil, fmt.Errorf("failed to unmarshal members: %w", err)
		}
	}
	if members == nil {
		members = []string{}
	}

	artifactMap := map[string]string{}
	if s := hash["artifact_map"]; s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &artifactMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifact_map: %w", err)
		}
	}

	var metadata map[string]any
	if s := hash["metadata"]; s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)
	closedAtMs, _ := strconv.ParseInt(hash["closed_at_ms"], 10, 64)
	deletedAtMs, _ := strconv.ParseInt(hash["deleted_at_ms"], 10, 64)

	return &WorkspaceRecord{
		WorkspaceID: hash["workspace_id"],
		ProjectID:   hash["project_id"],
		Name:        hash["name"],
		Description: hash["description"],
		Status:      hash["status"],
		CreatedBy:   hash["created_by"],
		Members:     members,
		ArtifactMap: artifactMap,
		Metadata:    metadata,
		CreatedAtMs: createdAtMs,
		UpdatedAtMs: updatedAtMs,
		ClosedAtMs:  closedAtMs,
		DeletedAtMs: deletedAtMs,
	}, nil
}

// EntryToHash converts a BlackboardEntryRecord to Redis hash format. The
// payload version is duplicated into a top-level "version" field so the
// expected-version precondition can be checked without decoding the
// payload.
func EntryToHash(rec *BlackboardEntryRecord) (map[string]interface{}, error) {
	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return map[string]interface{}{
		"workspace_id":     rec.WorkspaceID,
		"artifact_key":     rec.ArtifactKey,
		"artifact_id":      rec.ArtifactID,
		"artifact_type":    rec.ArtifactType,
		"source":           rec.Source,
		"payload":          string(payloadJSON),
		"version":          rec.Payload.Version,
		"expected_version": rec.ExpectedVersion,
	}, nil
}

// HashToEntry converts a Redis hash back to a BlackboardEntryRecord.
func HashToEntry(hash map[string]string) (*BlackboardEntryRecord, error) {
	var payload ArtifactPayload
	if s := hash["payload"]; s != "" {
		if err := json.Unmarshal([]byte(s), &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	expectedVersion, _ := strconv.Atoi(hash["expected_version"])

	return &BlackboardEntryRecord{
		WorkspaceID:     hash["workspace_id"],
		ArtifactKey:     hash["artifact_key"],
		ArtifactID:      hash["artifact_id"],
		ArtifactType:    hash["artifact_type"],
		Source:          hash["source"],
		Payload:         payload,
		ExpectedVersion: expectedVersion,
	}, nil
}

// FeedbackToHash converts a FeedbackRecord to Redis hash format.
func FeedbackToHash(rec *FeedbackRecord) (map[string]interface{}, error) {
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return map[string]interface{}{
		"workspace_id":  rec.WorkspaceID,
		"feedback_id":   rec.FeedbackID,
		"target_id":     rec.TargetID,
		"source_actor":  rec.SourceActor,
		"content":       rec.Content,
		"severity":      rec.Severity,
		"status":        rec.Status,
		"metadata":      string(metadataJSON),
		"created_at_ms": rec.CreatedAtMs,
		"updated_at_ms": rec.UpdatedAtMs,
	}, nil
}

// HashToFeedback converts a Redis hash back to a FeedbackRecord.
func HashToFeedback(hash map[string]string) (*FeedbackRecord, error) {
	var metadata FeedbackMetadata
	if s := hash["metadata"]; s != "" {
		if err := json.Unmarshal([]byte(s), &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	return &FeedbackRecord{
		WorkspaceID: hash["workspace_id"],
		FeedbackID:  hash["feedback_id"],
		TargetID:    hash["target_id"],
		SourceActor: hash["source_actor"],
		Content:     hash["content"],
		Severity:    hash["severity"],
		Status:      hash["status"],
		Metadata:    metadata,
		CreatedAtMs: createdAtMs,
		UpdatedAtMs: updatedAtMs,
	}, nil
}
