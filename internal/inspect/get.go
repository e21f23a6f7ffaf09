package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/warrenhq/warren/internal/persist"
)

// GetEntry retrieves a single blackboard entry by artifact key and writes
// it as pretty-printed JSON to the writer. Returns an EntryNotFoundError
// if no entry exists under the key.
func GetEntry(ctx context.Context, store persist.Store, workspaceID, artifactKey string, w io.Writer) error {
	records, err := store.ListBlackboardEntries(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to fetch entries: %w", err)
	}

	for _, rec := range records {
		if rec.ArtifactKey == artifactKey {
			if err := FormatSingleJSON(w, rec); err != nil {
				return fmt.Errorf("failed to format entry: %w", err)
			}
			return nil
		}
	}

	return &EntryNotFoundError{WorkspaceID: workspaceID, ArtifactKey: artifactKey}
}

// EntryNotFoundError represents a specific "entry not found" error,
// allowing callers to distinguish not-found from other failures.
type EntryNotFoundError struct {
	WorkspaceID string
	ArtifactKey string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("workspace '%s' has no artifact '%s'", e.WorkspaceID, e.ArtifactKey)
}

// IsNotFound returns true if the error is an EntryNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*EntryNotFoundError)
	return ok
}
