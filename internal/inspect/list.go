// Package inspect implements the read-only CLI views over persisted
// workspace state: artifact entries, feedback rows, and single-entry
// detail.
package inspect

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/warrenhq/warren/internal/persist"
)

// OutputFormat specifies how to format the entry list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated payloads
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete entries as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// FilterCriteria defines filtering options for the artifacts command.
// All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	KeyGlob          string // Glob pattern for the artifact key, empty = no filter
	Author           string // Exact match on the latest version's author, empty = no filter
}

// matchesFilter returns true if the entry matches all filter criteria.
func (fc *FilterCriteria) matchesFilter(rec *persist.BlackboardEntryRecord) bool {
	if fc.SinceTimestampMs > 0 && rec.Payload.TimestampMs < fc.SinceTimestampMs {
		return false
	}
	if fc.UntilTimestampMs > 0 && rec.Payload.TimestampMs > fc.UntilTimestampMs {
		return false
	}

	if fc.KeyGlob != "" {
		matched, err := filepath.Match(fc.KeyGlob, rec.ArtifactKey)
		if err != nil || !matched {
			return false
		}
	}

	if fc.Author != "" && rec.Payload.Author != fc.Author {
		return false
	}

	return true
}

// ListEntries retrieves a workspace's blackboard entries and writes them to
// the provided writer. Applies filter criteria if provided; sorts by latest
// write time for stable chronological output.
func ListEntries(ctx context.Context, store persist.Store, workspaceID string, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	records, err := store.ListBlackboardEntries(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	entries := make([]*persist.BlackboardEntryRecord, 0, len(records))
	for _, rec := range records {
		if filters != nil && !filters.matchesFilter(rec) {
			continue
		}
		entries = append(entries, rec)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Payload.TimestampMs < entries[j].Payload.TimestampMs
	})

	switch format {
	case OutputFormatDefault:
		FormatTable(w, entries, workspaceID)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, entries); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// ListFeedback retrieves a workspace's feedback rows and writes them as a
// table, most recent activity last.
func ListFeedback(ctx context.Context, store persist.Store, workspaceID string, w io.Writer) error {
	rows, err := store.ListBlackboardFeedback(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UpdatedAtMs < rows[j].UpdatedAtMs
	})

	FormatFeedbackTable(w, rows, workspaceID)
	return nil
}
