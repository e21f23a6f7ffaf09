package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/warrenhq/warren/internal/persist"
)

// FormatTable writes entries as a formatted table to the provided writer.
// Columns: KEY, VER, TYPE, AUTHOR, AGE, and DATA (truncated).
// Returns the number of entries formatted.
func FormatTable(w io.Writer, entries []*persist.BlackboardEntryRecord, workspaceID string) int {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No artifacts found for workspace '%s'\n", workspaceID)
		return 0
	}

	fmt.Fprintf(w, "Artifacts for workspace '%s':\n\n", workspaceID)

	fmt.Fprintf(w, "%-20s %-5s %-12s %-14s %-8s %s\n",
		"KEY", "VER", "TYPE", "AUTHOR", "AGE", "DATA")
	fmt.Fprintf(w, "%-20s %-5s %-12s %-14s %-8s %s\n",
		"--------------------", "-----", "------------", "--------------", "--------", "----------------------------------------")

	for _, e := range entries {
		fmt.Fprintf(w, "%-20s %-5s %-12s %-14s %-8s %s\n",
			truncate(e.ArtifactKey, 20),
			formatVersion(e.Payload.Version),
			truncate(e.ArtifactType, 12),
			formatAuthor(e.Payload.Author),
			formatTimestamp(e.Payload.TimestampMs),
			formatData(e.Payload.Data),
		)
	}

	countMsg := "artifact"
	if len(entries) != 1 {
		countMsg = "artifacts"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(entries), countMsg)

	return len(entries)
}

// FormatFeedbackTable writes feedback rows as a formatted table.
// Columns: ARTIFACT, SEVERITY, STATUS, BY, AGE, and TITLE (first comment).
func FormatFeedbackTable(w io.Writer, rows []*persist.FeedbackRecord, workspaceID string) int {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No feedback found for workspace '%s'\n", workspaceID)
		return 0
	}

	fmt.Fprintf(w, "Feedback for workspace '%s':\n\n", workspaceID)

	fmt.Fprintf(w, "%-24s %-10s %-12s %-14s %-8s %s\n",
		"ARTIFACT", "SEVERITY", "STATUS", "BY", "AGE", "COMMENT")
	fmt.Fprintf(w, "%-24s %-10s %-12s %-14s %-8s %s\n",
		"------------------------", "----------", "------------", "--------------", "--------", "----------------------------------------")

	for _, r := range rows {
		fmt.Fprintf(w, "%-24s %-10s %-12s %-14s %-8s %s\n",
			truncate(r.TargetID, 24),
			r.Severity,
			r.Status,
			formatAuthor(r.SourceActor),
			formatTimestamp(r.UpdatedAtMs),
			formatData(r.Content),
		)
	}

	countMsg := "thread"
	if len(rows) != 1 {
		countMsg = "threads"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(rows), countMsg)

	return len(rows)
}

// FormatJSONL writes entries as line-delimited JSON (JSONL) to the
// provided writer. Ideal for streaming and processing with tools like jq.
func FormatJSONL(w io.Writer, entries []*persist.BlackboardEntryRecord) error {
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes a single entry as pretty-printed JSON to the
// provided writer. Used in get mode to display complete entry details.
func FormatSingleJSON(w io.Writer, entry *persist.BlackboardEntryRecord) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// truncate shortens a value for compact column display.
func truncate(s string, max int) string {
	if s == "" {
		return "-"
	}
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// formatData renders the first line of an entry's data, truncated to 40
// characters for table display. Empty data returns "-".
func formatData(data any) string {
	if data == nil {
		return "-"
	}

	text := fmt.Sprintf("%v", data)
	var firstLine string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			firstLine = trimmed
			break
		}
	}
	if firstLine == "" {
		return "-"
	}

	if len(firstLine) > 40 {
		return firstLine[:37] + "..."
	}
	return firstLine
}

func formatAuthor(author string) string {
	if author == "" {
		return "-"
	}
	return author
}

// formatVersion shows "v2", "v3", etc. for later versions, or "-" for the
// initial version.
func formatVersion(version int) string {
	if version <= 1 {
		return "-"
	}
	return fmt.Sprintf("v%d", version)
}

// formatTimestamp renders a millisecond timestamp as relative age, like
// "2m ago" or "1h ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	t := time.Unix(timestampMs/1000, (timestampMs%1000)*1000000)
	diff := time.Since(t)

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}
