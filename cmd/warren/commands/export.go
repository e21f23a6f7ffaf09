package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warrenhq/warren/internal/persist"
	"github.com/warrenhq/warren/internal/printer"
)

var exportCmd = &cobra.Command{
	Use:   "export WORKSPACE_ID",
	Short: "Export a workspace's persisted state as JSON",
	Long: `Export a workspace's persisted state (the workspace record, the
latest committed version of every artifact, and all feedback threads)
as one pretty-printed JSON document on stdout.

Examples:
  warren export 7b0a... > workspace.json`,
	Args: requireArgs(1, "warren export WORKSPACE_ID"),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	workspaceID := args[0]

	store, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	var ws *persist.WorkspaceRecord
	for _, rec := range records {
		if rec.WorkspaceID == workspaceID {
			ws = rec
			break
		}
	}
	if ws == nil {
		return printer.Error(
			fmt.Sprintf("workspace '%s' not found", workspaceID),
			"No persisted workspace matches that id.",
			[]string{"List workspaces:\n  warren workspaces --deleted"},
		)
	}

	entries, err := store.ListBlackboardEntries(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	feedback, err := store.ListBlackboardFeedback(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	payload := persist.SnapshotPayload{
		Workspace: ws,
		Artifacts: entries,
		Feedback:  feedback,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
