package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warrenhq/warren/internal/inspect"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback WORKSPACE_ID",
	Short: "List a workspace's persisted feedback threads",
	Long: `List every feedback thread persisted for a workspace, ordered by
last activity.

Examples:
  warren feedback 7b0a...`,
	Args: requireArgs(1, "warren feedback WORKSPACE_ID"),
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := inspect.ListFeedback(ctx, store, args[0], os.Stdout); err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	return nil
}
