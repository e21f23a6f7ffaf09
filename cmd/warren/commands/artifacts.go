package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warrenhq/warren/internal/inspect"
	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/internal/timespec"
)

var (
	artifactsOutputFormat string
	artifactsSince        string
	artifactsUntil        string
	artifactsKeyGlob      string
	artifactsAuthor       string
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts WORKSPACE_ID [ARTIFACT_KEY]",
	Short: "Inspect a workspace's persisted artifacts",
	Long: `Inspect a workspace's persisted artifact entries in list or get mode.

List Mode (no ARTIFACT_KEY):
  Displays the latest committed version of every artifact in the
  workspace as a table or line-delimited JSON.

Get Mode (with ARTIFACT_KEY):
  Displays the complete entry for one artifact as pretty-printed JSON.

Examples:
  # List all artifacts in a workspace
  warren artifacts 7b0a...

  # Only artifacts written in the last hour by alice
  warren artifacts 7b0a... --since 1h --author alice

  # Stream entries for processing with jq
  warren artifacts 7b0a... --output=jsonl | jq .payload.version

  # Full detail for one artifact
  warren artifacts 7b0a... readme`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runArtifacts,
}

func init() {
	artifactsCmd.Flags().StringVarP(&artifactsOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")
	artifactsCmd.Flags().StringVar(&artifactsSince, "since", "", "Only entries written after this time ('1h30m' or RFC3339)")
	artifactsCmd.Flags().StringVar(&artifactsUntil, "until", "", "Only entries written before this time ('1h30m' or RFC3339)")
	artifactsCmd.Flags().StringVar(&artifactsKeyGlob, "key", "", "Glob pattern on the artifact key, e.g. '*.yml'")
	artifactsCmd.Flags().StringVar(&artifactsAuthor, "author", "", "Only entries whose latest version is by this author")
	rootCmd.AddCommand(artifactsCmd)
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	workspaceID := args[0]
	isGetMode := len(args) > 1

	var outputFormat inspect.OutputFormat
	if !isGetMode {
		switch artifactsOutputFormat {
		case "default":
			outputFormat = inspect.OutputFormatDefault
		case "jsonl":
			outputFormat = inspect.OutputFormatJSONL
		default:
			return printer.Error(
				"invalid output format",
				fmt.Sprintf("Unknown format: %s", artifactsOutputFormat),
				[]string{"Valid formats: default, jsonl"},
			)
		}
	}

	sinceMs, untilMs, err := timespec.ParseRange(artifactsSince, artifactsUntil)
	if err != nil {
		return err
	}

	store, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if isGetMode {
		artifactKey := args[1]
		if err := inspect.GetEntry(ctx, store, workspaceID, artifactKey, os.Stdout); err != nil {
			if inspect.IsNotFound(err) {
				return printer.Error(
					fmt.Sprintf("artifact '%s' not found", artifactKey),
					fmt.Sprintf("Workspace '%s' has no persisted entry under that key.", workspaceID),
					[]string{fmt.Sprintf("List the workspace's artifacts:\n  warren artifacts %s", workspaceID)},
				)
			}
			return fmt.Errorf("failed to get artifact: %w", err)
		}
		return nil
	}

	filters := &inspect.FilterCriteria{
		SinceTimestampMs: sinceMs,
		UntilTimestampMs: untilMs,
		KeyGlob:          artifactsKeyGlob,
		Author:           artifactsAuthor,
	}
	if err := inspect.ListEntries(ctx, store, workspaceID, outputFormat, filters, os.Stdout); err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}
	return nil
}
