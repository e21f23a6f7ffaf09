package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var workspacesShowDeleted bool

var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "List persisted workspaces",
	Long: `List every workspace persisted by the engine instance.

Soft-deleted workspaces are hidden by default; pass --deleted to include
them with their deletion timestamp.

Examples:
  # List live workspaces
  warren workspaces

  # Include tombstoned workspaces
  warren workspaces --deleted`,
	RunE: runWorkspaces,
}

func init() {
	workspacesCmd.Flags().BoolVar(&workspacesShowDeleted, "deleted", false, "Include soft-deleted workspaces")
	rootCmd.AddCommand(workspacesCmd)
}

func runWorkspaces(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAtMs < records[j].CreatedAtMs
	})

	shown := 0
	for _, rec := range records {
		if rec.DeletedAtMs != 0 && !workspacesShowDeleted {
			continue
		}
		if shown == 0 {
			fmt.Printf("Workspaces for instance '%s':\n\n", cfg.Instance.Name)
			fmt.Printf("%-38s %-20s %-10s %-12s %-24s %s\n",
				"ID", "NAME", "STATUS", "PROJECT", "MEMBERS", "ARTIFACTS")
		}

		status := rec.Status
		if rec.DeletedAtMs != 0 {
			status = fmt.Sprintf("deleted %s", time.UnixMilli(rec.DeletedAtMs).UTC().Format("2006-01-02"))
		}
		fmt.Printf("%-38s %-20s %-10s %-12s %-24s %d\n",
			rec.WorkspaceID,
			rec.Name,
			status,
			rec.ProjectID,
			strings.Join(rec.Members, ","),
			len(rec.ArtifactMap),
		)
		shown++
	}

	if shown == 0 {
		fmt.Printf("No workspaces found for instance '%s'\n", cfg.Instance.Name)
	} else {
		noun := "workspace"
		if shown != 1 {
			noun = "workspaces"
		}
		fmt.Printf("\n%d %s found\n", shown, noun)
	}
	return nil
}
