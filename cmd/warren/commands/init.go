package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warrenhq/warren/internal/config"
	"github.com/warrenhq/warren/internal/printer"
)

var forceInit bool

const starterConfig = `# Warren engine configuration
version: "1.0"

instance:
  name: warren

redis:
  addr: localhost:6379

engine:
  # Concurrent-edit detection window in milliseconds
  # (omit for the default of five minutes)
  # conflict_window_ms: 300000
  default_project: default
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter warren.yml",
	Long: `Write a starter warren.yml in the current directory.

The config names the engine instance (which namespaces every Redis key)
and points at the Redis server holding the durable state.

Use --force to overwrite an existing warren.yml.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing warren.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceInit {
		if _, err := os.Stat(config.DefaultFileName); err == nil {
			return printer.Error(
				fmt.Sprintf("%s already exists", config.DefaultFileName),
				"Refusing to overwrite the existing configuration.",
				[]string{"Re-run with --force to overwrite it"},
			)
		}
	}

	if err := os.WriteFile(config.DefaultFileName, []byte(starterConfig), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.DefaultFileName, err)
	}

	printer.Success("Created %s\n", config.DefaultFileName)
	printer.Info("Edit redis.addr to point at your Redis server, then try:\n  warren workspaces\n")
	return nil
}
