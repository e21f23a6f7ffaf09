package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live engine events",
	Long: `Stream the engine's event mirror as line-delimited JSON until
interrupted.

Every bus event the engine publishes (workspace lifecycle, artifact
versions, feedback, conflicts) is mirrored to the instance's Redis
channel; this command tails that channel.

Examples:
  # Watch everything
  warren watch

  # Filter with jq
  warren watch | jq 'select(.event == "workspace:conflict:detected")'`,
	RunE: runWatchEvents,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatchEvents(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rdb := redis.NewClient(redisOptions(cfg))
	defer rdb.Close()

	printer.Step("Watching events for instance '%s' (Ctrl+C to stop)\n", cfg.Instance.Name)

	err = watch.Tail(ctx, rdb, cfg.Instance.Name, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
