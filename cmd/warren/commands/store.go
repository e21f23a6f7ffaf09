package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/warrenhq/warren/internal/config"
	"github.com/warrenhq/warren/internal/persist"
	"github.com/warrenhq/warren/internal/printer"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFileName, "Path to warren.yml")
}

// openStore loads warren.yml, connects to the configured Redis server, and
// verifies connectivity. Callers own closing the returned store.
func openStore(ctx context.Context) (*persist.RedisStore, *config.WarrenConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, printer.Error(
			"failed to load configuration",
			fmt.Sprintf("Error: %v", err),
			[]string{
				"Create a starter config:\n  warren init",
				fmt.Sprintf("Point at an existing one:\n  warren --config path/to/%s ...", config.DefaultFileName),
			},
		)
	}

	store, err := persist.NewRedisStore(redisOptions(cfg), cfg.Instance.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, printer.Error(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s: %v", cfg.Redis.Addr, err),
			[]string{
				"Check the redis.addr in warren.yml",
				"Verify the server is reachable from this host",
			},
		)
	}

	return store, cfg, nil
}

func redisOptions(cfg *config.WarrenConfig) *redis.Options {
	return &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// requireArgs wraps cobra.ExactArgs with a friendlier message.
func requireArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("expected %d argument(s): %s", n, usage)
		}
		return nil
	}
}
