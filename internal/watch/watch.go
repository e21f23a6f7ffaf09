// Package watch streams live engine activity from the durable event
// mirror.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warrenhq/warren/internal/persist"
)

// Tail subscribes to the instance's events channel and writes each event
// envelope as one JSON line until the context is done.
func Tail(ctx context.Context, rdb *redis.Client, instanceName string, w io.Writer) error {
	sub := rdb.Subscribe(ctx, persist.EventsChannel(instanceName))
	defer sub.Close()

	// Confirm the subscription before reporting we are tailing
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to events channel: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fmt.Fprintln(w, msg.Payload)
		}
	}
}

// WaitForVersion polls the persisted entry until its committed version
// reaches at least minVersion. Returns the entry or an error on timeout.
// Polls every 200ms for the specified timeout duration.
func WaitForVersion(ctx context.Context, store persist.Store, workspaceID, artifactKey string, minVersion int, timeout time.Duration) (*persist.BlackboardEntryRecord, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	check := func() (*persist.BlackboardEntryRecord, error) {
		entries, err := store.ListBlackboardEntries(ctx, workspaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to query entries: %w", err)
		}
		for _, entry := range entries {
			if entry.ArtifactKey == artifactKey && entry.Payload.Version >= minVersion {
				return entry, nil
			}
		}
		return nil, nil
	}

	// Check once up front so an already-committed version returns without
	// waiting a tick
	if entry, err := check(); err != nil || entry != nil {
		return entry, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for %s/%s to reach version %d after %v",
				workspaceID, artifactKey, minVersion, timeout)

		case <-ticker.C:
			entry, err := check()
			if err != nil {
				return nil, err
			}
			if entry != nil {
				return entry, nil
			}
		}
	}
}
