package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/warrenhq/warren/internal/bus"
)

// RedisStore implements Store on a Redis server. All keys and channels are
// namespaced by instance name. The store is safe for concurrent use.
type RedisStore struct {
	rdb          *redis.Client
	instanceName string
}

// NewRedisStore creates a store for the specified instance.
// Returns an error if instanceName is empty.
func NewRedisStore(redisOpts *redis.Options, instanceName string) (*RedisStore, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &RedisStore{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// UpsertWorkspace writes a workspace row and registers it in the workspace
// index. Soft-deleted rows stay in the index; readers filter on
// deleted_at_ms.
func (s *RedisStore) UpsertWorkspace(ctx context.Context, rec *WorkspaceRecord) error {
	hash, err := WorkspaceToHash(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize workspace: %w", err)
	}

	key := WorkspaceKey(s.instanceName, rec.WorkspaceID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, hash)
		pipe.SAdd(ctx, WorkspaceIndexKey(s.instanceName), rec.WorkspaceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write workspace to Redis: %w", err)
	}
	return nil
}

// UpsertBlackboardEntry writes an artifact's current state, guarded by the
// expected-version precondition: the stored version must equal the write's
// ExpectedVersion (0 for a first write). Stale or out-of-order writes are
// rejected with ErrVersionConflict; the WATCH makes the check-and-set
// atomic against concurrent writers.
func (s *RedisStore) UpsertBlackboardEntry(ctx context.Context, rec *BlackboardEntryRecord) error {
	hash, err := EntryToHash(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize blackboard entry: %w", err)
	}

	key := BlackboardEntryKey(s.instanceName, rec.WorkspaceID, rec.ArtifactKey)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		stored := 0
		current, err := tx.HGet(ctx, key, "version").Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			stored, _ = strconv.Atoi(current)
		}

		if stored != rec.ExpectedVersion {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hash)
			pipe.SAdd(ctx, BlackboardIndexKey(s.instanceName, rec.WorkspaceID), rec.ArtifactKey)
			return nil
		})
		return err
	}, key)

	if err == ErrVersionConflict {
		return fmt.Errorf("entry %s/%s at version %d: %w",
			rec.WorkspaceID, rec.ArtifactKey, rec.ExpectedVersion, ErrVersionConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to write blackboard entry to Redis: %w", err)
	}
	return nil
}

// SaveBlackboardFeedback writes a feedback row and registers it in the
// workspace's feedback index.
func (s *RedisStore) SaveBlackboardFeedback(ctx context.Context, rec *FeedbackRecord) error {
	hash, err := FeedbackToHash(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize feedback: %w", err)
	}

	key := FeedbackKey(s.instanceName, rec.WorkspaceID, rec.FeedbackID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, hash)
		pipe.SAdd(ctx, FeedbackIndexKey(s.instanceName, rec.WorkspaceID), rec.FeedbackID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write feedback to Redis: %w", err)
	}
	return nil
}

// SaveWorkspaceSnapshot appends a snapshot to the workspace's snapshot
// list. Snapshots are JSON blobs, never mutated after write.
func (s *RedisStore) SaveWorkspaceSnapshot(ctx context.Context, rec *SnapshotRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := SnapshotsKey(s.instanceName, rec.WorkspaceID)
	if err := s.rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to append snapshot to Redis: %w", err)
	}
	return nil
}

// ListWorkspaces returns every persisted workspace row, soft-deleted rows
// included. Hydration filters the tombstones.
func (s *RedisStore) ListWorkspaces(ctx context.Context) ([]*WorkspaceRecord, error) {
	ids, err := s.rdb.SMembers(ctx, WorkspaceIndexKey(s.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace index: %w", err)
	}

	out := make([]*WorkspaceRecord, 0, len(ids))
	for _, id := range ids {
		hash, err := s.rdb.HGetAll(ctx, WorkspaceKey(s.instanceName, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read workspace %s: %w", id, err)
		}
		if len(hash) == 0 {
			continue
		}
		rec, err := HashToWorkspace(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize workspace %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListBlackboardEntries returns every blackboard entry of a workspace.
func (s *RedisStore) ListBlackboardEntries(ctx context.Context, workspaceID string) ([]*BlackboardEntryRecord, error) {
	keys, err := s.rdb.SMembers(ctx, BlackboardIndexKey(s.instanceName, workspaceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read blackboard index: %w", err)
	}

	out := make([]*BlackboardEntryRecord, 0, len(keys))
	for _, artifactKey := range keys {
		hash, err := s.rdb.HGetAll(ctx, BlackboardEntryKey(s.instanceName, workspaceID, artifactKey)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %s: %w", artifactKey, err)
		}
		if len(hash) == 0 {
			continue
		}
		rec, err := HashToEntry(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize entry %s: %w", artifactKey, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListBlackboardFeedback returns every feedback row of a workspace.
func (s *RedisStore) ListBlackboardFeedback(ctx context.Context, workspaceID string) ([]*FeedbackRecord, error) {
	ids, err := s.rdb.SMembers(ctx, FeedbackIndexKey(s.instanceName, workspaceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback index: %w", err)
	}

	out := make([]*FeedbackRecord, 0, len(ids))
	for _, id := range ids {
		hash, err := s.rdb.HGetAll(ctx, FeedbackKey(s.instanceName, workspaceID, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read feedback %s: %w", id, err)
		}
		if len(hash) == 0 {
			continue
		}
		rec, err := HashToFeedback(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize feedback %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListWorkspaceSnapshots returns a workspace's snapshots in append order.
func (s *RedisStore) ListWorkspaceSnapshots(ctx context.Context, workspaceID string) ([]*SnapshotRecord, error) {
	blobs, err := s.rdb.LRange(ctx, SnapshotsKey(s.instanceName, workspaceID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}

	out := make([]*SnapshotRecord, 0, len(blobs))
	for _, blob := range blobs {
		var rec SnapshotRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

// RecordEvent appends the envelope to the durable event log and publishes
// it on the instance's events channel for live subscribers.
func (s *RedisStore) RecordEvent(ctx context.Context, env bus.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, EventLogKey(s.instanceName), data)
		pipe.Publish(ctx, EventsChannel(s.instanceName), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}
