package persist

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so
// multiple Warren instances can safely coexist on a single Redis server.
//
// Key pattern: warren:{instance_name}:{entity}:...
// Channel pattern: warren:{instance_name}:events

// WorkspaceKey returns the Redis key for a workspace hash.
// Pattern: warren:{instance_name}:workspace:{workspace_id}
func WorkspaceKey(instanceName, workspaceID string) string {
	return fmt.Sprintf("warren:%s:workspace:%s", instanceName, workspaceID)
}

// WorkspaceIndexKey returns the Redis key for the set of workspace ids.
// Pattern: warren:{instance_name}:workspaces
func WorkspaceIndexKey(instanceName string) string {
	return fmt.Sprintf("warren:%s:workspaces", instanceName)
}

// BlackboardEntryKey returns the Redis key for a blackboard entry hash.
// Pattern: warren:{instance_name}:blackboard:{workspace_id}:{artifact_key}
func BlackboardEntryKey(instanceName, workspaceID, artifactKey string) string {
	return fmt.Sprintf("warren:%s:blackboard:%s:%s", instanceName, workspaceID, artifactKey)
}

// BlackboardIndexKey returns the Redis key for a workspace's set of
// artifact keys.
// Pattern: warren:{instance_name}:blackboard_index:{workspace_id}
func BlackboardIndexKey(instanceName, workspaceID string) string {
	return fmt.Sprintf("warren:%s:blackboard_index:%s", instanceName, workspaceID)
}

// FeedbackKey returns the Redis key for a feedback row hash.
// Pattern: warren:{instance_name}:feedback:{workspace_id}:{feedback_id}
func FeedbackKey(instanceName, workspaceID, feedbackID string) string {
	return fmt.Sprintf("warren:%s:feedback:%s:%s", instanceName, workspaceID, feedbackID)
}

// FeedbackIndexKey returns the Redis key for a workspace's set of feedback
// ids.
// Pattern: warren:{instance_name}:feedback_index:{workspace_id}
func FeedbackIndexKey(instanceName, workspaceID string) string {
	return fmt.Sprintf("warren:%s:feedback_index:%s", instanceName, workspaceID)
}

// SnapshotsKey returns the Redis key for a workspace's snapshot list.
// Pattern: warren:{instance_name}:snapshots:{workspace_id}
func SnapshotsKey(instanceName, workspaceID string) string {
	return fmt.Sprintf("warren:%s:snapshots:%s", instanceName, workspaceID)
}

// EventLogKey returns the Redis key for the durable event log list.
// Pattern: warren:{instance_name}:event_log
func EventLogKey(instanceName string) string {
	return fmt.Sprintf("warren:%s:event_log", instanceName)
}

// EventsChannel returns the Pub/Sub channel name for engine events.
// Pattern: warren:{instance_name}:events
func EventsChannel(instanceName string) string {
	return fmt.Sprintf("warren:%s:events", instanceName)
}
