// Package workspace defines the shared domain types for the Warren
// collaboration engine.
//
// # Overview
//
// Warren coordinates multiple autonomous agents collaborating on shared
// project artifacts inside scoped workspaces. The workspace is the unit of
// collaboration: it owns a membership list and a mapping of artifact keys to
// globally unique artifact ids. Every write to an artifact produces a new
// immutable version with complete provenance, so the full history of the
// collaboration can be audited and replayed.
//
// # Core Concepts
//
// Workspaces group agents and artifacts for one project. They move through a
// lifecycle (active, archived, frozen, merging); artifacts are only writable
// while the workspace is active.
//
// ArtifactVersions are immutable work products. Version numbers increase
// strictly by one starting at 1, and each version carries a lineage: the
// ordered list of prior version ids that led to it. Rollback copies the data
// of an earlier version into a brand-new version at the head of history;
// history is never rewritten.
//
// Conflicts record concurrent edits to the same artifact by different
// authors within a bounded time window. Resolution is bookkeeping: it stamps
// a strategy and resolver, but applying the chosen outcome back onto the
// artifact is the caller's responsibility.
//
// FeedbackThreads are severity-tagged discussions attached to an artifact.
// A thread with blocking or critical severity that is still pending or in
// progress makes the artifact "blocked".
//
// # Timestamps
//
// All timestamps are Unix milliseconds issued by a process-wide monotonic
// clock: every timestamp is strictly greater than the previous one issued by
// the same process, even when operations land in the same wall-clock
// millisecond.
package workspace
