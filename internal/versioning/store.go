// Package versioning owns the append-only version history of every
// artifact, keyed by artifact id and independent of any workspace. Version
// numbers increase strictly by one; history is never rewritten, rollback
// included.
package versioning

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/pkg/workspace"
)

// Store holds per-artifact version histories in memory. Every successful
// create/update/rollback publishes artifact:version:updated on the bus; the
// hydration restore path is the one write that does not.
type Store struct {
	mu        sync.Mutex
	bus       *bus.Bus
	clock     *workspace.Clock
	histories map[string][]*workspace.ArtifactVersion
}

// NewStore creates a versioning store publishing on the given bus.
func NewStore(b *bus.Bus, clock *workspace.Clock) *Store {
	return &Store{
		bus:       b,
		clock:     clock,
		histories: make(map[string][]*workspace.ArtifactVersion),
	}
}

// CreateVersion starts an artifact's history at version 1 with an empty
// lineage. Returns nil if the artifact already has history.
func (s *Store) CreateVersion(artifactID string, data any, source, author, desc string, meta map[string]any) *workspace.ArtifactVersion {
	s.mu.Lock()
	if _, exists := s.histories[artifactID]; exists {
		s.mu.Unlock()
		log.Printf("[Versioning] Create rejected: artifact %s already has history", artifactID)
		return nil
	}

	v := &workspace.ArtifactVersion{
		ID:                uuid.New().String(),
		ArtifactID:        artifactID,
		Version:           1,
		Data:              data,
		Source:            source,
		Author:            author,
		TimestampMs:       s.clock.NowMs(),
		ChangeType:        workspace.ChangeTypeCreate,
		ChangeDescription: desc,
		Lineage:           []string{},
		Metadata:          meta,
	}
	s.histories[artifactID] = []*workspace.ArtifactVersion{v}
	s.mu.Unlock()

	s.publish(v)
	return v
}

// UpdateVersion appends the next version of an existing artifact. The new
// lineage is the previous lineage plus the previous version's id. Returns
// nil if the artifact id is unknown.
func (s *Store) UpdateVersion(artifactID string, data any, source, author, desc string, meta map[string]any) *workspace.ArtifactVersion {
	s.mu.Lock()
	history, ok := s.histories[artifactID]
	if !ok {
		s.mu.Unlock()
		log.Printf("[Versioning] Update rejected: unknown artifact %s", artifactID)
		return nil
	}

	prev := history[len(history)-1]
	v := &workspace.ArtifactVersion{
		ID:                uuid.New().String(),
		ArtifactID:        artifactID,
		Version:           prev.Version + 1,
		Data:              data,
		Source:            source,
		Author:            author,
		TimestampMs:       s.clock.NowMs(),
		ChangeType:        workspace.ChangeTypeUpdate,
		ChangeDescription: desc,
		Lineage:           extendLineage(prev),
		Metadata:          meta,
	}
	s.histories[artifactID] = append(history, v)
	s.mu.Unlock()

	s.publish(v)
	return v
}

// RollbackToVersion copies the data of the target version into a brand-new
// version at the head of history. The rolled-back-from versions stay
// visible; nothing is truncated. Returns nil if the artifact or the target
// version does not exist.
func (s *Store) RollbackToVersion(artifactID string, targetVersion int, author, reason string) *workspace.ArtifactVersion {
	s.mu.Lock()
	history, ok := s.histories[artifactID]
	if !ok {
		s.mu.Unlock()
		log.Printf("[Versioning] Rollback rejected: unknown artifact %s", artifactID)
		return nil
	}

	var target *workspace.ArtifactVersion
	for _, v := range history {
		if v.Version == targetVersion {
			target = v
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		log.Printf("[Versioning] Rollback rejected: artifact %s has no version %d", artifactID, targetVersion)
		return nil
	}

	desc := reason
	if desc == "" {
		desc = fmt.Sprintf("rollback to version %d", targetVersion)
	}

	prev := history[len(history)-1]
	v := &workspace.ArtifactVersion{
		ID:                uuid.New().String(),
		ArtifactID:        artifactID,
		Version:           prev.Version + 1,
		Data:              target.Data,
		Source:            target.Source,
		Author:            author,
		TimestampMs:       s.clock.NowMs(),
		ChangeType:        workspace.ChangeTypeRollback,
		ChangeDescription: desc,
		Lineage:           extendLineage(prev),
		Metadata: map[string]any{
			"rollback_to_version": targetVersion,
			"rollback_to_id":      target.ID,
		},
	}
	s.histories[artifactID] = append(history, v)
	s.mu.Unlock()

	s.publish(v)
	return v
}

// GetCurrentVersion returns the head version, or nil if the artifact is
// unknown.
func (s *Store) GetCurrentVersion(artifactID string) *workspace.ArtifactVersion {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.histories[artifactID]
	if !ok || len(history) == 0 {
		return nil
	}
	return history[len(history)-1]
}

// GetVersionHistory returns the full history in version order. The slice is
// a copy; the versions themselves are shared and immutable.
func (s *Store) GetVersionHistory(artifactID string) []*workspace.ArtifactVersion {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.histories[artifactID]
	out := make([]*workspace.ArtifactVersion, len(history))
	copy(out, history)
	return out
}

// GetCurrentVersionNumber returns the head version number, or 0 if the
// artifact is unknown.
func (s *Store) GetCurrentVersionNumber(artifactID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.histories[artifactID]
	if !ok || len(history) == 0 {
		return 0
	}
	return history[len(history)-1].Version
}

// RestoreArtifactVersions seeds an artifact's history during hydration.
// It replaces any existing history, publishes no events, and triggers no
// conflict scan. This is the only write allowed outside the normal
// create/update protocol.
func (s *Store) RestoreArtifactVersions(artifactID string, versions []*workspace.ArtifactVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]*workspace.ArtifactVersion, len(versions))
	copy(history, versions)
	s.histories[artifactID] = history
}

func (s *Store) publish(v *workspace.ArtifactVersion) {
	s.bus.Publish(workspace.EventArtifactVersionUpdated, v, bus.PublishOptions{
		AggregateType: workspace.AggregateBlackboard,
		AggregateID:   v.ArtifactID,
	})
}

func extendLineage(prev *workspace.ArtifactVersion) []string {
	lineage := make([]string, 0, len(prev.Lineage)+1)
	lineage = append(lineage, prev.Lineage...)
	return append(lineage, prev.ID)
}
