// Package feedback owns severity-tagged discussion threads attached to
// artifacts. Threads are keyed by artifact id, not workspace, so feedback
// travels with the artifact across workspace views.
package feedback

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/warrenhq/warren/internal/bus"
	"github.com/warrenhq/warren/pkg/workspace"
)

// Store holds feedback threads in memory. Creating a critical thread
// publishes feedback:critical; the registry republishes it with workspace
// context.
type Store struct {
	mu         sync.Mutex
	bus        *bus.Bus
	clock      *workspace.Clock
	byArtifact map[string][]*workspace.FeedbackThread
	byID       map[string]*workspace.FeedbackThread
}

// NewStore creates a feedback store publishing on the given bus.
func NewStore(b *bus.Bus, clock *workspace.Clock) *Store {
	return &Store{
		bus:        b,
		clock:      clock,
		byArtifact: make(map[string][]*workspace.FeedbackThread),
		byID:       make(map[string]*workspace.FeedbackThread),
	}
}

// ThreadOptions carry the optional fields of CreateThread.
type ThreadOptions struct {
	Tags     []string
	Location string
}

// CreateThread opens a new thread on an artifact with its initial comment.
// Returns nil if the severity is unknown.
func (s *Store) CreateThread(artifactID, author, title, comment string, severity workspace.Severity, opts ThreadOptions) *workspace.FeedbackThread {
	if err := severity.Validate(); err != nil {
		log.Printf("[Feedback] Thread rejected for artifact %s: %v", artifactID, err)
		return nil
	}

	now := s.clock.NowMs()
	thread := &workspace.FeedbackThread{
		ID:         uuid.New().String(),
		ArtifactID: artifactID,
		Author:     author,
		Title:      title,
		Severity:   severity,
		Status:     workspace.FeedbackStatusPending,
		Comments: []workspace.FeedbackComment{
			{
				ID:          uuid.New().String(),
				Author:      author,
				Content:     comment,
				CreatedAtMs: now,
			},
		},
		Tags:        opts.Tags,
		Location:    opts.Location,
		CreatedAtMs: now,
		UpdatedAtMs: now,
	}

	s.mu.Lock()
	s.byArtifact[artifactID] = append(s.byArtifact[artifactID], thread)
	s.byID[thread.ID] = thread
	s.mu.Unlock()

	if severity == workspace.SeverityCritical {
		s.bus.Publish(workspace.EventFeedbackCritical, thread, bus.PublishOptions{
			AggregateType: workspace.AggregateFeedback,
			AggregateID:   thread.ID,
		})
	}

	return thread
}

// AddComment appends a follow-up comment to an existing thread. Returns nil
// if the thread id is unknown.
func (s *Store) AddComment(threadID, author, content string) *workspace.FeedbackThread {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.byID[threadID]
	if !ok {
		log.Printf("[Feedback] Comment rejected: unknown thread %s", threadID)
		return nil
	}

	now := s.clock.NowMs()
	thread.Comments = append(thread.Comments, workspace.FeedbackComment{
		ID:          uuid.New().String(),
		Author:      author,
		Content:     content,
		CreatedAtMs: now,
	})
	thread.UpdatedAtMs = now
	return thread
}

// UpdateThreadStatus transitions a thread's lifecycle state. Returns nil if
// the thread id or status is unknown.
func (s *Store) UpdateThreadStatus(threadID string, status workspace.FeedbackStatus) *workspace.FeedbackThread {
	if err := status.Validate(); err != nil {
		log.Printf("[Feedback] Status change rejected for thread %s: %v", threadID, err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.byID[threadID]
	if !ok {
		log.Printf("[Feedback] Status change rejected: unknown thread %s", threadID)
		return nil
	}

	thread.Status = status
	thread.UpdatedAtMs = s.clock.NowMs()
	return thread
}

// GetThread returns a thread by id, or nil.
func (s *Store) GetThread(threadID string) *workspace.FeedbackThread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[threadID]
}

// GetThreadsForArtifact returns all threads on an artifact in creation
// order. The slice is a copy.
func (s *Store) GetThreadsForArtifact(artifactID string) []*workspace.FeedbackThread {
	s.mu.Lock()
	defer s.mu.Unlock()

	threads := s.byArtifact[artifactID]
	out := make([]*workspace.FeedbackThread, len(threads))
	copy(out, threads)
	return out
}

// HasBlockingFeedback reports whether any thread on the artifact currently
// blocks it. Evaluated on demand, never cached.
func (s *Store) HasBlockingFeedback(artifactID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, thread := range s.byArtifact[artifactID] {
		if thread.IsBlocking() {
			return true
		}
	}
	return false
}

// FilterThreads returns every thread, across all artifacts, matching the
// predicate.
func (s *Store) FilterThreads(pred func(*workspace.FeedbackThread) bool) []*workspace.FeedbackThread {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*workspace.FeedbackThread
	for _, threads := range s.byArtifact {
		for _, thread := range threads {
			if pred(thread) {
				out = append(out, thread)
			}
		}
	}
	return out
}

// RestoreThread seeds a thread during hydration without publishing events.
func (s *Store) RestoreThread(thread *workspace.FeedbackThread) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byArtifact[thread.ArtifactID] = append(s.byArtifact[thread.ArtifactID], thread)
	s.byID[thread.ID] = thread
}
