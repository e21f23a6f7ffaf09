package persist

import (
	"context"
	"log"
	"sync"
)

// Scheduler runs persistence writes in the background. Writes are
// fire-and-forget from the caller's perspective: failures are logged with
// the operation label and dropped, never surfaced to the caller, never
// retried. The pending set is collectively awaitable through Flush, for
// tests and shutdown.
type Scheduler struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	nextID  int64
	pending map[int64]string // task id -> label, for diagnostics
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[int64]string)}
}

// Schedule launches fn on its own goroutine and tracks it until it
// completes. By the time fn runs, the originating caller has already
// received its synchronous in-memory result, so fn's error cannot reach
// it; it is logged and swallowed here.
func (s *Scheduler) Schedule(label string, fn func(context.Context) error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.pending[id] = label
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.pending, id)
			s.mu.Unlock()
			s.wg.Done()
		}()

		if err := fn(context.Background()); err != nil {
			log.Printf("[Persist] %s failed: %v", label, err)
		}
	}()
}

// PendingCount returns how many scheduled writes have not completed yet.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush blocks until every scheduled write has completed or the context is
// done. It is the engine's only explicit suspension point on the write
// path.
func (s *Scheduler) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
