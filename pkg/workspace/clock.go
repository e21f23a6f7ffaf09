package workspace

import (
	"sync"
	"time"
)

// Clock issues strictly increasing Unix-millisecond timestamps. When
// multiple operations land in the same wall-clock millisecond, later calls
// are nudged forward by one so no two timestamps from the same process are
// equal and none go backward.
type Clock struct {
	mu   sync.Mutex
	last int64
}

// NewClock creates a monotonic clock starting from the current time.
func NewClock() *Clock {
	return &Clock{}
}

// NowMs returns the next timestamp in Unix milliseconds.
func (c *Clock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixMilli()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}
