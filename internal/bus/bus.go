// Package bus provides the in-process publish/subscribe backbone for the
// collaboration engine. Every state change is published as a typed envelope
// and delivered synchronously, on the publisher's call stack, to every
// matching subscriber. An optional durable dispatcher forwards each envelope
// to persistence in the background.
package bus

import (
	"sync"

	"github.com/warrenhq/warren/pkg/workspace"
)

// Wildcard subscribes a handler to every event name.
const Wildcard = "*"

// Envelope wraps one published event. Payload types are fixed per event
// name; subscribers dispatch on Event with a type switch.
type Envelope struct {
	Event         string `json:"event"`
	Payload       any    `json:"payload"`
	AggregateType string `json:"aggregate_type"` // Entity type the event pertains to (e.g. "workspace")
	AggregateID   string `json:"aggregate_id"`
	Sequence      int64  `json:"sequence"` // Process-wide publish sequence, strictly increasing
	OccurredAtMs  int64  `json:"occurred_at_ms"`
}

// Handler receives envelopes synchronously. Handlers run on the publisher's
// goroutine and must not block; long work belongs behind a scheduler.
type Handler func(Envelope)

type subscription struct {
	token   int
	handler Handler
}

// Bus is the in-process event bus. Delivery is synchronous and in
// subscription order, so within one workspace subscribers observe the exact
// order the triggering operations completed in. Handlers may publish
// further events re-entrantly.
type Bus struct {
	mu    sync.Mutex
	clock *workspace.Clock
	seq   int64
	next  int
	subs  map[string][]subscription
}

// New creates an event bus stamping envelopes from the given clock.
func New(clock *workspace.Clock) *Bus {
	return &Bus{
		clock: clock,
		subs:  make(map[string][]subscription),
	}
}

// Subscribe registers a handler for one event name, or every event when the
// name is Wildcard. The returned function removes the subscription; calling
// it more than once is safe.
func (b *Bus) Subscribe(event string, h Handler) func() {
	b.mu.Lock()
	token := b.next
	b.next++
	b.subs[event] = append(b.subs[event], subscription{token: token, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[event]
		for i, sub := range list {
			if sub.token == token {
				b.subs[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// PublishOptions carry the aggregate identity for persistence partitioning.
type PublishOptions struct {
	AggregateType string
	AggregateID   string
}

// Publish builds an envelope and delivers it synchronously to every
// subscriber of the event name, then to every wildcard subscriber.
// Returns the published envelope.
func (b *Bus) Publish(event string, payload any, opts PublishOptions) Envelope {
	b.mu.Lock()
	b.seq++
	env := Envelope{
		Event:         event,
		Payload:       payload,
		AggregateType: opts.AggregateType,
		AggregateID:   opts.AggregateID,
		Sequence:      b.seq,
		OccurredAtMs:  b.clock.NowMs(),
	}

	// Snapshot handlers so delivery happens outside the lock; handlers may
	// re-enter Publish or Subscribe.
	handlers := make([]Handler, 0, len(b.subs[event])+len(b.subs[Wildcard]))
	for _, sub := range b.subs[event] {
		handlers = append(handlers, sub.handler)
	}
	for _, sub := range b.subs[Wildcard] {
		handlers = append(handlers, sub.handler)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(env)
	}

	return env
}
