package bus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/pkg/workspace"
)

func newTestBus() *Bus {
	return New(workspace.NewClock())
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := newTestBus()

	var got []Envelope
	b.Subscribe("workspace:created", func(env Envelope) {
		got = append(got, env)
	})

	b.Publish("workspace:created", "payload", PublishOptions{
		AggregateType: "workspace",
		AggregateID:   "ws-1",
	})

	require.Len(t, got, 1)
	assert.Equal(t, "workspace:created", got[0].Event)
	assert.Equal(t, "payload", got[0].Payload)
	assert.Equal(t, "workspace", got[0].AggregateType)
	assert.Equal(t, "ws-1", got[0].AggregateID)
	assert.Positive(t, got[0].OccurredAtMs)
}

func TestPublishIgnoresOtherEvents(t *testing.T) {
	b := newTestBus()

	calls := 0
	b.Subscribe("workspace:created", func(Envelope) { calls++ })

	b.Publish("workspace:deleted", nil, PublishOptions{})

	assert.Zero(t, calls)
}

func TestWildcardReceivesEverything(t *testing.T) {
	b := newTestBus()

	var events []string
	b.Subscribe(Wildcard, func(env Envelope) {
		events = append(events, env.Event)
	})

	b.Publish("a", nil, PublishOptions{})
	b.Publish("b", nil, PublishOptions{})

	assert.Equal(t, []string{"a", "b"}, events)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus()

	calls := 0
	unsubscribe := b.Subscribe("evt", func(Envelope) { calls++ })

	b.Publish("evt", nil, PublishOptions{})
	unsubscribe()
	b.Publish("evt", nil, PublishOptions{})

	assert.Equal(t, 1, calls)

	// Second call is a no-op
	unsubscribe()
}

func TestSequenceStrictlyIncreasing(t *testing.T) {
	b := newTestBus()

	var seqs []int64
	b.Subscribe(Wildcard, func(env Envelope) {
		seqs = append(seqs, env.Sequence)
	})

	for i := 0; i < 5; i++ {
		b.Publish("evt", i, PublishOptions{})
	}

	require.Len(t, seqs, 5)
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
}

func TestReentrantPublish(t *testing.T) {
	b := newTestBus()

	var order []string
	b.Subscribe("first", func(Envelope) {
		order = append(order, "first")
		b.Publish("second", nil, PublishOptions{})
	})
	b.Subscribe("second", func(Envelope) {
		order = append(order, "second")
	})

	b.Publish("first", nil, PublishOptions{})

	// Delivery is synchronous: the nested event completes before Publish returns
	assert.Equal(t, []string{"first", "second"}, order)
}

type recordingSink struct {
	mu   sync.Mutex
	envs []Envelope
}

func (s *recordingSink) RecordEvent(_ context.Context, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, env)
	return nil
}

type inlineScheduler struct{}

func (inlineScheduler) Schedule(_ string, fn func(context.Context) error) {
	_ = fn(context.Background())
}

func TestDurableDispatcherForwardsEnvelopes(t *testing.T) {
	b := newTestBus()
	sink := &recordingSink{}

	detach := AttachDurableDispatcher(b, inlineScheduler{}, sink)

	b.Publish("workspace:created", nil, PublishOptions{AggregateID: "ws-1"})
	b.Publish("workspace:deleted", nil, PublishOptions{AggregateID: "ws-1"})

	require.Len(t, sink.envs, 2)
	assert.Equal(t, "workspace:created", sink.envs[0].Event)
	assert.Equal(t, "workspace:deleted", sink.envs[1].Event)

	detach()
	b.Publish("workspace:created", nil, PublishOptions{})
	assert.Len(t, sink.envs, 2)
}
