package bus

import "context"

// Sink receives envelopes for durable storage. Implemented by the
// persistence store, which mirrors events onto the instance's Redis channel.
type Sink interface {
	RecordEvent(ctx context.Context, env Envelope) error
}

// Scheduler runs a persistence task in the background. Implemented by the
// persist package's write scheduler; failures are logged there, never
// surfaced to the publisher.
type Scheduler interface {
	Schedule(label string, fn func(context.Context) error)
}

// AttachDurableDispatcher forwards every published envelope to the sink via
// the scheduler. The forwarding is fire-and-forget from the publisher's
// perspective; the scheduler's flush barrier drains it. The returned
// function detaches the dispatcher.
func AttachDurableDispatcher(b *Bus, sched Scheduler, sink Sink) func() {
	return b.Subscribe(Wildcard, func(env Envelope) {
		sched.Schedule("event:"+env.Event, func(ctx context.Context) error {
			return sink.RecordEvent(ctx, env)
		})
	})
}
