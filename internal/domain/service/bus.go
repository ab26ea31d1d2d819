package service

import "context"

// ChangeEventBus is the in-process wake-up signal between the write path and
// the matcher. It carries no payload; consumers drain the durable outbox in
// sequence order when woken, so a missed signal costs latency, never an event.
type ChangeEventBus interface {
	// Notify wakes the consumer. Never blocks.
	Notify()

	// Wait blocks until a signal arrives, the poll interval elapses, or the
	// context is done. Returns the context error on cancellation.
	Wait(ctx context.Context) error
}
