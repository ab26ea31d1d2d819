// Package bus provides the in-process wake-up channel between the entry
// write path and the change event consumer.
package bus

import (
	"context"
	"time"

	"geodex/internal/domain/service"
)

// signalBus implements service.ChangeEventBus with a buffered channel of one.
// Signals coalesce: any number of Notify calls while the consumer is busy
// collapse into a single wake-up. The consumer also wakes on a poll interval
// so events enqueued by other processes are still picked up.
type signalBus struct {
	ch           chan struct{}
	pollInterval time.Duration
}

// New creates a signal bus. pollInterval bounds how long a consumer sleeps
// without a signal.
func New(pollInterval time.Duration) service.ChangeEventBus {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return &signalBus{
		ch:           make(chan struct{}, 1),
		pollInterval: pollInterval,
	}
}

// Notify wakes the consumer without blocking. A signal already pending is
// enough, so extra ones are dropped.
func (b *signalBus) Notify() {
	select {
	case b.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until a signal arrives, the poll interval elapses, or the
// context is done.
func (b *signalBus) Wait(ctx context.Context) error {
	timer := time.NewTimer(b.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.ch:
		return nil
	case <-timer.C:
		return nil
	}
}
