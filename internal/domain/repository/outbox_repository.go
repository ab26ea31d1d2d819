// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"geodex/internal/domain/entity"
)

// ChangeEventRepository is the durable outbox of entry change events. Events
// are inserted in the same transaction as the entry mutation so the caller
// only ever sees success once the event is durably enqueued.
type ChangeEventRepository interface {
	// AppendEvent inserts the event and assigns its sequence number.
	AppendEvent(ctx context.Context, event *entity.ChangeEvent) error

	// FindUnprocessed retrieves unprocessed events in sequence order.
	FindUnprocessed(ctx context.Context, limit int) ([]*entity.ChangeEvent, error)

	// MarkProcessed flags an event as consumed by the matcher.
	MarkProcessed(ctx context.Context, sequence int64) error
}
