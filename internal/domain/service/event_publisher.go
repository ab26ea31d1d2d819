package service

import (
	"context"

	"geodex/internal/domain/entity"
)

// ChangeEventPublisher mirrors committed change events to an external broker
// for downstream consumers. Publishing is best-effort: the durable outbox,
// not the broker, drives the in-process notification pipeline.
type ChangeEventPublisher interface {
	// Publish sends one change event to the configured destination.
	Publish(ctx context.Context, event *entity.ChangeEvent) error

	// Close releases the underlying client resources.
	Close() error
}
