// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"time"

	"geodex/internal/domain/entity"

	"github.com/google/uuid"
)

// DispatchState tracks a queue item through its delivery lifecycle.
type DispatchState string

const (
	DispatchPending  DispatchState = "pending"
	DispatchInflight DispatchState = "inflight"
	DispatchSent     DispatchState = "sent"
	DispatchFailed   DispatchState = "failed"
)

// DispatchItem is one row of the durable notification queue: a single
// (change event, subscriber) pair awaiting delivery. The queue, not any
// in-memory state, is the source of truth for undelivered notifications.
type DispatchItem struct {
	ID            int64         `json:"id"`
	EventSequence int64         `json:"event_sequence"`
	UserID        uuid.UUID     `json:"user_id"`
	Recipient     string        `json:"recipient"` // Email address snapshot taken at enqueue time.
	EntryID       uuid.UUID     `json:"entry_id"`
	EntryTitle    string        `json:"entry_title"`
	Kind          string        `json:"kind"`
	Latitude      float64       `json:"latitude"`
	Longitude     float64       `json:"longitude"`
	AttemptCount  int           `json:"attempt_count"`
	State         DispatchState `json:"state"`
	LastError     string        `json:"last_error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IdempotencyKey derives the deterministic delivery key of this item.
func (i *DispatchItem) IdempotencyKey() string {
	return entity.DispatchKey(i.EventSequence, i.UserID)
}

// DispatchQueueRepository defines the durable notification queue operations.
type DispatchQueueRepository interface {
	// EnqueueItems inserts pending items, one per (event, user) pair.
	// Re-inserting an existing pair is a no-op, making event re-processing
	// after a crash idempotent.
	EnqueueItems(ctx context.Context, items []*DispatchItem) error

	// ClaimPending atomically claims up to limit pending items for this
	// worker, marking them inflight. Concurrent claimers never receive the
	// same item.
	ClaimPending(ctx context.Context, limit int) ([]*DispatchItem, error)

	// MarkSent finalizes an item after a confirmed delivery.
	MarkSent(ctx context.Context, id int64, attempts int) error

	// MarkFailed finalizes an item after a permanent failure or exhausted
	// retries, recording the last error for the observability surface.
	MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error

	// ReleaseInflight moves inflight items of this process back to pending,
	// used on startup to recover items abandoned by a crashed worker.
	ReleaseInflight(ctx context.Context, olderThan time.Duration) (int64, error)
}
