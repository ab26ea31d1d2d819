// Package entity contains the core business objects of the project.
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeEventKind discriminates entry creations from updates.
type ChangeEventKind string

const (
	ChangeEventCreated ChangeEventKind = "created"
	ChangeEventUpdated ChangeEventKind = "updated"
)

// ChangeEvent is the notification-triggering record emitted when an entry is
// created or updated. The sequence number is assigned durably at emit time,
// is strictly increasing, and forms the basis of dispatch idempotency keys.
type ChangeEvent struct {
	Sequence  int64           `json:"sequence"`   // Monotonic sequence number, unique across all events.
	EntryID   uuid.UUID       `json:"entry_id"`   // The ID of the changed entry.
	Kind      ChangeEventKind `json:"kind"`       // created or updated.
	Title     string          `json:"title"`      // Entry title at the time of the event, for notification bodies.
	Latitude  float64         `json:"latitude"`   // Entry latitude at the time of the event.
	Longitude float64         `json:"longitude"`  // Entry longitude at the time of the event.
	CreatedAt time.Time       `json:"created_at"` // Timestamp of the event.
}

// DispatchKey derives the deterministic idempotency key for delivering this
// event to one user.
func DispatchKey(sequence int64, userID uuid.UUID) string {
	return fmt.Sprintf("%d:%s", sequence, userID)
}
