package usecase

import (
	"context"

	"github.com/google/uuid"
)

// MatchUsecase defines the interface for the change event consumer: draining
// the outbox, matching events against the spatial index, and feeding the
// dispatch queue.
type MatchUsecase interface {
	// ProcessPendingEvents drains one batch of unprocessed change events in
	// sequence order. For each event it matches subscribers, enqueues one
	// dispatch item per user, and marks the event processed. Returns the
	// number of events handled; zero means the outbox was empty.
	ProcessPendingEvents(ctx context.Context) (int, error)

	// MatchPoint returns the distinct users whose confirmed boxes contain
	// the point. A user with several overlapping boxes appears once.
	MatchPoint(lat, lng float64) []uuid.UUID
}
