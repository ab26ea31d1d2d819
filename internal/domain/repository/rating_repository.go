// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"geodex/internal/domain/entity"
	"geodex/internal/errors"

	"github.com/google/uuid"
)

// ErrRatingNotFound is returned when a rating is not found.
var ErrRatingNotFound = errors.New("rating not found")

// RatingRepository defines the interface for rating-related database operations.
type RatingRepository interface {
	// CreateRating persists a new immutable rating.
	CreateRating(ctx context.Context, rating *entity.Rating) error

	// FindRatingsByIDs retrieves ratings for the given ID list. Unknown IDs
	// are silently skipped.
	FindRatingsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Rating, error)

	// FindRatingsByEntry retrieves all ratings for one entry, newest first.
	FindRatingsByEntry(ctx context.Context, entryID uuid.UUID) ([]*entity.Rating, error)

	// AggregateForEntry computes the exact arithmetic mean and count over all
	// ratings of one entry.
	AggregateForEntry(ctx context.Context, entryID uuid.UUID) (avg float64, count int64, err error)
}
