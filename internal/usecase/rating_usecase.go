package usecase

import (
	"context"

	"geodex/internal/domain/entity"

	"github.com/google/uuid"
)

// RatingUsecase defines the interface for entry rating use cases.
type RatingUsecase interface {
	// CreateRating validates and persists a rating, then synchronously
	// recomputes the entry's aggregate. Concurrent ratings of the same entry
	// are serialized so the stored average is always the exact mean.
	CreateRating(ctx context.Context, entryID uuid.UUID, value int, comment string) (*entity.Rating, error)

	// GetRatings retrieves ratings by ID list. Unknown IDs are skipped.
	GetRatings(ctx context.Context, ids []uuid.UUID) ([]*entity.Rating, error)

	// GetRatingsForEntry retrieves all ratings of one entry, newest first.
	GetRatingsForEntry(ctx context.Context, entryID uuid.UUID) ([]*entity.Rating, error)
}
