// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Rating value bounds. Ratings use a fixed discrete 1..10 scale.
const (
	RatingMin = 1
	RatingMax = 10
)

// Rating represents a single user rating of an entry. Ratings are immutable
// once created and contribute to exactly one entry's aggregate.
type Rating struct {
	ID        uuid.UUID `json:"id"`                // The Global Unique Identifier (GUID) for the rating.
	EntryID   uuid.UUID `json:"entry_id"`          // The ID of the rated entry.
	Value     int       `json:"value"`             // Rating value on the RatingMin..RatingMax scale.
	Comment   string    `json:"comment,omitempty"` // Optional free-form comment.
	CreatedAt time.Time `json:"created_at"`        // Timestamp of the submission.
}

// ValidRatingValue reports whether v lies on the allowed scale.
func ValidRatingValue(v int) bool {
	return v >= RatingMin && v <= RatingMax
}
