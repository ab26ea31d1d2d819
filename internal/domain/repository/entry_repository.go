// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"geodex/internal/domain/entity"
	"geodex/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for entry persistence.
var (
	// ErrEntryNotFound is returned when an entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrVersionMismatch is returned when an optimistic update hits a stale version.
	ErrVersionMismatch = errors.New("entry version mismatch")
)

// EntryPatch carries the mutable fields of a versioned entry update. Nil
// fields are left untouched.
type EntryPatch struct {
	Title       *string
	Description *string
	Latitude    *float64
	Longitude   *float64
	Categories  []string
	Street      *string
	Zip         *string
	City        *string
	Country     *string
	Email       *string
	Telephone   *string
	Homepage    *string
}

// EntryRepository defines the interface for entry-related database operations.
type EntryRepository interface {
	// CreateEntry persists a new entry at version 1.
	CreateEntry(ctx context.Context, entry *entity.Entry) error

	// FindEntryByID retrieves an entry by its unique ID.
	FindEntryByID(ctx context.Context, id uuid.UUID) (*entity.Entry, error)

	// FindEntriesInBbox retrieves non-archived entries whose coordinates lie
	// inside the given box, capped at limit rows.
	FindEntriesInBbox(ctx context.Context, bbox entity.BoundingBox, limit int) ([]*entity.Entry, error)

	// ListEntries retrieves all non-archived entries ordered by creation time.
	// Used by the CSV export.
	ListEntries(ctx context.Context) ([]*entity.Entry, error)

	// UpdateEntryVersioned applies the patch iff the stored version equals
	// expectedVersion, bumping the version by one. Returns the updated entry
	// or ErrVersionMismatch without touching any state.
	UpdateEntryVersioned(ctx context.Context, id uuid.UUID, expectedVersion int64, patch EntryPatch) (*entity.Entry, error)

	// UpdateRatingAggregate stores the derived average and count for an entry.
	UpdateRatingAggregate(ctx context.Context, id uuid.UUID, avg float64, count int64) error

	// ArchiveEntry soft-archives an entry. Archiving is idempotent.
	ArchiveEntry(ctx context.Context, id uuid.UUID) error
}
