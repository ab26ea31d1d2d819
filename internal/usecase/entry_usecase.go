// Package usecase defines the interfaces for the application's business logic.
package usecase

import (
	"context"
	"io"

	"geodex/internal/domain/entity"
	"geodex/internal/domain/repository"

	"github.com/google/uuid"
)

// EntryInput carries the fields of a new directory entry.
type EntryInput struct {
	Title       string
	Description string
	Latitude    float64
	Longitude   float64
	Categories  []string
	Street      string
	Zip         string
	City        string
	Country     string
	Email       string
	Telephone   string
	Homepage    string
}

// EntryUsecase defines the interface for directory entry use cases.
type EntryUsecase interface {
	// CreateEntry validates and persists a new entry at version 1. The
	// matching change event is durably enqueued in the same transaction.
	CreateEntry(ctx context.Context, input EntryInput) (*entity.Entry, error)

	// UpdateEntry applies a versioned update. The caller supplies the version
	// it based its edit on; a stale version is rejected with a conflict.
	UpdateEntry(ctx context.Context, id uuid.UUID, expectedVersion int64, patch repository.EntryPatch) (*entity.Entry, error)

	// GetEntry retrieves one entry by ID.
	GetEntry(ctx context.Context, id uuid.UUID) (*entity.Entry, error)

	// ListEntriesInBbox retrieves non-archived entries inside the box.
	ListEntriesInBbox(ctx context.Context, bbox entity.BoundingBox, limit int) ([]*entity.Entry, error)

	// ExportCSV streams all non-archived entries as CSV.
	ExportCSV(ctx context.Context, w io.Writer) error

	// ArchiveEntry soft-archives an entry so it disappears from reads.
	ArchiveEntry(ctx context.Context, id uuid.UUID) error
}
