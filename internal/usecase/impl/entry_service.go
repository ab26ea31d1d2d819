// Package impl contains the concrete implementations of the use case layer.
package impl

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"geodex/config"
	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/domain/service"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type entryService struct {
	txManager repository.TransactionManager
	entryRepo repository.EntryRepository
	bus       service.ChangeEventBus
	config    *config.Config
	logger    *slog.Logger
}

// EntryServiceParams holds dependencies for EntryService, injected by Fx.
type EntryServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	EntryRepo repository.EntryRepository
	Bus       service.ChangeEventBus
	Config    *config.Config
	Logger    *slog.Logger
}

// NewEntryService creates a new entry service instance
func NewEntryService(params EntryServiceParams) usecase.EntryUsecase {
	return &entryService{
		txManager: params.TxManager,
		entryRepo: params.EntryRepo,
		bus:       params.Bus,
		config:    params.Config,
		logger:    params.Logger,
	}
}

// CreateEntry validates and persists a new entry. The change event is written
// to the outbox in the same transaction, so once the caller sees success the
// event cannot be lost.
func (s *entryService) CreateEntry(ctx context.Context, input usecase.EntryInput) (*entity.Entry, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	entry := &entity.Entry{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Categories:  input.Categories,
		Street:      input.Street,
		Zip:         input.Zip,
		City:        input.City,
		Country:     input.Country,
		Email:       input.Email,
		Telephone:   input.Telephone,
		Homepage:    input.Homepage,
	}

	err := s.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		if err := factory.NewEntryRepository().CreateEntry(ctx, entry); err != nil {
			return errors.Wrap(err, "failed to create entry")
		}

		event := &entity.ChangeEvent{
			EntryID:   entry.ID,
			Kind:      entity.ChangeEventCreated,
			Title:     entry.Title,
			Latitude:  entry.Latitude,
			Longitude: entry.Longitude,
		}

		return errors.Wrap(factory.NewChangeEventRepository().AppendEvent(ctx, event), "failed to append change event")
	})
	if err != nil {
		return nil, err
	}

	// The event is durable; this only trims consumer latency.
	s.bus.Notify()

	return entry, nil
}

// UpdateEntry applies a versioned update. A stale expected version loses with
// a conflict and changes nothing, including the outbox.
func (s *entryService) UpdateEntry(ctx context.Context, id uuid.UUID, expectedVersion int64, patch repository.EntryPatch) (*entity.Entry, error) {
	if err := s.validatePatch(patch); err != nil {
		return nil, err
	}

	var updated *entity.Entry
	err := s.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		var txErr error
		updated, txErr = factory.NewEntryRepository().UpdateEntryVersioned(ctx, id, expectedVersion, patch)
		if txErr != nil {
			return txErr
		}

		event := &entity.ChangeEvent{
			EntryID:   updated.ID,
			Kind:      entity.ChangeEventUpdated,
			Title:     updated.Title,
			Latitude:  updated.Latitude,
			Longitude: updated.Longitude,
		}

		return errors.Wrap(factory.NewChangeEventRepository().AppendEvent(ctx, event), "failed to append change event")
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			return nil, domainerrors.ErrVersionConflict
		}
		if errors.Is(err, repository.ErrEntryNotFound) {
			return nil, domainerrors.ErrEntryNotFound
		}

		return nil, err
	}

	s.bus.Notify()

	return updated, nil
}

// GetEntry retrieves one entry by ID.
func (s *entryService) GetEntry(ctx context.Context, id uuid.UUID) (*entity.Entry, error) {
	entry, err := s.entryRepo.FindEntryByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return nil, domainerrors.ErrEntryNotFound
		}

		return nil, err
	}

	return entry, nil
}

// ListEntriesInBbox retrieves non-archived entries inside the box, capped at
// the configured maximum.
func (s *entryService) ListEntriesInBbox(ctx context.Context, bbox entity.BoundingBox, limit int) ([]*entity.Entry, error) {
	if !bbox.Valid() {
		return nil, domainerrors.ErrInvalidBbox
	}

	maxResults := s.config.Directory.MaxBboxResults
	if limit <= 0 || limit > maxResults {
		limit = maxResults
	}

	return s.entryRepo.FindEntriesInBbox(ctx, bbox, limit)
}

// csvHeader is the stable column set of the CSV export.
var csvHeader = []string{
	"id", "title", "description", "lat", "lng",
	"categories", "street", "zip", "city", "country",
	"email", "telephone", "homepage",
	"version", "avg_rating", "rating_count", "created_at",
}

// ExportCSV streams all non-archived entries as CSV.
func (s *entryService) ExportCSV(ctx context.Context, w io.Writer) error {
	entries, err := s.entryRepo.ListEntries(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list entries for export")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}

	for _, e := range entries {
		record := []string{
			e.ID.String(),
			e.Title,
			e.Description,
			strconv.FormatFloat(e.Latitude, 'f', -1, 64),
			strconv.FormatFloat(e.Longitude, 'f', -1, 64),
			strings.Join(e.Categories, ","),
			e.Street,
			e.Zip,
			e.City,
			e.Country,
			e.Email,
			e.Telephone,
			e.Homepage,
			strconv.FormatInt(e.Version, 10),
			strconv.FormatFloat(e.AvgRating, 'f', 2, 64),
			strconv.FormatInt(e.RatingCount, 10),
			e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "failed to write csv record")
		}
	}

	cw.Flush()

	return errors.Wrap(cw.Error(), "failed to flush csv")
}

// ArchiveEntry soft-archives an entry. No change event is emitted; archived
// entries simply stop appearing in reads.
func (s *entryService) ArchiveEntry(ctx context.Context, id uuid.UUID) error {
	if err := s.entryRepo.ArchiveEntry(ctx, id); err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return domainerrors.ErrEntryNotFound
		}

		return err
	}

	return nil
}

func (s *entryService) validateInput(input usecase.EntryInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return domainerrors.ErrValidationFailed.WithDetails("title is required")
	}
	if !entity.ValidCoordinate(input.Latitude, input.Longitude) {
		return domainerrors.ErrInvalidCoordinates
	}
	if max := s.config.Directory.MaxCategories; len(input.Categories) > max {
		return domainerrors.ErrValidationFailed.WithDetails("too many categories")
	}

	return nil
}

func (s *entryService) validatePatch(patch repository.EntryPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domainerrors.ErrValidationFailed.WithDetails("title cannot be emptied")
	}
	// Coordinates can be patched independently; each axis is checked on its own.
	if patch.Latitude != nil && !entity.ValidCoordinate(*patch.Latitude, 0) {
		return domainerrors.ErrInvalidCoordinates
	}
	if patch.Longitude != nil && !entity.ValidCoordinate(0, *patch.Longitude) {
		return domainerrors.ErrInvalidCoordinates
	}
	if patch.Categories != nil {
		if max := s.config.Directory.MaxCategories; len(patch.Categories) > max {
			return domainerrors.ErrValidationFailed.WithDetails("too many categories")
		}
	}

	return nil
}
