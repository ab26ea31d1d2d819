// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// entryRepository implements the repository.EntryRepository interface.
type entryRepository struct {
	db *gorm.DB
}

// NewEntryRepository is the constructor for entryRepository.
func NewEntryRepository(db *gorm.DB) repository.EntryRepository {
	return &entryRepository{
		db: db,
	}
}

// CreateEntry persists a new entry at version 1.
func (repo *entryRepository) CreateEntry(ctx context.Context, entry *entity.Entry) error {
	entryM := fromEntryDomain(entry)
	entryM.Version = 1

	if err := repo.db.WithContext(ctx).Create(entryM).Error; err != nil {
		if isCheckConstraintViolation(err) {
			return domainerrors.ErrInvalidCoordinates
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create entry")
	}

	// Update the entity with generated values
	entry.ID = entryM.ID
	entry.Version = entryM.Version
	entry.CreatedAt = entryM.CreatedAt
	entry.UpdatedAt = entryM.UpdatedAt

	return nil
}

// FindEntryByID retrieves an entry by its unique ID.
func (repo *entryRepository) FindEntryByID(ctx context.Context, id uuid.UUID) (*entity.Entry, error) {
	var entryM model.EntryModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entryM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrEntryNotFound
		}

		return nil, errors.Wrap(err, "failed to find entry by ID")
	}

	return toEntryDomain(&entryM), nil
}

// FindEntriesInBbox retrieves non-archived entries inside the box. A box
// crossing the antimeridian is queried as two longitude ranges.
func (repo *entryRepository) FindEntriesInBbox(ctx context.Context, bbox entity.BoundingBox, limit int) ([]*entity.Entry, error) {
	query := repo.db.WithContext(ctx).
		Where("archived_at IS NULL").
		Where("latitude BETWEEN ? AND ?", bbox.SouthWestLat, bbox.NorthEastLat)

	halves := bbox.Halves()
	if len(halves) == 1 {
		query = query.Where("longitude BETWEEN ? AND ?", halves[0].SouthWestLng, halves[0].NorthEastLng)
	} else {
		query = query.Where("longitude BETWEEN ? AND ? OR longitude BETWEEN ? AND ?",
			halves[0].SouthWestLng, halves[0].NorthEastLng,
			halves[1].SouthWestLng, halves[1].NorthEastLng)
	}

	var entryModels []*model.EntryModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&entryModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find entries in bbox")
	}

	return toEntryDomainList(entryModels), nil
}

// ListEntries retrieves all non-archived entries ordered by creation time.
func (repo *entryRepository) ListEntries(ctx context.Context) ([]*entity.Entry, error) {
	var entryModels []*model.EntryModel

	if err := repo.db.WithContext(ctx).
		Where("archived_at IS NULL").
		Order("created_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list entries")
	}

	return toEntryDomainList(entryModels), nil
}

// UpdateEntryVersioned applies the patch iff the stored version matches.
// The version guard in the WHERE clause makes concurrent updates lose cleanly
// instead of clobbering each other.
func (repo *entryRepository) UpdateEntryVersioned(ctx context.Context, id uuid.UUID, expectedVersion int64, patch repository.EntryPatch) (*entity.Entry, error) {
	updates := model.EntryModel{Version: expectedVersion + 1}
	columns := []string{"version", "updated_at"}

	if patch.Title != nil {
		updates.Title = *patch.Title
		columns = append(columns, "title")
	}
	if patch.Description != nil {
		updates.Description = *patch.Description
		columns = append(columns, "description")
	}
	if patch.Latitude != nil {
		updates.Latitude = *patch.Latitude
		columns = append(columns, "latitude")
	}
	if patch.Longitude != nil {
		updates.Longitude = *patch.Longitude
		columns = append(columns, "longitude")
	}
	if patch.Categories != nil {
		updates.Categories = patch.Categories
		columns = append(columns, "categories")
	}
	if patch.Street != nil {
		updates.Street = *patch.Street
		columns = append(columns, "street")
	}
	if patch.Zip != nil {
		updates.Zip = *patch.Zip
		columns = append(columns, "zip")
	}
	if patch.City != nil {
		updates.City = *patch.City
		columns = append(columns, "city")
	}
	if patch.Country != nil {
		updates.Country = *patch.Country
		columns = append(columns, "country")
	}
	if patch.Email != nil {
		updates.Email = *patch.Email
		columns = append(columns, "email")
	}
	if patch.Telephone != nil {
		updates.Telephone = *patch.Telephone
		columns = append(columns, "telephone")
	}
	if patch.Homepage != nil {
		updates.Homepage = *patch.Homepage
		columns = append(columns, "homepage")
	}

	result := repo.db.WithContext(ctx).
		Model(&model.EntryModel{}).
		Select(columns).
		Where("id = ? AND version = ? AND archived_at IS NULL", id, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return nil, domainerrors.NewDatabaseExecuteError(result.Error, "failed to update entry")
	}

	if result.RowsAffected == 0 {
		// Distinguish a missing or archived entry from a stale version.
		var probe model.EntryModel
		if err := repo.db.WithContext(ctx).
			Where("id = ? AND archived_at IS NULL", id).
			First(&probe).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, repository.ErrEntryNotFound
			}

			return nil, errors.Wrap(err, "failed to probe entry version")
		}

		return nil, repository.ErrVersionMismatch
	}

	return repo.FindEntryByID(ctx, id)
}

// UpdateRatingAggregate stores the derived average and count for an entry.
func (repo *entryRepository) UpdateRatingAggregate(ctx context.Context, id uuid.UUID, avg float64, count int64) error {
	result := repo.db.WithContext(ctx).
		Model(&model.EntryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"avg_rating":   avg,
			"rating_count": count,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update rating aggregate")
	}
	if result.RowsAffected == 0 {
		return repository.ErrEntryNotFound
	}

	return nil
}

// ArchiveEntry soft-archives an entry. Re-archiving is a no-op.
func (repo *entryRepository) ArchiveEntry(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.EntryModel{}).
		Where("id = ? AND archived_at IS NULL", id).
		Update("archived_at", time.Now())
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to archive entry")
	}

	if result.RowsAffected == 0 {
		// Already archived is fine; a missing row is not.
		var count int64
		if err := repo.db.WithContext(ctx).
			Model(&model.EntryModel{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return errors.Wrap(err, "failed to probe entry for archive")
		}
		if count == 0 {
			return repository.ErrEntryNotFound
		}
	}

	return nil
}

// toEntryDomain converts a GORM model to a domain entity.
func toEntryDomain(data *model.EntryModel) *entity.Entry {
	return &entity.Entry{
		ID:          data.ID,
		Title:       data.Title,
		Description: data.Description,
		Latitude:    data.Latitude,
		Longitude:   data.Longitude,
		Categories:  data.Categories,
		Street:      data.Street,
		Zip:         data.Zip,
		City:        data.City,
		Country:     data.Country,
		Email:       data.Email,
		Telephone:   data.Telephone,
		Homepage:    data.Homepage,
		Version:     data.Version,
		AvgRating:   data.AvgRating,
		RatingCount: data.RatingCount,
		ArchivedAt:  data.ArchivedAt,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}

func toEntryDomainList(data []*model.EntryModel) []*entity.Entry {
	entries := make([]*entity.Entry, 0, len(data))
	for _, entryM := range data {
		entries = append(entries, toEntryDomain(entryM))
	}

	return entries
}

// fromEntryDomain converts a domain entity to a GORM model.
func fromEntryDomain(data *entity.Entry) *model.EntryModel {
	return &model.EntryModel{
		ID:          data.ID,
		Title:       data.Title,
		Description: data.Description,
		Latitude:    data.Latitude,
		Longitude:   data.Longitude,
		Categories:  data.Categories,
		Street:      data.Street,
		Zip:         data.Zip,
		City:        data.City,
		Country:     data.Country,
		Email:       data.Email,
		Telephone:   data.Telephone,
		Homepage:    data.Homepage,
		Version:     data.Version,
		AvgRating:   data.AvgRating,
		RatingCount: data.RatingCount,
		ArchivedAt:  data.ArchivedAt,
	}
}
