package postgres

import (
	"context"

	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ratingRepository implements the repository.RatingRepository interface.
type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository is the constructor for ratingRepository.
func NewRatingRepository(db *gorm.DB) repository.RatingRepository {
	return &ratingRepository{
		db: db,
	}
}

// CreateRating persists a new immutable rating.
func (repo *ratingRepository) CreateRating(ctx context.Context, rating *entity.Rating) error {
	ratingM := fromRatingDomain(rating)

	if err := repo.db.WithContext(ctx).Create(ratingM).Error; err != nil {
		if isCheckConstraintViolation(err) {
			return domainerrors.ErrInvalidRatingValue
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create rating")
	}

	rating.ID = ratingM.ID
	rating.CreatedAt = ratingM.CreatedAt

	return nil
}

// FindRatingsByIDs retrieves ratings for the given ID list. Unknown IDs are
// silently skipped.
func (repo *ratingRepository) FindRatingsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Rating, error) {
	if len(ids) == 0 {
		return []*entity.Rating{}, nil
	}

	var ratingModels []*model.RatingModel
	if err := repo.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&ratingModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find ratings by IDs")
	}

	return toRatingDomainList(ratingModels), nil
}

// FindRatingsByEntry retrieves all ratings for one entry, newest first.
func (repo *ratingRepository) FindRatingsByEntry(ctx context.Context, entryID uuid.UUID) ([]*entity.Rating, error) {
	var ratingModels []*model.RatingModel

	if err := repo.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at DESC").
		Find(&ratingModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find ratings by entry")
	}

	return toRatingDomainList(ratingModels), nil
}

// AggregateForEntry computes the exact mean and count over all ratings of one
// entry in the database.
func (repo *ratingRepository) AggregateForEntry(ctx context.Context, entryID uuid.UUID) (float64, int64, error) {
	var result struct {
		Avg   float64
		Count int64
	}

	if err := repo.db.WithContext(ctx).
		Model(&model.RatingModel{}).
		Select("COALESCE(AVG(value), 0) AS avg, COUNT(*) AS count").
		Where("entry_id = ?", entryID).
		Scan(&result).Error; err != nil {
		return 0, 0, errors.Wrap(err, "failed to aggregate ratings for entry")
	}

	return result.Avg, result.Count, nil
}

// toRatingDomain converts a GORM model to a domain entity.
func toRatingDomain(data *model.RatingModel) *entity.Rating {
	return &entity.Rating{
		ID:        data.ID,
		EntryID:   data.EntryID,
		Value:     data.Value,
		Comment:   data.Comment,
		CreatedAt: data.CreatedAt,
	}
}

func toRatingDomainList(data []*model.RatingModel) []*entity.Rating {
	ratings := make([]*entity.Rating, 0, len(data))
	for _, ratingM := range data {
		ratings = append(ratings, toRatingDomain(ratingM))
	}

	return ratings
}

// fromRatingDomain converts a domain entity to a GORM model.
func fromRatingDomain(data *entity.Rating) *model.RatingModel {
	return &model.RatingModel{
		ID:      data.ID,
		EntryID: data.EntryID,
		Value:   data.Value,
		Comment: data.Comment,
	}
}
