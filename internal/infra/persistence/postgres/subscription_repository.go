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

// subscriptionRepository implements the repository.SubscriptionRepository interface.
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository is the constructor for subscriptionRepository.
func NewSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db: db,
	}
}

// CreateSubscription persists a new bbox subscription.
func (repo *subscriptionRepository) CreateSubscription(ctx context.Context, subscription *entity.BboxSubscription) error {
	subscriptionM := fromBboxSubscriptionDomain(subscription)

	if err := repo.db.WithContext(ctx).Create(subscriptionM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateSubscription
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create subscription")
	}

	// Update the entity with generated values
	subscription.ID = subscriptionM.ID
	subscription.CreatedAt = subscriptionM.CreatedAt
	subscription.UpdatedAt = subscriptionM.UpdatedAt

	return nil
}

// FindSubscriptionByID retrieves a subscription by its unique ID.
func (repo *subscriptionRepository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*entity.BboxSubscription, error) {
	var subscriptionM model.BboxSubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&subscriptionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSubscriptionNotFound
		}

		return nil, errors.Wrap(err, "failed to find subscription by ID")
	}

	return toBboxSubscriptionDomain(&subscriptionM), nil
}

// FindSubscriptionByUserAndBbox retrieves the subscription of a user for an
// exact bounding box. The lookup is unscoped: a soft-deleted row still holds
// the unique index slot, so it is returned for revival rather than hidden.
func (repo *subscriptionRepository) FindSubscriptionByUserAndBbox(ctx context.Context, userID uuid.UUID, bbox entity.BoundingBox) (*entity.BboxSubscription, error) {
	var subscriptionM model.BboxSubscriptionModel

	if err := repo.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND south_west_lat = ? AND south_west_lng = ? AND north_east_lat = ? AND north_east_lng = ?",
			userID, bbox.SouthWestLat, bbox.SouthWestLng, bbox.NorthEastLat, bbox.NorthEastLng).
		First(&subscriptionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSubscriptionNotFound
		}

		return nil, errors.Wrap(err, "failed to find subscription by user and bbox")
	}

	return toBboxSubscriptionDomain(&subscriptionM), nil
}

// FindSubscriptionsByUser retrieves all subscriptions of a user.
func (repo *subscriptionRepository) FindSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error) {
	var subscriptionModels []*model.BboxSubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find subscriptions by user")
	}

	return toBboxSubscriptionDomainList(subscriptionModels), nil
}

// FindConfirmedSubscriptions retrieves every confirmed subscription.
func (repo *subscriptionRepository) FindConfirmedSubscriptions(ctx context.Context) ([]*entity.BboxSubscription, error) {
	var subscriptionModels []*model.BboxSubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("state = ?", string(entity.SubscriptionConfirmed)).
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find confirmed subscriptions")
	}

	return toBboxSubscriptionDomainList(subscriptionModels), nil
}

// FindPendingSubscriptionsByUser retrieves a user's pending subscriptions.
func (repo *subscriptionRepository) FindPendingSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error) {
	var subscriptionModels []*model.BboxSubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND state = ?", userID, string(entity.SubscriptionPending)).
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find pending subscriptions by user")
	}

	return toBboxSubscriptionDomainList(subscriptionModels), nil
}

// UpdateSubscriptionState transitions the confirmation state.
func (repo *subscriptionRepository) UpdateSubscriptionState(ctx context.Context, id uuid.UUID, state entity.SubscriptionState) error {
	result := repo.db.WithContext(ctx).
		Model(&model.BboxSubscriptionModel{}).
		Where("id = ?", id).
		Update("state", string(state))
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update subscription state")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSubscriptionNotFound
	}

	return nil
}

// RestoreSubscription clears the soft delete and sets the confirmation state
// on the existing row.
func (repo *subscriptionRepository) RestoreSubscription(ctx context.Context, id uuid.UUID, state entity.SubscriptionState) error {
	result := repo.db.WithContext(ctx).Unscoped().
		Model(&model.BboxSubscriptionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"deleted_at": nil,
			"state":      string(state),
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to restore subscription")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSubscriptionNotFound
	}

	return nil
}

// DeleteSubscriptionsByUser soft-deletes all subscriptions of a user and
// returns them so the caller can prune the spatial index.
func (repo *subscriptionRepository) DeleteSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error) {
	var subscriptionModels []*model.BboxSubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find subscriptions for deletion")
	}
	if len(subscriptionModels) == 0 {
		return []*entity.BboxSubscription{}, nil
	}

	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.BboxSubscriptionModel{}).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to delete subscriptions by user")
	}

	return toBboxSubscriptionDomainList(subscriptionModels), nil
}

// toBboxSubscriptionDomain converts a GORM model to a domain entity.
func toBboxSubscriptionDomain(data *model.BboxSubscriptionModel) *entity.BboxSubscription {
	var deletedAt *time.Time
	if data.DeletedAt.Valid {
		t := data.DeletedAt.Time
		deletedAt = &t
	}

	return &entity.BboxSubscription{
		ID:     data.ID,
		UserID: data.UserID,
		Bbox: entity.BoundingBox{
			SouthWestLat: data.SouthWestLat,
			SouthWestLng: data.SouthWestLng,
			NorthEastLat: data.NorthEastLat,
			NorthEastLng: data.NorthEastLng,
		},
		State:     entity.SubscriptionState(data.State),
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
		DeletedAt: deletedAt,
	}
}

func toBboxSubscriptionDomainList(data []*model.BboxSubscriptionModel) []*entity.BboxSubscription {
	subscriptions := make([]*entity.BboxSubscription, 0, len(data))
	for _, subscriptionM := range data {
		subscriptions = append(subscriptions, toBboxSubscriptionDomain(subscriptionM))
	}

	return subscriptions
}

// fromBboxSubscriptionDomain converts a domain entity to a GORM model.
func fromBboxSubscriptionDomain(data *entity.BboxSubscription) *model.BboxSubscriptionModel {
	return &model.BboxSubscriptionModel{
		ID:           data.ID,
		UserID:       data.UserID,
		SouthWestLat: data.Bbox.SouthWestLat,
		SouthWestLng: data.Bbox.SouthWestLng,
		NorthEastLat: data.Bbox.NorthEastLat,
		NorthEastLng: data.Bbox.NorthEastLng,
		State:        string(data.State),
	}
}
