// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"geodex/internal/domain/entity"
	"geodex/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for subscription persistence.
var (
	// ErrSubscriptionNotFound is returned when a subscription is not found.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrDuplicateSubscription is returned when a (user, bbox) pair already exists.
	ErrDuplicateSubscription = errors.New("subscription already exists")
)

// SubscriptionRepository defines the interface for bbox subscription
// database operations.
type SubscriptionRepository interface {
	// CreateSubscription persists a new subscription. The unique index on
	// (user, bbox) maps violations to ErrDuplicateSubscription.
	CreateSubscription(ctx context.Context, subscription *entity.BboxSubscription) error

	// FindSubscriptionByID retrieves a subscription by its unique ID.
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*entity.BboxSubscription, error)

	// FindSubscriptionByUserAndBbox retrieves the subscription of a user for
	// an exact normalized bounding box, if any. Soft-deleted rows are
	// included because they still occupy the (user, bbox) unique index; the
	// caller revives them instead of inserting.
	FindSubscriptionByUserAndBbox(ctx context.Context, userID uuid.UUID, bbox entity.BoundingBox) (*entity.BboxSubscription, error)

	// FindSubscriptionsByUser retrieves all subscriptions of a user.
	FindSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error)

	// FindConfirmedSubscriptions retrieves every confirmed subscription.
	// Used to warm the spatial index, never on the notification hot path.
	FindConfirmedSubscriptions(ctx context.Context) ([]*entity.BboxSubscription, error)

	// FindPendingSubscriptionsByUser retrieves a user's pending subscriptions.
	FindPendingSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error)

	// UpdateSubscriptionState transitions the confirmation state.
	UpdateSubscriptionState(ctx context.Context, id uuid.UUID, state entity.SubscriptionState) error

	// RestoreSubscription clears a soft delete and sets the given state, so a
	// re-subscribe after an unsubscribe reuses the existing row.
	RestoreSubscription(ctx context.Context, id uuid.UUID, state entity.SubscriptionState) error

	// DeleteSubscriptionsByUser removes all subscriptions of a user (soft
	// delete). Returns the removed subscriptions so the caller can update
	// the spatial index; an empty result is not an error.
	DeleteSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error)
}
