package usecase

import (
	"context"

	"geodex/internal/domain/entity"

	"github.com/google/uuid"
)

// SubscriptionUsecase defines the interface for bbox subscription use cases.
type SubscriptionUsecase interface {
	// Subscribe creates a subscription for the user's bbox. Subscribing to a
	// box the user already has is idempotent and returns the existing one.
	// Depending on configuration the subscription starts pending and a
	// confirmation mail is sent, or it is confirmed immediately.
	Subscribe(ctx context.Context, userID uuid.UUID, email string, bbox entity.BoundingBox) (*entity.BboxSubscription, error)

	// UnsubscribeAll removes every subscription of the user and revokes
	// their outstanding confirmation tokens. Returns the number removed.
	UnsubscribeAll(ctx context.Context, userID uuid.UUID) (int, error)

	// ListSubscriptions retrieves all subscriptions of the user.
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error)

	// RequestEmailConfirmation issues an email confirmation token for the
	// user and sends the confirmation mail.
	RequestEmailConfirmation(ctx context.Context, userID uuid.UUID, email string) error

	// WarmIndex loads all confirmed subscriptions into the spatial index.
	// Called once on startup before the consumer starts matching.
	WarmIndex(ctx context.Context) error
}
