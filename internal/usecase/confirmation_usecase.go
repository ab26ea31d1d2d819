package usecase

import (
	"context"

	"geodex/internal/domain/entity"
)

// ConfirmationUsecase defines the interface for redeeming confirmation tokens.
type ConfirmationUsecase interface {
	// ConfirmSubscription redeems a subscription confirmation token and
	// promotes the subscription to confirmed, activating it in the spatial
	// index. Each token works exactly once.
	ConfirmSubscription(ctx context.Context, tokenValue string) (*entity.BboxSubscription, error)

	// ConfirmEmail redeems an email confirmation token and marks the owner's
	// address as confirmed.
	ConfirmEmail(ctx context.Context, tokenValue string) (*entity.User, error)
}
