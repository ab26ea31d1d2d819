// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"geodex/internal/domain/entity"
	"geodex/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for token persistence.
var (
	// ErrTokenNotFound is returned when a confirmation token is not found.
	ErrTokenNotFound = errors.New("confirmation token not found")
	// ErrTokenStateConflict is returned when a guarded transition finds the
	// token no longer in the expected state, e.g. a concurrent redemption won.
	ErrTokenStateConflict = errors.New("token state changed concurrently")
)

// TokenRepository defines the interface for confirmation token persistence.
type TokenRepository interface {
	// CreateToken persists a freshly issued token in pending state.
	CreateToken(ctx context.Context, token *entity.ConfirmationToken) error

	// FindTokenByValue retrieves a token by its opaque value.
	FindTokenByValue(ctx context.Context, value string) (*entity.ConfirmationToken, error)

	// UpdateTokenState transitions the token state machine, guarded on the
	// expected current state so concurrent redemptions cannot both succeed.
	// Returns ErrTokenStateConflict when the token is not in the from state.
	UpdateTokenState(ctx context.Context, id uuid.UUID, from, to entity.TokenState) error

	// RevokeTokensForOwner revokes all pending tokens of one owner, e.g. when
	// the user unsubscribes before confirming.
	RevokeTokensForOwner(ctx context.Context, ownerID uuid.UUID) error
}
