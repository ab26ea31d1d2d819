// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"geodex/internal/domain/entity"
	"geodex/internal/errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the interface for the minimal identity records the
// core keeps about notification recipients.
type UserRepository interface {
	// EnsureUser upserts the (id, email) pair supplied by the upstream auth
	// layer and returns the stored record.
	EnsureUser(ctx context.Context, id uuid.UUID, email string) (*entity.User, error)

	// FindUserByID retrieves a user by ID.
	FindUserByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindUserByEmail retrieves a user by email address.
	FindUserByEmail(ctx context.Context, email string) (*entity.User, error)

	// MarkEmailConfirmed flips the email confirmation flag.
	MarkEmailConfirmed(ctx context.Context, id uuid.UUID) error
}
