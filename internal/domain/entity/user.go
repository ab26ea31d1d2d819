// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal identity record owned by the core. Authentication is
// handled upstream; the core only needs a stable ID, a notification address
// and the email confirmation flag gating subscription eligibility.
type User struct {
	ID             uuid.UUID `json:"id"`              // The verified user ID supplied by the upstream auth layer.
	Email          string    `json:"email"`           // Notification recipient address.
	EmailConfirmed bool      `json:"email_confirmed"` // True once an email-confirmation token was redeemed.
	CreatedAt      time.Time `json:"created_at"`      // Timestamp of when this record was first seen.
	UpdatedAt      time.Time `json:"updated_at"`      // Timestamp of the last modification.
}
