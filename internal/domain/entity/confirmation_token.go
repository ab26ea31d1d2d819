// Package entity contains the core business objects of the project.
package entity

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// TokenSubject describes what a confirmation token proves.
type TokenSubject string

const (
	// TokenSubjectEmail confirms control of the user's email address.
	TokenSubjectEmail TokenSubject = "email-confirmation"
	// TokenSubjectSubscription confirms intent to activate one bbox subscription.
	TokenSubjectSubscription TokenSubject = "subscription-confirmation"
)

// TokenState is the state machine of a confirmation token.
// Pending -> Confirmed on valid redemption, Pending -> Expired on late
// redemption, any -> Revoked administratively. Redemption is single-use.
type TokenState string

const (
	TokenPending   TokenState = "pending"
	TokenConfirmed TokenState = "confirmed"
	TokenExpired   TokenState = "expired"
	TokenRevoked   TokenState = "revoked"
)

// ConfirmationToken is a single-use credential mailed to a user to prove
// control of an email address or intent to subscribe.
type ConfirmationToken struct {
	ID         uuid.UUID    `json:"id"`                    // The Global Unique Identifier (GUID) for the token record.
	Token      string       `json:"token"`                 // The unguessable token value.
	Subject    TokenSubject `json:"subject"`               // What redemption of this token confirms.
	OwnerID    uuid.UUID    `json:"owner_id"`              // User ID or subscription ID, depending on the subject.
	State      TokenState   `json:"state"`                 // Current state machine position.
	ExpiresAt  time.Time    `json:"expires_at"`            // Expiry, checked lazily at redemption time.
	RedeemedAt *time.Time   `json:"redeemed_at,omitempty"` // Set on the first redemption attempt.
	CreatedAt  time.Time    `json:"created_at"`            // Timestamp of issuance.
}

// NewTokenValue returns a fresh unguessable token value from crypto/rand.
func NewTokenValue() string {
	buf := make([]byte, 32)
	// crypto/rand.Read never returns an error.
	_, _ = rand.Read(buf)

	return hex.EncodeToString(buf)
}
