// Package service defines the interfaces for external capabilities the core
// depends on, such as sending notifications to subscribers.
package service

import (
	"context"

	"geodex/internal/errors"
)

// EventSummary carries everything a notification channel needs to render a
// message about one entry change.
type EventSummary struct {
	EntryID    string
	Title      string
	Kind       string // "created" or "updated"
	Latitude   float64
	Longitude  float64
	EntryURL   string
	ConfirmURL string // Only set for confirmation messages.
}

// Notifier is a delivery channel for subscriber messages.
type Notifier interface {
	// Send delivers a change notification to one recipient address.
	Send(ctx context.Context, recipient string, summary EventSummary) error

	// SendConfirmation delivers a confirmation request carrying a one-time
	// token link.
	SendConfirmation(ctx context.Context, recipient string, subject string, confirmURL string) error
}

// retryableError marks an error as transient so the dispatcher retries it.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable wraps an error to signal the failure is transient and the
// delivery should be attempted again.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether any error in the chain was marked retryable.
// Unmarked errors are treated as permanent and fail the item immediately.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
