// Package notification implements the delivery channels for subscriber
// messages, currently SMTP email and a log-only channel for development.
package notification

import (
	"fmt"
	"strings"

	"geodex/internal/domain/service"
)

// Subject lines for the supported message kinds.
const (
	subjectNewEntry     = "New entry in your subscribed map area"
	subjectChangedEntry = "Entry changed in your subscribed map area"
)

// changeSubject picks the subject line for a change notification.
func changeSubject(kind string) string {
	if kind == "created" {
		return subjectNewEntry
	}

	return subjectChangedEntry
}

// changeBody renders the plain-text body of a change notification.
func changeBody(summary service.EventSummary, baseURL string) string {
	intro := "the following entry was changed in a map area you subscribed to"
	if summary.Kind == "created" {
		intro = "a new entry was created in a map area you subscribed to"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n%s:\n\n", intro)
	fmt.Fprintf(&b, "%s\n", summary.Title)
	fmt.Fprintf(&b, "    Location: %.6f, %.6f\n\n", summary.Latitude, summary.Longitude)
	fmt.Fprintf(&b, "View or edit the entry:\n%s\n\n", entryURL(baseURL, summary.EntryID))
	b.WriteString("You can cancel your map area subscriptions from your account page.\n")

	return b.String()
}

// confirmationBody renders the plain-text body of a confirmation request.
func confirmationBody(confirmURL string) string {
	var b strings.Builder
	b.WriteString("Hello,\nthanks for using the map directory!\n\n")
	fmt.Fprintf(&b, "Please confirm by following this link:\n%s\n\n", confirmURL)
	b.WriteString("If you did not request this, you can ignore this message.\n")

	return b.String()
}

func entryURL(baseURL, entryID string) string {
	return fmt.Sprintf("%s/#/?entry=%s", strings.TrimRight(baseURL, "/"), entryID)
}
