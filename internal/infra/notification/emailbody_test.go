package notification

import (
	"testing"

	"geodex/internal/domain/service"

	"github.com/stretchr/testify/assert"
)

func TestChangeBody_NewEntry(t *testing.T) {
	body := changeBody(service.EventSummary{
		EntryID:   "0191e8a0-0000-7000-8000-000000000001",
		Title:     "Community Garden",
		Kind:      "created",
		Latitude:  52.52,
		Longitude: 13.405,
	}, "https://example.org/")

	assert.Contains(t, body, "a new entry was created")
	assert.Contains(t, body, "Community Garden")
	assert.Contains(t, body, "52.520000, 13.405000")
	assert.Contains(t, body, "https://example.org/#/?entry=0191e8a0-0000-7000-8000-000000000001")
	assert.NotContains(t, body, "//#")
}

func TestChangeBody_ChangedEntry(t *testing.T) {
	body := changeBody(service.EventSummary{
		EntryID: "abc",
		Title:   "Repair Cafe",
		Kind:    "updated",
	}, "https://example.org")

	assert.Contains(t, body, "was changed in a map area")
	assert.Contains(t, body, "Repair Cafe")
}

func TestChangeSubject(t *testing.T) {
	assert.Equal(t, subjectNewEntry, changeSubject("created"))
	assert.Equal(t, subjectChangedEntry, changeSubject("updated"))
}

func TestConfirmationBody(t *testing.T) {
	body := confirmationBody("https://example.org/confirm?token=deadbeef")

	assert.Contains(t, body, "Please confirm")
	assert.Contains(t, body, "https://example.org/confirm?token=deadbeef")
}

func TestFormatMessage_Headers(t *testing.T) {
	msg := string(formatMessage("noreply@example.org", "user@example.org", "Hi", "body"))

	assert.Contains(t, msg, "From: noreply@example.org\r\n")
	assert.Contains(t, msg, "To: user@example.org\r\n")
	assert.Contains(t, msg, "Subject: Hi\r\n")
	assert.Contains(t, msg, "\r\n\r\nbody")
}
