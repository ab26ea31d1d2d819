// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Entry represents a place or organization in the geographic directory.
type Entry struct {
	ID          uuid.UUID  `json:"id"`                    // The Global Unique Identifier (GUID) for the entry.
	Title       string     `json:"title"`                 // The display title of the entry.
	Description string     `json:"description"`           // Free-form description.
	Latitude    float64    `json:"latitude"`              // The geographic latitude of the entry.
	Longitude   float64    `json:"longitude"`             // The geographic longitude of the entry.
	Categories  []string   `json:"categories"`            // Category identifiers assigned to the entry.
	Street      string     `json:"street,omitempty"`      // Optional street address.
	Zip         string     `json:"zip,omitempty"`         // Optional postal code.
	City        string     `json:"city,omitempty"`        // Optional city name.
	Country     string     `json:"country,omitempty"`     // Optional country name.
	Email       string     `json:"email,omitempty"`       // Optional public contact email.
	Telephone   string     `json:"telephone,omitempty"`   // Optional public contact phone.
	Homepage    string     `json:"homepage,omitempty"`    // Optional homepage URL.
	Version     int64      `json:"version"`               // Monotonic version for optimistic concurrency, starts at 1.
	AvgRating   float64    `json:"avg_rating"`            // Derived arithmetic mean of all ratings.
	RatingCount int64      `json:"rating_count"`          // Number of ratings contributing to the average.
	ArchivedAt  *time.Time `json:"archived_at,omitempty"` // Set when the entry is soft-archived; entries are never physically deleted.
	CreatedAt   time.Time  `json:"created_at"`            // Timestamp of when this record was created.
	UpdatedAt   time.Time  `json:"updated_at"`            // Timestamp of the last modification.
}

// Archived reports whether the entry has been soft-archived.
func (e *Entry) Archived() bool {
	return e.ArchivedAt != nil
}

// ValidCoordinate reports whether lat/lng form a usable WGS84 coordinate.
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
