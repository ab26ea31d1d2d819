// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionState describes the confirmation state of a bbox subscription.
// Only confirmed subscriptions participate in notification matching.
type SubscriptionState string

const (
	SubscriptionPending   SubscriptionState = "pending"
	SubscriptionConfirmed SubscriptionState = "confirmed"
	SubscriptionRevoked   SubscriptionState = "revoked"
)

// BoundingBox is an axis-aligned rectangle in latitude/longitude space.
// The invariant after normalization is SouthWestLat <= NorthEastLat on the
// latitude axis. On the longitude axis SouthWestLng > NorthEastLng is legal
// and means the box wraps across the antimeridian.
type BoundingBox struct {
	SouthWestLat float64 `json:"south_west_lat"`
	SouthWestLng float64 `json:"south_west_lng"`
	NorthEastLat float64 `json:"north_east_lat"`
	NorthEastLng float64 `json:"north_east_lng"`
}

// Valid reports whether both corners are usable coordinates and the latitude
// axis is ordered. Longitude ordering is not required because of wrapping.
func (b BoundingBox) Valid() bool {
	if !ValidCoordinate(b.SouthWestLat, b.SouthWestLng) || !ValidCoordinate(b.NorthEastLat, b.NorthEastLng) {
		return false
	}

	return b.SouthWestLat <= b.NorthEastLat
}

// CrossesAntimeridian reports whether the box wraps across the 180° meridian.
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.SouthWestLng > b.NorthEastLng
}

// Contains reports whether the point lies inside the box, using closed
// intervals on both axes.
func (b BoundingBox) Contains(lat, lng float64) bool {
	if lat < b.SouthWestLat || lat > b.NorthEastLat {
		return false
	}
	if b.CrossesAntimeridian() {
		return lng >= b.SouthWestLng || lng <= b.NorthEastLng
	}

	return lng >= b.SouthWestLng && lng <= b.NorthEastLng
}

// Halves splits the box into non-wrapping rectangles. A box that does not
// cross the antimeridian is returned unchanged; a wrapping box becomes a
// western half up to 180° and an eastern half from -180°.
func (b BoundingBox) Halves() []BoundingBox {
	if !b.CrossesAntimeridian() {
		return []BoundingBox{b}
	}

	return []BoundingBox{
		{SouthWestLat: b.SouthWestLat, SouthWestLng: b.SouthWestLng, NorthEastLat: b.NorthEastLat, NorthEastLng: 180},
		{SouthWestLat: b.SouthWestLat, SouthWestLng: -180, NorthEastLat: b.NorthEastLat, NorthEastLng: b.NorthEastLng},
	}
}

// BboxSubscription represents a user's subscription to a rectangular map
// region. The user receives an email notification whenever an entry inside
// the region is created or changed.
type BboxSubscription struct {
	ID        uuid.UUID         `json:"id"`         // The Global Unique Identifier (GUID) for the subscription.
	UserID    uuid.UUID         `json:"user_id"`    // The ID of the subscribing user.
	Bbox      BoundingBox       `json:"bbox"`       // The subscribed region.
	State     SubscriptionState `json:"state"`      // Confirmation state; only confirmed subscriptions match.
	CreatedAt time.Time         `json:"created_at"` // Timestamp of when the subscription was created.
	UpdatedAt time.Time         `json:"updated_at"` // Timestamp of the last modification.
	DeletedAt *time.Time        `json:"-"`          // Set when the user unsubscribed; the row stays for revival.
}

// Deleted reports whether the subscription was removed by an unsubscribe.
// A deleted row still occupies the (user, bbox) unique index and is revived
// in place when the user subscribes to the same box again.
func (s *BboxSubscription) Deleted() bool {
	return s.DeletedAt != nil
}
