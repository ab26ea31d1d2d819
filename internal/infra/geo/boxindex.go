// Package geo provides the in-memory spatial index used to match entry
// coordinates against confirmed bbox subscriptions.
package geo

import (
	"math"
	"sync"
	"sync/atomic"

	"geodex/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Candidate is one subscription whose box contains a queried point.
type Candidate struct {
	SubscriptionID uuid.UUID
	UserID         uuid.UUID
}

type gridKey struct {
	latCell int
	lngCell int
}

type indexedBox struct {
	subscriptionID uuid.UUID
	userID         uuid.UUID
	// Antimeridian-crossing boxes are split into non-wrapping halves so
	// every stored bound satisfies Min.Lng <= Max.Lng.
	bounds []orb.Bound
}

// snapshot is an immutable grid of box references. Readers load it with a
// single atomic pointer read and never take a lock.
type snapshot struct {
	grid map[gridKey][]*indexedBox
}

// BoxIndex implements a grid-based spatial index over bbox subscriptions.
// Mutations rebuild the read snapshot and swap it atomically, so point
// queries on the notification path never contend with writers.
type BoxIndex struct {
	cellSize float64 // grid cell size in degrees, both axes

	mu    sync.Mutex // serializes writers and guards boxes
	boxes map[uuid.UUID]*indexedBox

	snap atomic.Pointer[snapshot]
}

// NewBoxIndex creates an empty index. cellSizeDeg determines the grid cell
// size (smaller = more cells, faster lookup but more memory).
func NewBoxIndex(cellSizeDeg float64) *BoxIndex {
	if cellSizeDeg <= 0 {
		cellSizeDeg = 5.0
	}
	idx := &BoxIndex{
		cellSize: cellSizeDeg,
		boxes:    make(map[uuid.UUID]*indexedBox),
	}
	idx.snap.Store(&snapshot{grid: make(map[gridKey][]*indexedBox)})
	return idx
}

// Insert adds or replaces the box of one subscription and publishes a new
// snapshot before returning.
func (x *BoxIndex) Insert(subscriptionID, userID uuid.UUID, bbox entity.BoundingBox) {
	box := &indexedBox{
		subscriptionID: subscriptionID,
		userID:         userID,
	}
	for _, h := range bbox.Halves() {
		box.bounds = append(box.bounds, orb.Bound{
			Min: orb.Point{h.SouthWestLng, h.SouthWestLat},
			Max: orb.Point{h.NorthEastLng, h.NorthEastLat},
		})
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.boxes[subscriptionID] = box
	x.publishLocked()
}

// Remove deletes one subscription from the index. Removing an absent ID is
// a no-op.
func (x *BoxIndex) Remove(subscriptionID uuid.UUID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.boxes[subscriptionID]; !ok {
		return
	}
	delete(x.boxes, subscriptionID)
	x.publishLocked()
}

// RemoveAll deletes several subscriptions in one snapshot rebuild.
func (x *BoxIndex) RemoveAll(subscriptionIDs []uuid.UUID) {
	if len(subscriptionIDs) == 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	changed := false
	for _, id := range subscriptionIDs {
		if _, ok := x.boxes[id]; ok {
			delete(x.boxes, id)
			changed = true
		}
	}
	if changed {
		x.publishLocked()
	}
}

// Replace swaps the full index content in one snapshot rebuild. Used to warm
// the index from the database on startup.
func (x *BoxIndex) Replace(subscriptions []*entity.BboxSubscription) {
	boxes := make(map[uuid.UUID]*indexedBox, len(subscriptions))
	for _, sub := range subscriptions {
		box := &indexedBox{
			subscriptionID: sub.ID,
			userID:         sub.UserID,
		}
		for _, h := range sub.Bbox.Halves() {
			box.bounds = append(box.bounds, orb.Bound{
				Min: orb.Point{h.SouthWestLng, h.SouthWestLat},
				Max: orb.Point{h.NorthEastLng, h.NorthEastLat},
			})
		}
		boxes[sub.ID] = box
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.boxes = boxes
	x.publishLocked()
}

// Query returns every indexed subscription whose box contains the point.
// Boundary points count as inside. Reads are lock-free.
func (x *BoxIndex) Query(lat, lng float64) []Candidate {
	snap := x.snap.Load()
	key := x.cellKey(lat, lng)
	cell := snap.grid[key]
	if len(cell) == 0 {
		return nil
	}

	point := orb.Point{lng, lat}
	seen := make(map[uuid.UUID]struct{}, len(cell))
	var out []Candidate
	for _, box := range cell {
		if _, dup := seen[box.subscriptionID]; dup {
			continue
		}
		for _, b := range box.bounds {
			if b.Contains(point) {
				seen[box.subscriptionID] = struct{}{}
				out = append(out, Candidate{
					SubscriptionID: box.subscriptionID,
					UserID:         box.userID,
				})
				break
			}
		}
	}
	return out
}

// Size returns the number of indexed subscriptions.
func (x *BoxIndex) Size() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.boxes)
}

// publishLocked rebuilds the grid from the master box set and swaps the
// snapshot. Caller holds mu.
func (x *BoxIndex) publishLocked() {
	grid := make(map[gridKey][]*indexedBox)
	for _, box := range x.boxes {
		for _, b := range box.bounds {
			minKey := x.cellKey(b.Min.Y(), b.Min.X())
			maxKey := x.cellKey(b.Max.Y(), b.Max.X())
			for latCell := minKey.latCell; latCell <= maxKey.latCell; latCell++ {
				for lngCell := minKey.lngCell; lngCell <= maxKey.lngCell; lngCell++ {
					key := gridKey{latCell: latCell, lngCell: lngCell}
					grid[key] = append(grid[key], box)
				}
			}
		}
	}
	x.snap.Store(&snapshot{grid: grid})
}

func (x *BoxIndex) cellKey(lat, lng float64) gridKey {
	return gridKey{
		latCell: int(math.Floor(lat / x.cellSize)),
		lngCell: int(math.Floor(lng / x.cellSize)),
	}
}
