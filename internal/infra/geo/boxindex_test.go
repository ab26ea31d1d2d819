package geo

import (
	"math/rand"
	"sync"
	"testing"

	"geodex/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBox(rng *rand.Rand) entity.BoundingBox {
	south := rng.Float64()*170 - 85
	north := south + rng.Float64()*(85-south)
	west := rng.Float64()*360 - 180
	east := rng.Float64()*360 - 180
	return entity.BoundingBox{
		SouthWestLat: south,
		SouthWestLng: west,
		NorthEastLat: north,
		NorthEastLng: east,
	}
}

func TestBoxIndex_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	idx := NewBoxIndex(5.0)

	type sub struct {
		id     uuid.UUID
		userID uuid.UUID
		bbox   entity.BoundingBox
	}

	subs := make([]sub, 0, 200)
	for i := 0; i < 200; i++ {
		s := sub{id: uuid.New(), userID: uuid.New(), bbox: randomBox(rng)}
		subs = append(subs, s)
		idx.Insert(s.id, s.userID, s.bbox)
	}
	require.Equal(t, 200, idx.Size())

	for i := 0; i < 1000; i++ {
		lat := rng.Float64()*180 - 90
		lng := rng.Float64()*360 - 180

		want := make(map[uuid.UUID]struct{})
		for _, s := range subs {
			if s.bbox.Contains(lat, lng) {
				want[s.id] = struct{}{}
			}
		}

		got := idx.Query(lat, lng)
		gotSet := make(map[uuid.UUID]struct{}, len(got))
		for _, c := range got {
			gotSet[c.SubscriptionID] = struct{}{}
		}
		assert.Equal(t, want, gotSet, "point (%f, %f)", lat, lng)
	}
}

func TestBoxIndex_AntimeridianBox(t *testing.T) {
	idx := NewBoxIndex(5.0)
	subID := uuid.New()
	userID := uuid.New()

	// West of the box boundary is east of the east edge: the box wraps.
	idx.Insert(subID, userID, entity.BoundingBox{
		SouthWestLat: -10,
		SouthWestLng: 170,
		NorthEastLat: 10,
		NorthEastLng: -170,
	})

	for _, tc := range []struct {
		name     string
		lat, lng float64
		inside   bool
	}{
		{"east of antimeridian", 0, 175, true},
		{"west of antimeridian", 0, -175, true},
		{"exactly on antimeridian", 0, 180, true},
		{"outside longitude gap", 0, 0, false},
		{"outside latitude", 20, 175, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := idx.Query(tc.lat, tc.lng)
			if tc.inside {
				require.Len(t, got, 1)
				assert.Equal(t, subID, got[0].SubscriptionID)
				assert.Equal(t, userID, got[0].UserID)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestBoxIndex_BoundaryPointsAreInside(t *testing.T) {
	idx := NewBoxIndex(5.0)
	subID := uuid.New()
	idx.Insert(subID, uuid.New(), entity.BoundingBox{
		SouthWestLat: 10,
		SouthWestLng: 20,
		NorthEastLat: 30,
		NorthEastLng: 40,
	})

	for _, p := range [][2]float64{{10, 20}, {30, 40}, {10, 40}, {30, 20}, {20, 30}} {
		assert.Len(t, idx.Query(p[0], p[1]), 1, "corner (%f, %f)", p[0], p[1])
	}
	assert.Empty(t, idx.Query(9.999, 30))
	assert.Empty(t, idx.Query(20, 40.001))
}

func TestBoxIndex_RemoveAndReplace(t *testing.T) {
	idx := NewBoxIndex(5.0)
	box := entity.BoundingBox{SouthWestLat: 0, SouthWestLng: 0, NorthEastLat: 10, NorthEastLng: 10}

	a, b := uuid.New(), uuid.New()
	idx.Insert(a, uuid.New(), box)
	idx.Insert(b, uuid.New(), box)
	require.Len(t, idx.Query(5, 5), 2)

	idx.Remove(a)
	got := idx.Query(5, 5)
	require.Len(t, got, 1)
	assert.Equal(t, b, got[0].SubscriptionID)

	// Removing an unknown ID is a no-op.
	idx.Remove(uuid.New())
	assert.Equal(t, 1, idx.Size())

	idx.Replace(nil)
	assert.Zero(t, idx.Size())
	assert.Empty(t, idx.Query(5, 5))
}

func TestBoxIndex_ConcurrentReadsDuringWrites(t *testing.T) {
	idx := NewBoxIndex(5.0)
	box := entity.BoundingBox{SouthWestLat: -5, SouthWestLng: -5, NorthEastLat: 5, NorthEastLng: 5}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					idx.Query(0, 0)
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		id := uuid.New()
		idx.Insert(id, uuid.New(), box)
		idx.Remove(id)
	}
	close(stop)
	wg.Wait()

	assert.Zero(t, idx.Size())
}
