package impl

import (
	"context"
	"sync"
	"testing"

	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRatingService(store *fakeStore) usecase.RatingUsecase {
	return &ratingService{
		txManager:  &fakeTxManager{store: store},
		entryRepo:  &fakeEntryRepo{store: store},
		ratingRepo: &fakeRatingRepo{store: store},
	}
}

func TestCreateRating_UpdatesAggregate(t *testing.T) {
	store := newFakeStore()
	entrySvc := newEntryService(store, &fakeBus{})
	ratingSvc := newRatingService(store)
	ctx := context.Background()

	entry, err := entrySvc.CreateEntry(ctx, validInput())
	require.NoError(t, err)

	_, err = ratingSvc.CreateRating(ctx, entry.ID, 4, "ok")
	require.NoError(t, err)
	_, err = ratingSvc.CreateRating(ctx, entry.ID, 8, "great")
	require.NoError(t, err)

	current, err := entrySvc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.RatingCount)
	assert.InDelta(t, 6.0, current.AvgRating, 1e-9)
}

func TestCreateRating_RejectsOutOfScaleValues(t *testing.T) {
	store := newFakeStore()
	ratingSvc := newRatingService(store)
	ctx := context.Background()

	for _, value := range []int{0, -1, 11} {
		_, err := ratingSvc.CreateRating(ctx, uuid.New(), value, "")
		assert.Equal(t, domainerrors.ErrInvalidRatingValue, err, "value %d", value)
	}
}

func TestCreateRating_UnknownEntry(t *testing.T) {
	ratingSvc := newRatingService(newFakeStore())

	_, err := ratingSvc.CreateRating(context.Background(), uuid.New(), 5, "")
	assert.Equal(t, domainerrors.ErrEntryNotFound, err)
}

func TestCreateRating_ArchivedEntry(t *testing.T) {
	store := newFakeStore()
	entrySvc := newEntryService(store, &fakeBus{})
	ratingSvc := newRatingService(store)
	ctx := context.Background()

	entry, err := entrySvc.CreateEntry(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, entrySvc.ArchiveEntry(ctx, entry.ID))

	_, err = ratingSvc.CreateRating(ctx, entry.ID, 5, "")
	assert.Equal(t, domainerrors.ErrEntryNotFound, err)
}

// Concurrent ratings of one entry must end with count == writers and the
// exact mean, regardless of interleaving.
func TestCreateRating_ConcurrentWritersConvergeOnExactMean(t *testing.T) {
	store := newFakeStore()
	entrySvc := newEntryService(store, &fakeBus{})
	ratingSvc := newRatingService(store)
	ctx := context.Background()

	entry, err := entrySvc.CreateEntry(ctx, validInput())
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	var sum int64
	var sumMu sync.Mutex

	for i := 0; i < writers; i++ {
		value := i%10 + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ratingSvc.CreateRating(ctx, entry.ID, value, ""); err == nil {
				sumMu.Lock()
				sum += int64(value)
				sumMu.Unlock()
			}
		}()
	}
	wg.Wait()

	current, err := entrySvc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), current.RatingCount)
	assert.InDelta(t, float64(sum)/float64(writers), current.AvgRating, 1e-9)
}

func TestGetRatings_SkipsUnknownIDs(t *testing.T) {
	store := newFakeStore()
	entrySvc := newEntryService(store, &fakeBus{})
	ratingSvc := newRatingService(store)
	ctx := context.Background()

	entry, err := entrySvc.CreateEntry(ctx, validInput())
	require.NoError(t, err)
	rating, err := ratingSvc.CreateRating(ctx, entry.ID, 7, "")
	require.NoError(t, err)

	got, err := ratingSvc.GetRatings(ctx, []uuid.UUID{rating.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rating.ID, got[0].ID)
}
