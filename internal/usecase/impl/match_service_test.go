package impl

import (
	"context"
	"testing"

	"geodex/internal/domain/entity"
	"geodex/internal/domain/repository"
	"geodex/internal/infra/geo"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMatchService(store *fakeStore, index *geo.BoxIndex, publisher *fakePublisher) usecase.MatchUsecase {
	return &matchService{
		txManager: &fakeTxManager{store: store},
		eventRepo: &fakeEventRepo{store: store},
		userRepo:  &fakeUserRepo{store: store},
		index:     index,
		publisher: publisher,
		config:    testConfig(),
		logger:    testLogger(),
	}
}

// seedSubscriber registers a user and a confirmed, indexed subscription.
func seedSubscriber(t *testing.T, store *fakeStore, index *geo.BoxIndex, email string, bbox entity.BoundingBox) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	userID := uuid.New()
	_, err := (&fakeUserRepo{store: store}).EnsureUser(ctx, userID, email)
	require.NoError(t, err)

	subscription := &entity.BboxSubscription{UserID: userID, Bbox: bbox, State: entity.SubscriptionConfirmed}
	require.NoError(t, (&fakeSubscriptionRepo{store: store}).CreateSubscription(ctx, subscription))
	index.Insert(subscription.ID, userID, bbox)

	return userID
}

func TestProcessPendingEvents_EnqueuesOneItemPerMatchedUser(t *testing.T) {
	store := newFakeStore()
	index := geo.NewBoxIndex(5.0)
	publisher := &fakePublisher{}
	svc := newMatchService(store, index, publisher)
	ctx := context.Background()

	inside := seedSubscriber(t, store, index, "inside@example.org", testBbox())
	seedSubscriber(t, store, index, "outside@example.org", entity.BoundingBox{
		SouthWestLat: -10, SouthWestLng: -10, NorthEastLat: 0, NorthEastLng: 0,
	})

	event := &entity.ChangeEvent{
		EntryID: uuid.New(), Kind: entity.ChangeEventCreated,
		Title: "Community Garden", Latitude: 52, Longitude: 12,
	}
	require.NoError(t, (&fakeEventRepo{store: store}).AppendEvent(ctx, event))

	handled, err := svc.ProcessPendingEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)

	require.Len(t, store.dispatches, 1)
	for _, item := range store.dispatches {
		assert.Equal(t, inside, item.UserID)
		assert.Equal(t, "inside@example.org", item.Recipient)
		assert.Equal(t, event.Sequence, item.EventSequence)
		assert.Equal(t, repository.DispatchPending, item.State)
	}

	// The event was mirrored and is not re-delivered.
	require.Len(t, publisher.published, 1)
	handled, err = svc.ProcessPendingEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, handled)
}

func TestProcessPendingEvents_DedupsOverlappingBoxesOfOneUser(t *testing.T) {
	store := newFakeStore()
	index := geo.NewBoxIndex(5.0)
	svc := newMatchService(store, index, &fakePublisher{})
	ctx := context.Background()

	userID := seedSubscriber(t, store, index, "user@example.org", testBbox())
	wider := entity.BoundingBox{SouthWestLat: 40, SouthWestLng: 0, NorthEastLat: 60, NorthEastLng: 20}
	subscription := &entity.BboxSubscription{UserID: userID, Bbox: wider, State: entity.SubscriptionConfirmed}
	require.NoError(t, (&fakeSubscriptionRepo{store: store}).CreateSubscription(ctx, subscription))
	index.Insert(subscription.ID, userID, wider)

	event := &entity.ChangeEvent{EntryID: uuid.New(), Kind: entity.ChangeEventUpdated, Latitude: 52, Longitude: 12}
	require.NoError(t, (&fakeEventRepo{store: store}).AppendEvent(ctx, event))

	_, err := svc.ProcessPendingEvents(ctx)
	require.NoError(t, err)

	assert.Len(t, store.dispatches, 1)
}

func TestProcessPendingEvents_ReprocessingIsInsertIdempotent(t *testing.T) {
	store := newFakeStore()
	index := geo.NewBoxIndex(5.0)
	svc := newMatchService(store, index, &fakePublisher{})
	ctx := context.Background()

	seedSubscriber(t, store, index, "user@example.org", testBbox())

	event := &entity.ChangeEvent{EntryID: uuid.New(), Kind: entity.ChangeEventCreated, Latitude: 52, Longitude: 12}
	require.NoError(t, (&fakeEventRepo{store: store}).AppendEvent(ctx, event))

	_, err := svc.ProcessPendingEvents(ctx)
	require.NoError(t, err)

	// Simulate a crash between enqueue and mark: the event shows up again.
	store.mu.Lock()
	store.processed = map[int64]bool{}
	store.mu.Unlock()

	_, err = svc.ProcessPendingEvents(ctx)
	require.NoError(t, err)

	// The queue still holds exactly one item for the (event, user) pair.
	assert.Len(t, store.dispatches, 1)
}

func TestProcessPendingEvents_PreservesSequenceOrder(t *testing.T) {
	store := newFakeStore()
	index := geo.NewBoxIndex(5.0)
	svc := newMatchService(store, index, &fakePublisher{})
	ctx := context.Background()

	seedSubscriber(t, store, index, "user@example.org", testBbox())

	eventRepo := &fakeEventRepo{store: store}
	entryID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, eventRepo.AppendEvent(ctx, &entity.ChangeEvent{
			EntryID: entryID, Kind: entity.ChangeEventUpdated, Latitude: 52, Longitude: 12,
		}))
	}

	handled, err := svc.ProcessPendingEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, handled)

	// One queue item per event, keyed by ascending sequence.
	assert.Len(t, store.dispatches, 3)
	sequences := map[int64]bool{}
	for _, item := range store.dispatches {
		sequences[item.EventSequence] = true
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, sequences)
}

func TestMatchPoint_EmptyIndex(t *testing.T) {
	svc := newMatchService(newFakeStore(), geo.NewBoxIndex(5.0), &fakePublisher{})

	assert.Empty(t, svc.MatchPoint(52, 12))
}
