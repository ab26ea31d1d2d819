package impl

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntryService(store *fakeStore, bus *fakeBus) usecase.EntryUsecase {
	return &entryService{
		txManager: &fakeTxManager{store: store},
		entryRepo: &fakeEntryRepo{store: store},
		bus:       bus,
		config:    testConfig(),
		logger:    testLogger(),
	}
}

func entryPatch(title *string) repository.EntryPatch {
	return repository.EntryPatch{Title: title}
}

func validInput() usecase.EntryInput {
	return usecase.EntryInput{
		Title:      "Community Garden",
		Latitude:   52.52,
		Longitude:  13.405,
		Categories: []string{"garden"},
	}
}

func TestCreateEntry_StartsAtVersionOneAndEnqueuesEvent(t *testing.T) {
	store := newFakeStore()
	bus := &fakeBus{}
	svc := newEntryService(store, bus)

	entry, err := svc.CreateEntry(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, int64(1), entry.Version)
	assert.NotEqual(t, uuid.Nil, entry.ID)

	require.Len(t, store.events, 1)
	assert.Equal(t, entity.ChangeEventCreated, store.events[0].Kind)
	assert.Equal(t, entry.ID, store.events[0].EntryID)
	assert.Equal(t, int64(1), store.events[0].Sequence)
	assert.Equal(t, 1, bus.notified)
}

func TestCreateEntry_RejectsInvalidInput(t *testing.T) {
	svc := newEntryService(newFakeStore(), &fakeBus{})
	ctx := context.Background()

	blank := validInput()
	blank.Title = "   "
	_, err := svc.CreateEntry(ctx, blank)
	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_FAILED", appErr.ErrorCode())

	badLat := validInput()
	badLat.Latitude = 91
	_, err = svc.CreateEntry(ctx, badLat)
	assert.Equal(t, domainerrors.ErrInvalidCoordinates, err)

	badLng := validInput()
	badLng.Longitude = -180.5
	_, err = svc.CreateEntry(ctx, badLng)
	assert.Equal(t, domainerrors.ErrInvalidCoordinates, err)
}

func TestUpdateEntry_BumpsVersionAndEnqueuesUpdatedEvent(t *testing.T) {
	store := newFakeStore()
	bus := &fakeBus{}
	svc := newEntryService(store, bus)
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)

	title := "Community Garden East"
	updated, err := svc.UpdateEntry(ctx, entry.ID, 1, entryPatch(&title))
	require.NoError(t, err)

	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, title, updated.Title)

	require.Len(t, store.events, 2)
	assert.Equal(t, entity.ChangeEventUpdated, store.events[1].Kind)
	assert.Equal(t, title, store.events[1].Title)
	assert.Greater(t, store.events[1].Sequence, store.events[0].Sequence)
}

func TestUpdateEntry_StaleVersionConflictsWithoutSideEffects(t *testing.T) {
	store := newFakeStore()
	bus := &fakeBus{}
	svc := newEntryService(store, bus)
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)

	title := "First"
	_, err = svc.UpdateEntry(ctx, entry.ID, 1, entryPatch(&title))
	require.NoError(t, err)

	// Second writer still holds version 1.
	stale := "Second"
	_, err = svc.UpdateEntry(ctx, entry.ID, 1, entryPatch(&stale))
	assert.Equal(t, domainerrors.ErrVersionConflict, err)

	// The losing update emitted no event and bumped nothing.
	assert.Len(t, store.events, 2)
	current, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.Version)
	assert.Equal(t, "First", current.Title)
}

func TestUpdateEntry_UnknownEntry(t *testing.T) {
	svc := newEntryService(newFakeStore(), &fakeBus{})

	title := "x"
	_, err := svc.UpdateEntry(context.Background(), uuid.New(), 1, entryPatch(&title))
	assert.Equal(t, domainerrors.ErrEntryNotFound, err)
}

func TestArchiveEntry_HidesEntryFromReads(t *testing.T) {
	store := newFakeStore()
	svc := newEntryService(store, &fakeBus{})
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.ArchiveEntry(ctx, entry.ID))
	// Archiving twice is a no-op.
	require.NoError(t, svc.ArchiveEntry(ctx, entry.ID))

	bbox := entity.BoundingBox{SouthWestLat: 50, SouthWestLng: 10, NorthEastLat: 55, NorthEastLng: 15}
	entries, err := svc.ListEntriesInBbox(ctx, bbox, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListEntriesInBbox_RejectsMalformedBox(t *testing.T) {
	svc := newEntryService(newFakeStore(), &fakeBus{})

	_, err := svc.ListEntriesInBbox(context.Background(), entity.BoundingBox{
		SouthWestLat: 10, NorthEastLat: 5, // south above north
	}, 10)
	assert.Equal(t, domainerrors.ErrInvalidBbox, err)
}

func TestExportCSV_ContainsHeaderAndEntries(t *testing.T) {
	store := newFakeStore()
	svc := newEntryService(store, &fakeBus{})
	ctx := context.Background()

	entry, err := svc.CreateEntry(ctx, validInput())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,title,description"))
	assert.Contains(t, lines[1], entry.ID.String())
	assert.Contains(t, lines[1], "Community Garden")
}
