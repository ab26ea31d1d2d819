package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"geodex/internal/delivery/http/validator"
	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEntryUsecase records calls and returns canned results.
type fakeEntryUsecase struct {
	created *entity.Entry
	updated *entity.Entry
	err     error

	gotInput   usecase.EntryInput
	gotVersion int64
	gotPatch   repository.EntryPatch
}

func (f *fakeEntryUsecase) CreateEntry(_ context.Context, input usecase.EntryInput) (*entity.Entry, error) {
	f.gotInput = input

	return f.created, f.err
}

func (f *fakeEntryUsecase) UpdateEntry(_ context.Context, _ uuid.UUID, expectedVersion int64, patch repository.EntryPatch) (*entity.Entry, error) {
	f.gotVersion = expectedVersion
	f.gotPatch = patch

	return f.updated, f.err
}

func (f *fakeEntryUsecase) GetEntry(context.Context, uuid.UUID) (*entity.Entry, error) {
	return f.created, f.err
}

func (f *fakeEntryUsecase) ListEntriesInBbox(context.Context, entity.BoundingBox, int) ([]*entity.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}

	return []*entity.Entry{f.created}, nil
}

func (f *fakeEntryUsecase) ExportCSV(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, "id,title\n")

	return err
}

func (f *fakeEntryUsecase) ArchiveEntry(context.Context, uuid.UUID) error {
	return f.err
}

func newEntryTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = validator.New()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()

	return e.NewContext(req, rec), rec
}

func TestEntryHandler_CreateEntry(t *testing.T) {
	uc := &fakeEntryUsecase{created: &entity.Entry{ID: uuid.New(), Title: "Community Garden", Version: 1}}
	handler := &EntryHandler{entryUC: uc, logger: slog.Default()}

	c, rec := newEntryTestContext(t, http.MethodPost, "/entries",
		`{"title":"Community Garden","latitude":52.5,"longitude":13.4,"categories":["non-profit"]}`)

	require.NoError(t, handler.CreateEntry(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Community Garden", uc.gotInput.Title)
	assert.Equal(t, []string{"non-profit"}, uc.gotInput.Categories)
	assert.Contains(t, rec.Body.String(), `"version":1`)
}

func TestEntryHandler_CreateEntry_MissingTitle(t *testing.T) {
	handler := &EntryHandler{entryUC: &fakeEntryUsecase{}, logger: slog.Default()}

	c, rec := newEntryTestContext(t, http.MethodPost, "/entries", `{"latitude":52.5,"longitude":13.4}`)

	require.NoError(t, handler.CreateEntry(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestEntryHandler_UpdateEntry_PassesVersionAndPatch(t *testing.T) {
	uc := &fakeEntryUsecase{updated: &entity.Entry{ID: uuid.New(), Title: "Renamed", Version: 3}}
	handler := &EntryHandler{entryUC: uc, logger: slog.Default()}

	c, rec := newEntryTestContext(t, http.MethodPut, "/entries/"+uuid.NewString(),
		`{"version":2,"title":"Renamed"}`)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	require.NoError(t, handler.UpdateEntry(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), uc.gotVersion)
	require.NotNil(t, uc.gotPatch.Title)
	assert.Equal(t, "Renamed", *uc.gotPatch.Title)
	assert.Nil(t, uc.gotPatch.Description)
}

func TestEntryHandler_UpdateEntry_VersionConflict(t *testing.T) {
	uc := &fakeEntryUsecase{err: domainerrors.ErrVersionConflict}
	handler := &EntryHandler{entryUC: uc, logger: slog.Default()}

	c, rec := newEntryTestContext(t, http.MethodPut, "/entries/"+uuid.NewString(), `{"version":1,"title":"x"}`)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	require.NoError(t, handler.UpdateEntry(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "VERSION_CONFLICT")
}

func TestEntryHandler_SearchEntries_InvalidBbox(t *testing.T) {
	handler := &EntryHandler{entryUC: &fakeEntryUsecase{}, logger: slog.Default()}

	c, rec := newEntryTestContext(t, http.MethodGet, "/entries?bbox=1,2,3", "")

	require.NoError(t, handler.SearchEntries(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_BBOX")
}

func TestEntryHandler_SearchEntries_ParsesBbox(t *testing.T) {
	uc := &fakeEntryUsecase{created: &entity.Entry{ID: uuid.New(), Title: "Found"}}
	handler := &EntryHandler{entryUC: uc, logger: slog.Default()}

	c, rec := newEntryTestContext(t, http.MethodGet, "/entries?bbox=48.1,10.2,48.9,11.5", "")

	require.NoError(t, handler.SearchEntries(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Found")
}

func TestEntryHandler_ExportEntries_SetsCSVHeaders(t *testing.T) {
	handler := &EntryHandler{entryUC: &fakeEntryUsecase{}, logger: slog.Default()}

	c, rec := newEntryTestContext(t, http.MethodGet, "/entries/export.csv", "")

	require.NoError(t, handler.ExportEntries(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Contains(t, rec.Body.String(), "id,title")
}
