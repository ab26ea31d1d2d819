// Package handler contains the HTTP request handlers.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"geodex/internal/delivery/http/response"
	"geodex/internal/domain/entity"
	"geodex/internal/domain/repository"
	"geodex/internal/errors"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// EntryHandlerParams holds dependencies for EntryHandler, injected by Fx.
type EntryHandlerParams struct {
	fx.In

	EntryUC usecase.EntryUsecase
	Logger  *slog.Logger
}

// EntryHandler holds dependencies for entry-related handlers
type EntryHandler struct {
	entryUC usecase.EntryUsecase
	logger  *slog.Logger
}

// NewEntryHandler is the constructor for EntryHandler
func NewEntryHandler(params EntryHandlerParams) *EntryHandler {
	return &EntryHandler{
		entryUC: params.EntryUC,
		logger:  params.Logger,
	}
}

// CreateEntryRequest represents the request body for creating an entry
type CreateEntryRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Categories  []string `json:"categories"`
	Street      string   `json:"street"`
	Zip         string   `json:"zip"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Telephone   string   `json:"telephone"`
	Homepage    string   `json:"homepage" validate:"omitempty,url"`
}

// UpdateEntryRequest represents the request body for a versioned entry update.
// Absent fields are left untouched; Version is the version the edit is based on.
type UpdateEntryRequest struct {
	Version     int64    `json:"version" validate:"required,min=1"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Street      *string  `json:"street,omitempty"`
	Zip         *string  `json:"zip,omitempty"`
	City        *string  `json:"city,omitempty"`
	Country     *string  `json:"country,omitempty"`
	Email       *string  `json:"email,omitempty"`
	Telephone   *string  `json:"telephone,omitempty"`
	Homepage    *string  `json:"homepage,omitempty"`
}

// CreateEntry handles creating a new directory entry
func (h *EntryHandler) CreateEntry(c echo.Context) error {
	var req CreateEntryRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid entry input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	entry, err := h.entryUC.CreateEntry(c.Request().Context(), usecase.EntryInput{
		Title:       req.Title,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Categories:  req.Categories,
		Street:      req.Street,
		Zip:         req.Zip,
		City:        req.City,
		Country:     req.Country,
		Email:       req.Email,
		Telephone:   req.Telephone,
		Homepage:    req.Homepage,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, entry, "Entry created successfully")
}

// UpdateEntry handles a versioned entry update
func (h *EntryHandler) UpdateEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid entry ID")
	}

	var req UpdateEntryRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid entry input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	entry, err := h.entryUC.UpdateEntry(c.Request().Context(), id, req.Version, repository.EntryPatch{
		Title:       req.Title,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Categories:  req.Categories,
		Street:      req.Street,
		Zip:         req.Zip,
		City:        req.City,
		Country:     req.Country,
		Email:       req.Email,
		Telephone:   req.Telephone,
		Homepage:    req.Homepage,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, entry, "Entry updated successfully")
}

// GetEntry handles retrieving one entry by ID
func (h *EntryHandler) GetEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid entry ID")
	}

	entry, err := h.entryUC.GetEntry(c.Request().Context(), id)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, entry, "Entry retrieved successfully")
}

// SearchEntries handles the bbox search, e.g. GET /entries?bbox=48.1,10.2,48.9,11.5
func (h *EntryHandler) SearchEntries(c echo.Context) error {
	bbox, err := parseBbox(c.QueryParam("bbox"))
	if err != nil {
		return response.BadRequest(c, "INVALID_BBOX", err.Error())
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return response.BadRequest(c, "INVALID_LIMIT", "Invalid limit parameter")
		}
	}

	entries, err := h.entryUC.ListEntriesInBbox(c.Request().Context(), bbox, limit)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, entries, "Entries retrieved successfully")
}

// ExportEntries streams all visible entries as CSV
func (h *EntryHandler) ExportEntries(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="entries.csv"`)
	c.Response().WriteHeader(http.StatusOK)

	return h.entryUC.ExportCSV(c.Request().Context(), c.Response())
}

// ArchiveEntry handles soft-archiving an entry
func (h *EntryHandler) ArchiveEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid entry ID")
	}

	if err := h.entryUC.ArchiveEntry(c.Request().Context(), id); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"id": id.String()}, "Entry archived successfully")
}

// parseBbox parses "swLat,swLng,neLat,neLng" into a bounding box.
func parseBbox(raw string) (entity.BoundingBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return entity.BoundingBox{}, errors.New("bbox must be swLat,swLng,neLat,neLng")
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return entity.BoundingBox{}, errors.New("bbox contains a non-numeric coordinate")
		}
		coords[i] = value
	}

	return entity.BoundingBox{
		SouthWestLat: coords[0],
		SouthWestLng: coords[1],
		NorthEastLat: coords[2],
		NorthEastLng: coords[3],
	}, nil
}
