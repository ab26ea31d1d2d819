package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"geodex/internal/delivery/http/response"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// RatingHandlerParams holds dependencies for RatingHandler, injected by Fx.
type RatingHandlerParams struct {
	fx.In

	RatingUC usecase.RatingUsecase
	Logger   *slog.Logger
}

// RatingHandler holds dependencies for rating-related handlers
type RatingHandler struct {
	ratingUC usecase.RatingUsecase
	logger   *slog.Logger
}

// NewRatingHandler is the constructor for RatingHandler
func NewRatingHandler(params RatingHandlerParams) *RatingHandler {
	return &RatingHandler{
		ratingUC: params.RatingUC,
		logger:   params.Logger,
	}
}

// CreateRatingRequest represents the request body for rating an entry
type CreateRatingRequest struct {
	EntryID uuid.UUID `json:"entry_id" validate:"required"`
	Value   int       `json:"value" validate:"required"`
	Comment string    `json:"comment"`
}

// CreateRating handles submitting a rating for an entry
func (h *RatingHandler) CreateRating(c echo.Context) error {
	var req CreateRatingRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid rating input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	rating, err := h.ratingUC.CreateRating(c.Request().Context(), req.EntryID, req.Value, req.Comment)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, rating, "Rating created successfully")
}

// GetRatings handles retrieving ratings by a comma-separated ID list
func (h *RatingHandler) GetRatings(c echo.Context) error {
	parts := strings.Split(c.Param("ids"), ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return response.BadRequest(c, "INVALID_ID", "Invalid rating ID")
		}
		ids = append(ids, id)
	}

	ratings, err := h.ratingUC.GetRatings(c.Request().Context(), ids)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, ratings, "Ratings retrieved successfully")
}

// GetRatingsForEntry handles retrieving all ratings of one entry
func (h *RatingHandler) GetRatingsForEntry(c echo.Context) error {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid entry ID")
	}

	ratings, err := h.ratingUC.GetRatingsForEntry(c.Request().Context(), entryID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, ratings, "Ratings retrieved successfully")
}
