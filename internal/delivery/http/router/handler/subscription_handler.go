package handler

import (
	"log/slog"
	"net/http"

	"geodex/internal/delivery/http/middleware"
	"geodex/internal/delivery/http/response"
	"geodex/internal/domain/entity"
	"geodex/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SubscriptionHandlerParams holds dependencies for SubscriptionHandler, injected by Fx.
type SubscriptionHandlerParams struct {
	fx.In

	SubscriptionUC usecase.SubscriptionUsecase
	Logger         *slog.Logger
}

// SubscriptionHandler holds dependencies for subscription-related handlers
type SubscriptionHandler struct {
	subscriptionUC usecase.SubscriptionUsecase
	logger         *slog.Logger
}

// NewSubscriptionHandler is the constructor for SubscriptionHandler
func NewSubscriptionHandler(params SubscriptionHandlerParams) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionUC: params.SubscriptionUC,
		logger:         params.Logger,
	}
}

// SubscribeRequest represents the request body for subscribing to a map region
type SubscribeRequest struct {
	SouthWestLat float64 `json:"south_west_lat"`
	SouthWestLng float64 `json:"south_west_lng"`
	NorthEastLat float64 `json:"north_east_lat"`
	NorthEastLng float64 `json:"north_east_lng"`
}

// SubscribeToBbox handles subscribing the caller to a bounding box
func (h *SubscriptionHandler) SubscribeToBbox(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "IDENTITY_MISSING", "No caller identity")
	}

	email, ok := middleware.UserEmail(c)
	if !ok {
		return response.Unauthorized(c, "IDENTITY_MISSING", "No caller identity")
	}

	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid subscription input")
	}

	subscription, err := h.subscriptionUC.Subscribe(c.Request().Context(), userID, email, entity.BoundingBox{
		SouthWestLat: req.SouthWestLat,
		SouthWestLng: req.SouthWestLng,
		NorthEastLat: req.NorthEastLat,
		NorthEastLng: req.NorthEastLng,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, subscription, "Subscribed to bounding box successfully")
}

// UnsubscribeAllBboxes handles removing every subscription of the caller
func (h *SubscriptionHandler) UnsubscribeAllBboxes(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "IDENTITY_MISSING", "No caller identity")
	}

	removed, err := h.subscriptionUC.UnsubscribeAll(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]int{"removed": removed}, "Unsubscribed from all bounding boxes")
}

// GetSubscriptions handles retrieving all subscriptions of the caller
func (h *SubscriptionHandler) GetSubscriptions(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "IDENTITY_MISSING", "No caller identity")
	}

	subscriptions, err := h.subscriptionUC.ListSubscriptions(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, subscriptions, "Subscriptions retrieved successfully")
}

// RequestEmailConfirmation handles issuing an email confirmation token
func (h *SubscriptionHandler) RequestEmailConfirmation(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "IDENTITY_MISSING", "No caller identity")
	}

	email, ok := middleware.UserEmail(c)
	if !ok {
		return response.Unauthorized(c, "IDENTITY_MISSING", "No caller identity")
	}

	if err := h.subscriptionUC.RequestEmailConfirmation(c.Request().Context(), userID, email); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, nil, "Confirmation mail sent")
}
