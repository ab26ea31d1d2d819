package handler

import (
	"log/slog"
	"net/http"

	"geodex/internal/delivery/http/response"
	"geodex/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// ConfirmationHandlerParams holds dependencies for ConfirmationHandler, injected by Fx.
type ConfirmationHandlerParams struct {
	fx.In

	ConfirmationUC usecase.ConfirmationUsecase
	Logger         *slog.Logger
}

// ConfirmationHandler holds dependencies for token redemption handlers.
// These routes are public; the token itself is the credential.
type ConfirmationHandler struct {
	confirmationUC usecase.ConfirmationUsecase
	logger         *slog.Logger
}

// NewConfirmationHandler is the constructor for ConfirmationHandler
func NewConfirmationHandler(params ConfirmationHandlerParams) *ConfirmationHandler {
	return &ConfirmationHandler{
		confirmationUC: params.ConfirmationUC,
		logger:         params.Logger,
	}
}

// ConfirmRequest represents the request body carrying a confirmation token
type ConfirmRequest struct {
	Token string `json:"token" validate:"required"`
}

// ConfirmSubscription handles redeeming a subscription confirmation token
func (h *ConfirmationHandler) ConfirmSubscription(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid confirmation input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	subscription, err := h.confirmationUC.ConfirmSubscription(c.Request().Context(), req.Token)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, subscription, "Subscription confirmed successfully")
}

// ConfirmEmail handles redeeming an email confirmation token
func (h *ConfirmationHandler) ConfirmEmail(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid confirmation input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	user, err := h.confirmationUC.ConfirmEmail(c.Request().Context(), req.Token)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, user, "Email address confirmed successfully")
}
