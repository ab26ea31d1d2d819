// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"geodex/internal/delivery/http/middleware"
	"geodex/internal/delivery/http/router/handler"
	"geodex/internal/infra/observability"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	EntryHandler        *handler.EntryHandler
	RatingHandler       *handler.RatingHandler
	SubscriptionHandler *handler.SubscriptionHandler
	ConfirmationHandler *handler.ConfirmationHandler
	IdentityMiddleware  *middleware.IdentityMiddleware
	Registry            *prometheus.Registry
}

// router holds all the handlers that need to be registered.
type router struct {
	entryHandler        *handler.EntryHandler
	ratingHandler       *handler.RatingHandler
	subscriptionHandler *handler.SubscriptionHandler
	confirmationHandler *handler.ConfirmationHandler
	identityMiddleware  *middleware.IdentityMiddleware
	registry            *prometheus.Registry
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		entryHandler:        params.EntryHandler,
		ratingHandler:       params.RatingHandler,
		subscriptionHandler: params.SubscriptionHandler,
		confirmationHandler: params.ConfirmationHandler,
		identityMiddleware:  params.IdentityMiddleware,
		registry:            params.Registry,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check and metrics endpoints
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(observability.MetricsHandler(r.registry)))

	// Public directory routes
	e.POST("/entries", r.entryHandler.CreateEntry)
	e.GET("/entries", r.entryHandler.SearchEntries)
	e.GET("/entries/export.csv", r.entryHandler.ExportEntries)
	e.GET("/entries/:id", r.entryHandler.GetEntry)
	e.PUT("/entries/:id", r.entryHandler.UpdateEntry)
	e.DELETE("/entries/:id", r.entryHandler.ArchiveEntry)
	e.GET("/entries/:id/ratings", r.ratingHandler.GetRatingsForEntry)

	e.POST("/ratings", r.ratingHandler.CreateRating)
	e.GET("/ratings/:ids", r.ratingHandler.GetRatings)

	// Token redemption routes; the token is the credential
	e.POST("/confirm-email-address", r.confirmationHandler.ConfirmEmail)
	e.POST("/confirm-bbox-subscription", r.confirmationHandler.ConfirmSubscription)

	// Subscription routes require a forwarded caller identity
	subscriptionGroup := e.Group("")
	subscriptionGroup.Use(r.identityMiddleware.Require)
	{
		subscriptionGroup.POST("/subscribe-to-bbox", r.subscriptionHandler.SubscribeToBbox)
		subscriptionGroup.POST("/unsubscribe-all-bboxes", r.subscriptionHandler.UnsubscribeAllBboxes)
		subscriptionGroup.GET("/bbox-subscriptions", r.subscriptionHandler.GetSubscriptions)
		subscriptionGroup.POST("/request-email-confirmation", r.subscriptionHandler.RequestEmailConfirmation)
	}
}
