// Package consumer runs the change event consumer: it drains the durable
// event queue in commit order, matches each event against the spatial index
// and enqueues notification work for the dispatcher pool.
package consumer

import (
	"context"
	"log/slog"

	"geodex/config"
	"geodex/internal/delivery"
	"geodex/internal/domain/service"
	"geodex/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// ConsumerParams holds dependencies for the event consumer, injected by Fx.
type ConsumerParams struct {
	fx.In

	Config         *config.Config
	Logger         *slog.Logger
	MatchUC        usecase.MatchUsecase
	SubscriptionUC usecase.SubscriptionUsecase
	Bus            service.ChangeEventBus
}

type eventConsumer struct {
	cfg            *config.Config
	logger         *slog.Logger
	matchUC        usecase.MatchUsecase
	subscriptionUC usecase.SubscriptionUsecase
	bus            service.ChangeEventBus
}

// NewConsumer creates the change event consumer delivery.
func NewConsumer(params ConsumerParams) delivery.Delivery {
	return &eventConsumer{
		cfg:            params.Config,
		logger:         params.Logger,
		matchUC:        params.MatchUC,
		subscriptionUC: params.SubscriptionUC,
		bus:            params.Bus,
	}
}

// Serve warms the spatial index and then drains pending events until the
// context is cancelled. Between drains it sleeps on the wake-up bus, which
// also fires on a poll interval so events written by other processes are
// picked up.
func (c *eventConsumer) Serve(ctx context.Context) error {
	if err := c.subscriptionUC.WarmIndex(ctx); err != nil {
		return errors.Wrap(err, "failed to warm subscription index")
	}

	c.logger.Info("Starting change event consumer")

	for {
		handled, err := c.matchUC.ProcessPendingEvents(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Events are processed in sequence order, so a failure blocks the
			// queue. Log and retry after the next wake-up.
			c.logger.Error("Failed to process pending events",
				slog.Int("handled", handled),
				slog.Any("error", err),
			)
		} else if handled > 0 {
			// More events may already be pending, drain again immediately.
			continue
		}

		if err := c.bus.Wait(ctx); err != nil {
			return err
		}
	}
}
