package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"geodex/config"
	"geodex/internal/delivery"
	"geodex/internal/delivery/consumer"
	"geodex/internal/delivery/dispatcher"
	"geodex/internal/delivery/http"
	"geodex/internal/delivery/http/middleware"
	"geodex/internal/delivery/http/router/handler"
	"geodex/internal/domain/service"
	"geodex/internal/errors"
	"geodex/internal/infra/bus"
	"geodex/internal/infra/geo"
	logs "geodex/internal/infra/log"
	"geodex/internal/infra/notification"
	"geodex/internal/infra/observability"
	"geodex/internal/infra/persistence/postgres"
	"geodex/internal/infra/pubsub"
	"geodex/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
			observability.InitRegistry,
			newSignalBus,
			newBoxIndex,
		),
		notification.Module,
		pubsub.Module,
	)
}

// newSignalBus creates the in-process wake-up channel between the entry
// write path and the change event consumer.
func newSignalBus(cfg *config.Config) service.ChangeEventBus {
	return bus.New(cfg.Dispatch.PollInterval)
}

// newBoxIndex creates the subscription spatial index.
func newBoxIndex(cfg *config.Config) *geo.BoxIndex {
	return geo.NewBoxIndex(cfg.Subscription.IndexCellSizeDeg)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewEntryRepository,
			postgres.NewRatingRepository,
			postgres.NewSubscriptionRepository,
			postgres.NewTokenRepository,
			postgres.NewUserRepository,
			postgres.NewChangeEventRepository,
			postgres.NewDispatchQueueRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewEntryService,
			impl.NewRatingService,
			impl.NewSubscriptionService,
			impl.NewConfirmationService,
			impl.NewMatchService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewIdentityMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewEntryHandler,
			handler.NewRatingHandler,
			handler.NewSubscriptionHandler,
			handler.NewConfirmationHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				consumer.NewConsumer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				dispatcher.NewDispatcher,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// startServer runs every delivery on a context cancelled at shutdown, and
// waits for them to drain before the stop hook returns. The hook is appended
// last, so it runs before the infra hooks close the database pool.
func startServer(ctx context.Context, params startServerParams) {
	serveCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	for _, delivery := range params.Deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := delivery.Serve(serveCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}

	params.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			cancel()

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
