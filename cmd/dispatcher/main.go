// The dispatcher binary runs only the notification dispatcher pool, for
// deployments that scale delivery workers independently of the API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"geodex/config"
	"geodex/internal/delivery"
	"geodex/internal/delivery/dispatcher"
	"geodex/internal/errors"
	logs "geodex/internal/infra/log"
	"geodex/internal/infra/notification"
	"geodex/internal/infra/persistence/postgres"

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
		injectDelivery(),
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
		),
		notification.Module,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewDispatchQueueRepository,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
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
				slog.Error("Failed to start dispatcher", slog.Any("error", err))
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
