package consumer

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"geodex/config"
	"geodex/internal/domain/entity"
	"geodex/internal/infra/bus"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// idleMatcher reports an empty outbox on every drain.
type idleMatcher struct{}

func (idleMatcher) ProcessPendingEvents(context.Context) (int, error) { return 0, nil }
func (idleMatcher) MatchPoint(float64, float64) []uuid.UUID           { return nil }

// stubSubscriptions only supports warming the index.
type stubSubscriptions struct{}

func (stubSubscriptions) Subscribe(context.Context, uuid.UUID, string, entity.BoundingBox) (*entity.BboxSubscription, error) {
	return nil, nil
}

func (stubSubscriptions) UnsubscribeAll(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (stubSubscriptions) ListSubscriptions(context.Context, uuid.UUID) ([]*entity.BboxSubscription, error) {
	return nil, nil
}

func (stubSubscriptions) RequestEmailConfirmation(context.Context, uuid.UUID, string) error {
	return nil
}

func (stubSubscriptions) WarmIndex(context.Context) error { return nil }

func TestServe_ReturnsOnContextCancel(t *testing.T) {
	consumer := &eventConsumer{
		cfg:            &config.Config{},
		logger:         slog.Default(),
		matchUC:        idleMatcher{},
		subscriptionUC: stubSubscriptions{},
		bus:            bus.New(10 * time.Millisecond),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Serve(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
