// Package dispatcher runs the notification dispatcher pool: it claims items
// from the durable queue and delivers them through the configured notifier
// with bounded retries and a global rate limit.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"geodex/config"
	"geodex/internal/delivery"
	"geodex/internal/domain/repository"
	"geodex/internal/domain/service"
	"geodex/internal/infra/observability"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Dispatch outcomes recorded on the metrics surface.
const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// DispatcherParams holds dependencies for the dispatcher pool, injected by Fx.
type DispatcherParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	Queue    repository.DispatchQueueRepository
	Notifier service.Notifier
}

// defaultSentKeyLimit caps the in-memory idempotency set. Past the cap the
// set is reset and the durable queue state alone covers dedup, the same
// contract as after a process restart.
const defaultSentKeyLimit = 1 << 16

type dispatcherPool struct {
	cfg      *config.Config
	logger   *slog.Logger
	queue    repository.DispatchQueueRepository
	notifier service.Notifier
	limiter  *rate.Limiter

	// sentKeys remembers idempotency keys delivered by this process so a
	// re-claimed item is finalized without a duplicate send. The durable
	// queue state covers everything beyond the process lifetime.
	sentKeys  sync.Map
	sentCount atomic.Int64
	sentLimit int64
}

// NewDispatcher creates the notification dispatcher delivery.
func NewDispatcher(params DispatcherParams) delivery.Delivery {
	workers := params.Config.Dispatch.Workers
	if workers <= 0 {
		workers = 1
	}

	return &dispatcherPool{
		cfg:       params.Config,
		logger:    params.Logger,
		queue:     params.Queue,
		notifier:  params.Notifier,
		limiter:   rate.NewLimiter(rate.Limit(params.Config.Dispatch.RatePerSecond), workers),
		sentLimit: defaultSentKeyLimit,
	}
}

// Serve recovers abandoned items and then claims and delivers queue items
// until the context is cancelled. In-flight sends get a drain grace period
// on shutdown.
func (p *dispatcherPool) Serve(ctx context.Context) error {
	released, err := p.queue.ReleaseInflight(ctx, p.cfg.Dispatch.DrainTimeout)
	if err != nil {
		return errors.Wrap(err, "failed to release abandoned queue items")
	}
	if released > 0 {
		p.logger.Info("Released abandoned queue items", slog.Int64("count", released))
	}

	p.logger.Info("Starting notification dispatcher",
		slog.Int("workers", p.cfg.Dispatch.Workers),
		slog.Int("batchSize", p.cfg.Dispatch.BatchSize),
	)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		claimed, err := p.dispatchBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("Dispatch batch failed", slog.Any("error", err))
		}

		if claimed > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.Dispatch.PollInterval):
		}
	}
}

// dispatchBatch claims one batch and delivers it with the worker pool.
// Returns the number of items claimed.
func (p *dispatcherPool) dispatchBatch(ctx context.Context) (int, error) {
	items, err := p.queue.ClaimPending(ctx, p.cfg.Dispatch.BatchSize)
	if err != nil {
		return 0, errors.Wrap(err, "failed to claim pending queue items")
	}
	if len(items) == 0 {
		return 0, nil
	}

	// Claimed items are finished on their own clock: when the outer context
	// is cancelled, in-flight sends get the drain grace period instead of
	// being cut off mid-delivery.
	batchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		timer := time.NewTimer(p.cfg.Dispatch.DrainTimeout)
		defer timer.Stop()
		select {
		case <-batchCtx.Done():
		case <-timer.C:
			cancel()
		}
	})
	defer stop()

	group, groupCtx := errgroup.WithContext(batchCtx)
	group.SetLimit(p.cfg.Dispatch.Workers)
	for _, item := range items {
		group.Go(func() error {
			p.dispatchItem(groupCtx, item)

			return nil
		})
	}

	return len(items), group.Wait()
}

// dispatchItem drives one queue item to a terminal state.
func (p *dispatcherPool) dispatchItem(ctx context.Context, item *repository.DispatchItem) {
	started := time.Now()
	key := item.IdempotencyKey()

	// Already delivered by this process under a previous claim.
	if p.alreadySent(key) {
		p.finalize(ctx, item, item.AttemptCount, outcomeSkipped, started, nil)

		return
	}

	attempts := item.AttemptCount
	if attempts >= p.cfg.Dispatch.MaxAttempts {
		p.finalize(ctx, item, attempts, outcomeFailed, started, errors.New("delivery attempts exhausted"))

		return
	}

	summary := service.EventSummary{
		EntryID:   item.EntryID.String(),
		Title:     item.EntryTitle,
		Kind:      item.Kind,
		Latitude:  item.Latitude,
		Longitude: item.Longitude,
	}

	operation := func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		attempts++
		observability.DispatchAttempts.Inc()

		err := p.notifier.Send(ctx, item.Recipient, summary)
		if err == nil {
			return nil
		}
		if !service.IsRetryable(err) || attempts >= p.cfg.Dispatch.MaxAttempts {
			return backoff.Permanent(err)
		}

		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.cfg.Dispatch.InitialBackoff
	policy.MaxInterval = p.cfg.Dispatch.MaxBackoff

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		p.finalize(ctx, item, attempts, outcomeFailed, started, err)

		return
	}

	p.rememberSent(key)
	p.finalize(ctx, item, attempts, outcomeSent, started, nil)
}

func (p *dispatcherPool) alreadySent(key string) bool {
	_, ok := p.sentKeys.Load(key)

	return ok
}

// rememberSent records a delivered key. When the set reaches its cap it is
// reset wholesale; duplicates for forgotten keys resurface as at-least-once
// deliveries, which the contract already allows.
func (p *dispatcherPool) rememberSent(key string) {
	p.sentKeys.Store(key, struct{}{})
	if p.sentCount.Add(1) >= p.sentLimit {
		p.sentKeys.Clear()
		p.sentCount.Store(0)
	}
}

// finalize records the terminal queue state and the metrics for one item.
func (p *dispatcherPool) finalize(ctx context.Context, item *repository.DispatchItem, attempts int, outcome string, started time.Time, cause error) {
	var err error
	switch outcome {
	case outcomeFailed:
		err = p.queue.MarkFailed(ctx, item.ID, attempts, cause.Error())
		p.logger.Warn("Notification delivery failed",
			slog.Int64("itemID", item.ID),
			slog.String("recipient", item.Recipient),
			slog.Int("attempts", attempts),
			slog.Any("error", cause),
		)
	default:
		err = p.queue.MarkSent(ctx, item.ID, attempts)
	}
	if err != nil {
		// The item stays inflight and is released back to pending on the
		// next startup. A sent item released this way is caught by the
		// in-memory key set or, across restarts, delivered once more.
		p.logger.Error("Failed to finalize queue item",
			slog.Int64("itemID", item.ID),
			slog.Any("error", err),
		)

		return
	}

	observability.ObserveDispatch(outcome, time.Since(started))
}
