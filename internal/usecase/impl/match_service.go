package impl

import (
	"context"
	"log/slog"

	"geodex/config"
	"geodex/internal/domain/entity"
	"geodex/internal/domain/repository"
	"geodex/internal/domain/service"
	"geodex/internal/infra/geo"
	"geodex/internal/infra/observability"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type matchService struct {
	txManager repository.TransactionManager
	eventRepo repository.ChangeEventRepository
	userRepo  repository.UserRepository
	index     *geo.BoxIndex
	publisher service.ChangeEventPublisher
	config    *config.Config
	logger    *slog.Logger
}

// MatchServiceParams holds dependencies for MatchService, injected by Fx.
type MatchServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	EventRepo repository.ChangeEventRepository
	UserRepo  repository.UserRepository
	Index     *geo.BoxIndex
	Publisher service.ChangeEventPublisher
	Config    *config.Config
	Logger    *slog.Logger
}

// NewMatchService creates a new match service instance
func NewMatchService(params MatchServiceParams) usecase.MatchUsecase {
	return &matchService{
		txManager: params.TxManager,
		eventRepo: params.EventRepo,
		userRepo:  params.UserRepo,
		index:     params.Index,
		publisher: params.Publisher,
		config:    params.Config,
		logger:    params.Logger,
	}
}

// ProcessPendingEvents drains one batch of unprocessed change events in
// sequence order. Events that fail stop the batch so ordering is preserved;
// the next run retries from the same event.
func (s *matchService) ProcessPendingEvents(ctx context.Context) (int, error) {
	events, err := s.eventRepo.FindUnprocessed(ctx, s.config.Dispatch.BatchSize)
	if err != nil {
		return 0, err
	}

	for i, event := range events {
		if err := s.processEvent(ctx, event); err != nil {
			return i, errors.Wrapf(err, "failed to process change event %d", event.Sequence)
		}
	}

	return len(events), nil
}

// processEvent matches one event against the index snapshot, enqueues one
// dispatch item per matched user, and marks the event processed. Enqueue and
// mark run in one transaction; a crash in between re-processes the event, and
// the queue's unique key keeps that idempotent.
func (s *matchService) processEvent(ctx context.Context, event *entity.ChangeEvent) error {
	userIDs := s.MatchPoint(event.Latitude, event.Longitude)

	items := make([]*repository.DispatchItem, 0, len(userIDs))
	for _, userID := range userIDs {
		user, err := s.userRepo.FindUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				// Subscriber vanished between indexing and matching.
				continue
			}

			return err
		}

		items = append(items, &repository.DispatchItem{
			EventSequence: event.Sequence,
			UserID:        userID,
			Recipient:     user.Email,
			EntryID:       event.EntryID,
			EntryTitle:    event.Title,
			Kind:          string(event.Kind),
			Latitude:      event.Latitude,
			Longitude:     event.Longitude,
		})
	}

	err := s.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		if err := factory.NewDispatchQueueRepository().EnqueueItems(ctx, items); err != nil {
			return err
		}

		return factory.NewChangeEventRepository().MarkProcessed(ctx, event.Sequence)
	})
	if err != nil {
		return err
	}

	observability.EventsProcessed.WithLabelValues(string(event.Kind)).Inc()
	observability.MatchedSubscribers.Add(float64(len(items)))

	s.logger.Debug("change event matched",
		slog.Int64("sequence", event.Sequence),
		slog.String("entry_id", event.EntryID.String()),
		slog.Int("matched_users", len(items)),
	)

	// Mirroring to the broker is best-effort; the dispatch queue already
	// holds everything the pipeline needs.
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to mirror change event",
			slog.Int64("sequence", event.Sequence),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// MatchPoint returns the distinct users whose confirmed boxes contain the
// point. Users with several overlapping boxes appear once.
func (s *matchService) MatchPoint(lat, lng float64) []uuid.UUID {
	candidates := s.index.Query(lat, lng)
	if len(candidates) == 0 {
		return nil
	}

	seen := make(map[uuid.UUID]struct{}, len(candidates))
	users := make([]uuid.UUID, 0, len(candidates))
	for _, candidate := range candidates {
		if _, dup := seen[candidate.UserID]; dup {
			continue
		}
		seen[candidate.UserID] = struct{}{}
		users = append(users, candidate.UserID)
	}

	return users
}
