package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"geodex/config"
	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/domain/service"
	"geodex/internal/infra/geo"
	"geodex/internal/infra/observability"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Confirmation mail subjects.
const (
	subjectConfirmSubscription = "Please confirm your map area subscription"
	subjectConfirmEmail        = "Please confirm your email address"
)

type subscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	tokenRepo        repository.TokenRepository
	userRepo         repository.UserRepository
	notifier         service.Notifier
	index            *geo.BoxIndex
	config           *config.Config
	logger           *slog.Logger
}

// SubscriptionServiceParams holds dependencies for SubscriptionService, injected by Fx.
type SubscriptionServiceParams struct {
	fx.In

	SubscriptionRepo repository.SubscriptionRepository
	TokenRepo        repository.TokenRepository
	UserRepo         repository.UserRepository
	Notifier         service.Notifier
	Index            *geo.BoxIndex
	Config           *config.Config
	Logger           *slog.Logger
}

// NewSubscriptionService creates a new subscription service instance
func NewSubscriptionService(params SubscriptionServiceParams) usecase.SubscriptionUsecase {
	return &subscriptionService{
		subscriptionRepo: params.SubscriptionRepo,
		tokenRepo:        params.TokenRepo,
		userRepo:         params.UserRepo,
		notifier:         params.Notifier,
		index:            params.Index,
		config:           params.Config,
		logger:           params.Logger,
	}
}

// Subscribe creates a subscription for the user's bbox, or returns the
// existing one for the same box.
func (s *subscriptionService) Subscribe(ctx context.Context, userID uuid.UUID, email string, bbox entity.BoundingBox) (*entity.BboxSubscription, error) {
	if !bbox.Valid() {
		return nil, domainerrors.ErrInvalidBbox
	}

	user, err := s.userRepo.EnsureUser(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	existing, err := s.subscriptionRepo.FindSubscriptionByUserAndBbox(ctx, userID, bbox)
	if err != nil && !errors.Is(err, repository.ErrSubscriptionNotFound) {
		return nil, errors.Wrap(err, "failed to find subscription by user and bbox")
	}
	if existing != nil {
		return s.reviveSubscription(ctx, user, existing)
	}

	requireToken := s.config.Subscription.RequireSubscriptionConfirmation
	state := entity.SubscriptionPending
	if !requireToken && user.EmailConfirmed {
		state = entity.SubscriptionConfirmed
	}

	subscription := &entity.BboxSubscription{
		UserID: userID,
		Bbox:   bbox,
		State:  state,
	}

	if err := s.subscriptionRepo.CreateSubscription(ctx, subscription); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubscription) {
			// The unique index slot is taken, either by a racing identical
			// subscribe or by a soft-deleted row from an earlier unsubscribe.
			existing, findErr := s.subscriptionRepo.FindSubscriptionByUserAndBbox(ctx, userID, bbox)
			if findErr != nil {
				return nil, findErr
			}

			return s.reviveSubscription(ctx, user, existing)
		}

		return nil, err
	}

	switch {
	case requireToken:
		if err := s.issueSubscriptionToken(ctx, user, subscription); err != nil {
			return nil, err
		}
	case state == entity.SubscriptionConfirmed:
		s.index.Insert(subscription.ID, subscription.UserID, subscription.Bbox)
		observability.IndexSize.Set(float64(s.index.Size()))
	default:
		// No subscription token required, but the address itself is still
		// unproven. The subscription waits for the email confirmation.
		if err := s.issueEmailToken(ctx, user); err != nil {
			return nil, err
		}
	}

	s.logger.Info("bbox subscription created",
		slog.String("subscription_id", subscription.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("state", string(subscription.State)),
	)

	return subscription, nil
}

// reviveSubscription handles re-subscribing to an already known box.
// Pending and confirmed subscriptions are returned as-is; a revoked or
// soft-deleted one is restored and sent back through confirmation.
func (s *subscriptionService) reviveSubscription(ctx context.Context, user *entity.User, subscription *entity.BboxSubscription) (*entity.BboxSubscription, error) {
	if !subscription.Deleted() && subscription.State != entity.SubscriptionRevoked {
		return subscription, nil
	}

	requireToken := s.config.Subscription.RequireSubscriptionConfirmation
	state := entity.SubscriptionPending
	if !requireToken && user.EmailConfirmed {
		state = entity.SubscriptionConfirmed
	}

	if err := s.subscriptionRepo.RestoreSubscription(ctx, subscription.ID, state); err != nil {
		return nil, err
	}
	subscription.State = state
	subscription.DeletedAt = nil

	switch {
	case requireToken:
		if err := s.issueSubscriptionToken(ctx, user, subscription); err != nil {
			return nil, err
		}
	case state == entity.SubscriptionConfirmed:
		s.index.Insert(subscription.ID, subscription.UserID, subscription.Bbox)
		observability.IndexSize.Set(float64(s.index.Size()))
	default:
		if err := s.issueEmailToken(ctx, user); err != nil {
			return nil, err
		}
	}

	return subscription, nil
}

// UnsubscribeAll removes every subscription of the user. Outstanding
// confirmation tokens are revoked so stale links cannot resurrect boxes.
func (s *subscriptionService) UnsubscribeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	removed, err := s.subscriptionRepo.DeleteSubscriptionsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, 0, len(removed))
	for _, subscription := range removed {
		ids = append(ids, subscription.ID)
		if err := s.tokenRepo.RevokeTokensForOwner(ctx, subscription.ID); err != nil {
			return 0, errors.Wrap(err, "failed to revoke subscription tokens")
		}
	}

	s.index.RemoveAll(ids)
	observability.IndexSize.Set(float64(s.index.Size()))

	s.logger.Info("bbox subscriptions removed",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(removed)),
	)

	return len(removed), nil
}

// ListSubscriptions retrieves all subscriptions of the user.
func (s *subscriptionService) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error) {
	return s.subscriptionRepo.FindSubscriptionsByUser(ctx, userID)
}

// RequestEmailConfirmation issues an email confirmation token and sends the
// confirmation mail.
func (s *subscriptionService) RequestEmailConfirmation(ctx context.Context, userID uuid.UUID, email string) error {
	user, err := s.userRepo.EnsureUser(ctx, userID, email)
	if err != nil {
		return err
	}

	return s.issueEmailToken(ctx, user)
}

// WarmIndex loads all confirmed subscriptions into the spatial index.
func (s *subscriptionService) WarmIndex(ctx context.Context) error {
	confirmed, err := s.subscriptionRepo.FindConfirmedSubscriptions(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load confirmed subscriptions")
	}

	s.index.Replace(confirmed)
	observability.IndexSize.Set(float64(s.index.Size()))

	s.logger.Info("spatial index warmed",
		slog.Int("subscriptions", len(confirmed)),
	)

	return nil
}

func (s *subscriptionService) issueSubscriptionToken(ctx context.Context, user *entity.User, subscription *entity.BboxSubscription) error {
	token := &entity.ConfirmationToken{
		Token:     entity.NewTokenValue(),
		Subject:   entity.TokenSubjectSubscription,
		OwnerID:   subscription.ID,
		State:     entity.TokenPending,
		ExpiresAt: time.Now().Add(s.config.Subscription.TokenTTL),
	}
	if err := s.tokenRepo.CreateToken(ctx, token); err != nil {
		return err
	}

	confirmURL := s.confirmURL("confirm-bbox-subscription", token.Token)

	return s.notifier.SendConfirmation(ctx, user.Email, subjectConfirmSubscription, confirmURL)
}

func (s *subscriptionService) issueEmailToken(ctx context.Context, user *entity.User) error {
	token := &entity.ConfirmationToken{
		Token:     entity.NewTokenValue(),
		Subject:   entity.TokenSubjectEmail,
		OwnerID:   user.ID,
		State:     entity.TokenPending,
		ExpiresAt: time.Now().Add(s.config.Subscription.TokenTTL),
	}
	if err := s.tokenRepo.CreateToken(ctx, token); err != nil {
		return err
	}

	confirmURL := s.confirmURL("confirm-email-address", token.Token)

	return s.notifier.SendConfirmation(ctx, user.Email, subjectConfirmEmail, confirmURL)
}

func (s *subscriptionService) confirmURL(path, token string) string {
	base := strings.TrimRight(s.config.Notifier.BaseURL, "/")

	return fmt.Sprintf("%s/%s?token=%s", base, path, token)
}
