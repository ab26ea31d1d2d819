package impl

import (
	"context"
	"log/slog"
	"time"

	"geodex/config"
	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/infra/geo"
	"geodex/internal/infra/observability"
	"geodex/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type confirmationService struct {
	tokenRepo        repository.TokenRepository
	subscriptionRepo repository.SubscriptionRepository
	userRepo         repository.UserRepository
	index            *geo.BoxIndex
	config           *config.Config
	logger           *slog.Logger
}

// ConfirmationServiceParams holds dependencies for ConfirmationService, injected by Fx.
type ConfirmationServiceParams struct {
	fx.In

	TokenRepo        repository.TokenRepository
	SubscriptionRepo repository.SubscriptionRepository
	UserRepo         repository.UserRepository
	Index            *geo.BoxIndex
	Config           *config.Config
	Logger           *slog.Logger
}

// NewConfirmationService creates a new confirmation service instance
func NewConfirmationService(params ConfirmationServiceParams) usecase.ConfirmationUsecase {
	return &confirmationService{
		tokenRepo:        params.TokenRepo,
		subscriptionRepo: params.SubscriptionRepo,
		userRepo:         params.UserRepo,
		index:            params.Index,
		config:           params.Config,
		logger:           params.Logger,
	}
}

// ConfirmSubscription redeems a subscription confirmation token and activates
// the subscription in the spatial index.
func (s *confirmationService) ConfirmSubscription(ctx context.Context, tokenValue string) (*entity.BboxSubscription, error) {
	token, err := s.redeemToken(ctx, tokenValue, entity.TokenSubjectSubscription)
	if err != nil {
		return nil, err
	}

	subscription, err := s.subscriptionRepo.FindSubscriptionByID(ctx, token.OwnerID)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			// The subscription was removed after the mail went out.
			return nil, domainerrors.ErrSubscriptionNotFound
		}

		return nil, err
	}

	if subscription.State != entity.SubscriptionConfirmed {
		if err := s.subscriptionRepo.UpdateSubscriptionState(ctx, subscription.ID, entity.SubscriptionConfirmed); err != nil {
			return nil, err
		}
		subscription.State = entity.SubscriptionConfirmed
	}

	s.index.Insert(subscription.ID, subscription.UserID, subscription.Bbox)
	observability.IndexSize.Set(float64(s.index.Size()))

	s.logger.Info("bbox subscription confirmed",
		slog.String("subscription_id", subscription.ID.String()),
		slog.String("user_id", subscription.UserID.String()),
	)

	return subscription, nil
}

// ConfirmEmail redeems an email confirmation token and marks the owner's
// address as confirmed.
func (s *confirmationService) ConfirmEmail(ctx context.Context, tokenValue string) (*entity.User, error) {
	token, err := s.redeemToken(ctx, tokenValue, entity.TokenSubjectEmail)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.MarkEmailConfirmed(ctx, token.OwnerID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserNotFound
		}

		return nil, err
	}

	user, err := s.userRepo.FindUserByID(ctx, token.OwnerID)
	if err != nil {
		return nil, err
	}

	// Without a separate subscription token the confirmed address is all the
	// proof needed, so the user's pending subscriptions go live now.
	if !s.config.Subscription.RequireSubscriptionConfirmation {
		if err := s.promotePendingSubscriptions(ctx, user); err != nil {
			return nil, err
		}
	}

	s.logger.Info("email address confirmed",
		slog.String("user_id", user.ID.String()),
	)

	return user, nil
}

func (s *confirmationService) promotePendingSubscriptions(ctx context.Context, user *entity.User) error {
	pending, err := s.subscriptionRepo.FindPendingSubscriptionsByUser(ctx, user.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load pending subscriptions")
	}

	for _, subscription := range pending {
		if err := s.subscriptionRepo.UpdateSubscriptionState(ctx, subscription.ID, entity.SubscriptionConfirmed); err != nil {
			return err
		}
		s.index.Insert(subscription.ID, subscription.UserID, subscription.Bbox)
	}

	if len(pending) > 0 {
		observability.IndexSize.Set(float64(s.index.Size()))
	}

	return nil
}

// redeemToken walks the token state machine. Only a pending, unexpired token
// of the expected subject redeems; everything else maps to a terminal error.
// Expiry is applied lazily at redemption time.
func (s *confirmationService) redeemToken(ctx context.Context, tokenValue string, subject entity.TokenSubject) (*entity.ConfirmationToken, error) {
	token, err := s.tokenRepo.FindTokenByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, domainerrors.ErrTokenInvalid
		}

		return nil, err
	}

	if token.Subject != subject {
		return nil, domainerrors.ErrTokenInvalid
	}

	switch token.State {
	case entity.TokenConfirmed:
		return nil, domainerrors.ErrTokenAlreadyUsed
	case entity.TokenExpired:
		return nil, domainerrors.ErrTokenExpired
	case entity.TokenRevoked:
		return nil, domainerrors.ErrTokenRevoked
	}

	if time.Now().After(token.ExpiresAt) {
		if err := s.tokenRepo.UpdateTokenState(ctx, token.ID, entity.TokenPending, entity.TokenExpired); err != nil {
			if errors.Is(err, repository.ErrTokenStateConflict) {
				return nil, s.redeemRaceError(ctx, tokenValue)
			}

			return nil, err
		}

		return nil, domainerrors.ErrTokenExpired
	}

	// Guarded pending -> confirmed transition. When two redemptions race,
	// exactly one passes; the loser re-reads and reports the terminal state.
	if err := s.tokenRepo.UpdateTokenState(ctx, token.ID, entity.TokenPending, entity.TokenConfirmed); err != nil {
		if errors.Is(err, repository.ErrTokenStateConflict) {
			return nil, s.redeemRaceError(ctx, tokenValue)
		}

		return nil, err
	}
	token.State = entity.TokenConfirmed

	return token, nil
}

// redeemRaceError maps the token's state after a lost transition race to the
// matching redemption error.
func (s *confirmationService) redeemRaceError(ctx context.Context, tokenValue string) error {
	token, err := s.tokenRepo.FindTokenByValue(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return domainerrors.ErrTokenInvalid
		}

		return err
	}

	switch token.State {
	case entity.TokenConfirmed:
		return domainerrors.ErrTokenAlreadyUsed
	case entity.TokenExpired:
		return domainerrors.ErrTokenExpired
	case entity.TokenRevoked:
		return domainerrors.ErrTokenRevoked
	}

	return domainerrors.ErrTokenInvalid
}
