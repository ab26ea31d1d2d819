package postgres

import (
	"context"
	"time"

	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// tokenRepository implements the repository.TokenRepository interface.
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository is the constructor for tokenRepository.
func NewTokenRepository(db *gorm.DB) repository.TokenRepository {
	return &tokenRepository{
		db: db,
	}
}

// CreateToken persists a freshly issued token.
func (repo *tokenRepository) CreateToken(ctx context.Context, token *entity.ConfirmationToken) error {
	tokenM := fromTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create confirmation token")
	}

	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindTokenByValue retrieves a token by its opaque value.
func (repo *tokenRepository) FindTokenByValue(ctx context.Context, value string) (*entity.ConfirmationToken, error) {
	var tokenM model.ConfirmationTokenModel

	if err := repo.db.WithContext(ctx).
		Where("token = ?", value).
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to find token by value")
	}

	return toTokenDomain(&tokenM), nil
}

// UpdateTokenState transitions the token state machine. The state guard in
// the WHERE clause makes redemption a compare-and-set: of two concurrent
// redemptions only one row update succeeds. The redemption timestamp is
// recorded when the token is confirmed.
func (repo *tokenRepository) UpdateTokenState(ctx context.Context, id uuid.UUID, from, to entity.TokenState) error {
	updates := map[string]any{"state": string(to)}
	if to == entity.TokenConfirmed {
		updates["redeemed_at"] = time.Now()
	}

	result := repo.db.WithContext(ctx).
		Model(&model.ConfirmationTokenModel{}).
		Where("id = ? AND state = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update token state")
	}
	if result.RowsAffected == 0 {
		return repository.ErrTokenStateConflict
	}

	return nil
}

// RevokeTokensForOwner revokes all pending tokens of one owner.
func (repo *tokenRepository) RevokeTokensForOwner(ctx context.Context, ownerID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.ConfirmationTokenModel{}).
		Where("owner_id = ? AND state = ?", ownerID, string(entity.TokenPending)).
		Update("state", string(entity.TokenRevoked)).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to revoke tokens for owner")
	}

	return nil
}

// toTokenDomain converts a GORM model to a domain entity.
func toTokenDomain(data *model.ConfirmationTokenModel) *entity.ConfirmationToken {
	return &entity.ConfirmationToken{
		ID:         data.ID,
		Token:      data.Token,
		Subject:    entity.TokenSubject(data.Subject),
		OwnerID:    data.OwnerID,
		State:      entity.TokenState(data.State),
		ExpiresAt:  data.ExpiresAt,
		RedeemedAt: data.RedeemedAt,
		CreatedAt:  data.CreatedAt,
	}
}

// fromTokenDomain converts a domain entity to a GORM model.
func fromTokenDomain(data *entity.ConfirmationToken) *model.ConfirmationTokenModel {
	return &model.ConfirmationTokenModel{
		ID:         data.ID,
		Token:      data.Token,
		Subject:    string(data.Subject),
		OwnerID:    data.OwnerID,
		State:      string(data.State),
		ExpiresAt:  data.ExpiresAt,
		RedeemedAt: data.RedeemedAt,
	}
}
