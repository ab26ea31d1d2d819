package impl

import (
	"context"
	"hash/fnv"
	"sync"

	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// ratingLockStripes bounds the lock table; entries hash onto a fixed set of
// mutexes instead of growing one mutex per entry for the process lifetime.
const ratingLockStripes = 64

type ratingService struct {
	txManager  repository.TransactionManager
	entryRepo  repository.EntryRepository
	ratingRepo repository.RatingRepository

	// Striped locks serialize rating writes per entry so the recomputed
	// aggregate never reflects a torn intermediate state.
	entryLocks [ratingLockStripes]sync.Mutex
}

// RatingServiceParams holds dependencies for RatingService, injected by Fx.
type RatingServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	EntryRepo  repository.EntryRepository
	RatingRepo repository.RatingRepository
}

// NewRatingService creates a new rating service instance
func NewRatingService(params RatingServiceParams) usecase.RatingUsecase {
	return &ratingService{
		txManager:  params.TxManager,
		entryRepo:  params.EntryRepo,
		ratingRepo: params.RatingRepo,
	}
}

// CreateRating validates and persists a rating, then recomputes the entry's
// aggregate before returning. The average is the exact mean over all stored
// ratings, computed in the database.
func (s *ratingService) CreateRating(ctx context.Context, entryID uuid.UUID, value int, comment string) (*entity.Rating, error) {
	if !entity.ValidRatingValue(value) {
		return nil, domainerrors.ErrInvalidRatingValue
	}

	entry, err := s.entryRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return nil, domainerrors.ErrEntryNotFound
		}

		return nil, err
	}
	if entry.Archived() {
		return nil, domainerrors.ErrEntryNotFound
	}

	lock := s.lockFor(entryID)
	lock.Lock()
	defer lock.Unlock()

	rating := &entity.Rating{
		EntryID: entryID,
		Value:   value,
		Comment: comment,
	}

	err = s.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		ratingRepo := factory.NewRatingRepository()
		if err := ratingRepo.CreateRating(ctx, rating); err != nil {
			return errors.Wrap(err, "failed to create rating")
		}

		avg, count, err := ratingRepo.AggregateForEntry(ctx, entryID)
		if err != nil {
			return err
		}

		return errors.Wrap(
			factory.NewEntryRepository().UpdateRatingAggregate(ctx, entryID, avg, count),
			"failed to update rating aggregate",
		)
	})
	if err != nil {
		return nil, err
	}

	return rating, nil
}

// GetRatings retrieves ratings by ID list.
func (s *ratingService) GetRatings(ctx context.Context, ids []uuid.UUID) ([]*entity.Rating, error) {
	return s.ratingRepo.FindRatingsByIDs(ctx, ids)
}

// GetRatingsForEntry retrieves all ratings of one entry.
func (s *ratingService) GetRatingsForEntry(ctx context.Context, entryID uuid.UUID) ([]*entity.Rating, error) {
	if _, err := s.entryRepo.FindEntryByID(ctx, entryID); err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return nil, domainerrors.ErrEntryNotFound
		}

		return nil, err
	}

	return s.ratingRepo.FindRatingsByEntry(ctx, entryID)
}

func (s *ratingService) lockFor(entryID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(entryID[:])

	return &s.entryLocks[h.Sum32()%ratingLockStripes]
}
