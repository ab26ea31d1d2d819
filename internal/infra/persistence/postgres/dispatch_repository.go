package postgres

import (
	"context"
	"time"

	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dispatchQueueRepository implements the repository.DispatchQueueRepository interface.
type dispatchQueueRepository struct {
	db *gorm.DB
}

// NewDispatchQueueRepository is the constructor for dispatchQueueRepository.
func NewDispatchQueueRepository(db *gorm.DB) repository.DispatchQueueRepository {
	return &dispatchQueueRepository{
		db: db,
	}
}

// EnqueueItems inserts pending items. Conflicts on (event_sequence, user_id)
// are skipped so event re-processing stays idempotent.
func (repo *dispatchQueueRepository) EnqueueItems(ctx context.Context, items []*repository.DispatchItem) error {
	if len(items) == 0 {
		return nil
	}

	itemModels := make([]*model.DispatchItemModel, 0, len(items))
	for _, item := range items {
		itemModels = append(itemModels, fromDispatchItemDomain(item))
	}

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_sequence"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&itemModels).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to enqueue dispatch items")
	}

	return nil
}

// ClaimPending atomically claims up to limit pending items. SKIP LOCKED keeps
// concurrent claimers from ever receiving the same item.
func (repo *dispatchQueueRepository) ClaimPending(ctx context.Context, limit int) ([]*repository.DispatchItem, error) {
	var itemModels []*model.DispatchItemModel

	if err := repo.db.WithContext(ctx).Raw(`
		UPDATE dispatch_items
		SET state = ?, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM dispatch_items
			WHERE state = ?
			ORDER BY id
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		string(repository.DispatchInflight),
		string(repository.DispatchPending),
		limit,
	).Scan(&itemModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to claim pending dispatch items")
	}

	items := make([]*repository.DispatchItem, 0, len(itemModels))
	for _, itemM := range itemModels {
		items = append(items, toDispatchItemDomain(itemM))
	}

	return items, nil
}

// MarkSent finalizes an item after a confirmed delivery.
func (repo *dispatchQueueRepository) MarkSent(ctx context.Context, id int64, attempts int) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.DispatchItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":         string(repository.DispatchSent),
			"attempt_count": attempts,
			"last_error":    "",
		}).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to mark dispatch item sent")
	}

	return nil
}

// MarkFailed finalizes an item after a permanent failure or exhausted retries.
func (repo *dispatchQueueRepository) MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.DispatchItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":         string(repository.DispatchFailed),
			"attempt_count": attempts,
			"last_error":    lastError,
		}).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to mark dispatch item failed")
	}

	return nil
}

// ReleaseInflight moves stale inflight items back to pending so a restarted
// worker picks up deliveries abandoned by a crash.
func (repo *dispatchQueueRepository) ReleaseInflight(ctx context.Context, olderThan time.Duration) (int64, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.DispatchItemModel{}).
		Where("state = ? AND updated_at < ?", string(repository.DispatchInflight), time.Now().Add(-olderThan)).
		Update("state", string(repository.DispatchPending))
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to release inflight dispatch items")
	}

	return result.RowsAffected, nil
}

// toDispatchItemDomain converts a GORM model to a queue item.
func toDispatchItemDomain(data *model.DispatchItemModel) *repository.DispatchItem {
	return &repository.DispatchItem{
		ID:            data.ID,
		EventSequence: data.EventSequence,
		UserID:        data.UserID,
		Recipient:     data.Recipient,
		EntryID:       data.EntryID,
		EntryTitle:    data.EntryTitle,
		Kind:          data.Kind,
		Latitude:      data.Latitude,
		Longitude:     data.Longitude,
		AttemptCount:  data.AttemptCount,
		State:         repository.DispatchState(data.State),
		LastError:     data.LastError,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}
}

// fromDispatchItemDomain converts a queue item to a GORM model.
func fromDispatchItemDomain(data *repository.DispatchItem) *model.DispatchItemModel {
	return &model.DispatchItemModel{
		EventSequence: data.EventSequence,
		UserID:        data.UserID,
		Recipient:     data.Recipient,
		EntryID:       data.EntryID,
		EntryTitle:    data.EntryTitle,
		Kind:          data.Kind,
		Latitude:      data.Latitude,
		Longitude:     data.Longitude,
		AttemptCount:  data.AttemptCount,
		State:         string(repository.DispatchPending),
	}
}
