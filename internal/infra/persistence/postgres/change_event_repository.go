package postgres

import (
	"context"

	"geodex/internal/domain/entity"
	domainerrors "geodex/internal/domain/errors"
	"geodex/internal/domain/repository"
	"geodex/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// changeEventRepository implements the repository.ChangeEventRepository interface.
type changeEventRepository struct {
	db *gorm.DB
}

// NewChangeEventRepository is the constructor for changeEventRepository.
func NewChangeEventRepository(db *gorm.DB) repository.ChangeEventRepository {
	return &changeEventRepository{
		db: db,
	}
}

// AppendEvent inserts the event into the outbox. The database assigns the
// sequence, so commit order and sequence order coincide.
func (repo *changeEventRepository) AppendEvent(ctx context.Context, event *entity.ChangeEvent) error {
	eventM := fromChangeEventDomain(event)

	if err := repo.db.WithContext(ctx).Create(eventM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to append change event")
	}

	event.Sequence = eventM.Sequence
	event.CreatedAt = eventM.CreatedAt

	return nil
}

// FindUnprocessed retrieves unprocessed events in sequence order.
func (repo *changeEventRepository) FindUnprocessed(ctx context.Context, limit int) ([]*entity.ChangeEvent, error) {
	var eventModels []*model.ChangeEventModel

	if err := repo.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("sequence ASC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find unprocessed change events")
	}

	events := make([]*entity.ChangeEvent, 0, len(eventModels))
	for _, eventM := range eventModels {
		events = append(events, toChangeEventDomain(eventM))
	}

	return events, nil
}

// MarkProcessed flags an event as consumed by the matcher.
func (repo *changeEventRepository) MarkProcessed(ctx context.Context, sequence int64) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.ChangeEventModel{}).
		Where("sequence = ?", sequence).
		Update("processed", true).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to mark change event processed")
	}

	return nil
}

// toChangeEventDomain converts a GORM model to a domain entity.
func toChangeEventDomain(data *model.ChangeEventModel) *entity.ChangeEvent {
	return &entity.ChangeEvent{
		Sequence:  data.Sequence,
		EntryID:   data.EntryID,
		Kind:      entity.ChangeEventKind(data.Kind),
		Title:     data.Title,
		Latitude:  data.Latitude,
		Longitude: data.Longitude,
		CreatedAt: data.CreatedAt,
	}
}

// fromChangeEventDomain converts a domain entity to a GORM model.
func fromChangeEventDomain(data *entity.ChangeEvent) *model.ChangeEventModel {
	return &model.ChangeEventModel{
		EntryID:   data.EntryID,
		Kind:      string(data.Kind),
		Title:     data.Title,
		Latitude:  data.Latitude,
		Longitude: data.Longitude,
	}
}
