package model

import (
	"time"

	"github.com/google/uuid"
)

// DispatchItemModel mirrors the 'dispatch_items' queue table. The composite
// unique index on (event_sequence, user_id) makes event re-processing after a
// crash insert-idempotent.
type DispatchItemModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	EventSequence int64     `gorm:"not null;uniqueIndex:uidx_dispatch_items_event_user"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uidx_dispatch_items_event_user"`
	Recipient     string    `gorm:"type:varchar(255);not null"`
	EntryID       uuid.UUID `gorm:"type:uuid;not null"`
	EntryTitle    string    `gorm:"type:varchar(255);not null"`
	Kind          string    `gorm:"type:varchar(32);not null"`
	Latitude      float64   `gorm:"type:double precision;not null"`
	Longitude     float64   `gorm:"type:double precision;not null"`
	AttemptCount  int       `gorm:"not null;default:0"`
	State         string    `gorm:"type:varchar(32);not null;default:'pending';index"`
	LastError     string    `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName explicitly sets the table name for GORM.
func (DispatchItemModel) TableName() string {
	return "dispatch_items"
}
