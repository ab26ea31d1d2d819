package model

import (
	"time"

	"github.com/google/uuid"
)

// ChangeEventModel mirrors the 'change_events' outbox table. The sequence is
// a bigserial so commit order defines the processing order.
type ChangeEventModel struct {
	Sequence  int64     `gorm:"primaryKey;autoIncrement"`
	EntryID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Kind      string    `gorm:"type:varchar(32);not null"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Latitude  float64   `gorm:"type:double precision;not null"`
	Longitude float64   `gorm:"type:double precision;not null"`
	Processed bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (ChangeEventModel) TableName() string {
	return "change_events"
}
