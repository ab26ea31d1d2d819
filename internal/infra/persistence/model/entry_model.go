package model

import (
	"time"

	"github.com/google/uuid"
)

// EntryModel mirrors the 'entries' table. PostgreSQL generates UUIDs via uuid_generate_v7().
type EntryModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Latitude    float64   `gorm:"type:double precision;not null;index:idx_entries_coords"`
	Longitude   float64   `gorm:"type:double precision;not null;index:idx_entries_coords"`
	Categories  []string  `gorm:"type:jsonb;serializer:json"`
	Street      string    `gorm:"type:varchar(255)"`
	Zip         string    `gorm:"type:varchar(32)"`
	City        string    `gorm:"type:varchar(128)"`
	Country     string    `gorm:"type:varchar(128)"`
	Email       string    `gorm:"type:varchar(255)"`
	Telephone   string    `gorm:"type:varchar(64)"`
	Homepage    string    `gorm:"type:varchar(512)"`
	Version     int64     `gorm:"not null;default:1"`
	AvgRating   float64   `gorm:"type:double precision;not null;default:0"`
	RatingCount int64     `gorm:"not null;default:0"`
	ArchivedAt  *time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (EntryModel) TableName() string {
	return "entries"
}
