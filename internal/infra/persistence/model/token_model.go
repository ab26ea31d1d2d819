package model

import (
	"time"

	"github.com/google/uuid"
)

// ConfirmationTokenModel mirrors the 'confirmation_tokens' table.
type ConfirmationTokenModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Token      string    `gorm:"type:varchar(128);unique;not null"`
	Subject    string    `gorm:"type:varchar(64);not null"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index"`
	State      string    `gorm:"type:varchar(32);not null;default:'pending'"`
	ExpiresAt  time.Time `gorm:"not null"`
	RedeemedAt *time.Time
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (ConfirmationTokenModel) TableName() string {
	return "confirmation_tokens"
}
