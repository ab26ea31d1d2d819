package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. Identity is owned by the upstream auth
// layer; this table only keeps what notification delivery needs.
type UserModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	Email          string    `gorm:"type:varchar(255);unique;not null"`
	EmailConfirmed bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
