package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BboxSubscriptionModel mirrors the 'bbox_subscriptions' table. The composite
// unique index makes re-subscribing to the same box idempotent at the
// database level. Soft-deleted rows keep their index slot; re-subscribing
// restores the row instead of inserting a new one.
type BboxSubscriptionModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uidx_bbox_subscriptions_user_box"`
	SouthWestLat float64   `gorm:"type:double precision;not null;uniqueIndex:uidx_bbox_subscriptions_user_box"`
	SouthWestLng float64   `gorm:"type:double precision;not null;uniqueIndex:uidx_bbox_subscriptions_user_box"`
	NorthEastLat float64   `gorm:"type:double precision;not null;uniqueIndex:uidx_bbox_subscriptions_user_box"`
	NorthEastLng float64   `gorm:"type:double precision;not null;uniqueIndex:uidx_bbox_subscriptions_user_box"`
	State        string    `gorm:"type:varchar(32);not null;default:'pending';index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName explicitly sets the table name for GORM.
func (BboxSubscriptionModel) TableName() string {
	return "bbox_subscriptions"
}
