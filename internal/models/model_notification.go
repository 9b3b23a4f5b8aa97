package models

import (
	"time"

	"github.com/fatflowers/bookrental/pkg/types"
)

// Notification is a user inbox entry.
type Notification struct {
	ID        string                 `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string                 `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Title     string                 `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Message   string                 `gorm:"column:message;type:text;not null" json:"message"`
	Type      types.NotificationType `gorm:"column:type;type:varchar(32);not null" json:"type"`
	Link      string                 `gorm:"column:link;type:varchar(512)" json:"link"`
	IsRead    bool                   `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
