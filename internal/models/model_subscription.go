package models

import (
	"time"

	"github.com/fatflowers/bookrental/pkg/types"
)

// UserSubscription grants access to every book until EndAt. At most one
// active subscription exists per user (uniq_user_subscription_active).
type UserSubscription struct {
	ID           string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID       string                   `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_subscription_user_status,priority:1" json:"user_id"`
	PlanID       string                   `gorm:"column:plan_id;type:uuid;not null" json:"plan_id"`
	Price        int64                    `gorm:"column:price;type:bigint;not null" json:"price"`
	DurationDays int                      `gorm:"column:duration_days;not null" json:"duration_days"`
	StartAt      time.Time                `gorm:"column:start_at;not null" json:"start_at"`
	EndAt        time.Time                `gorm:"column:end_at;not null;index" json:"end_at"`
	Status       types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index:idx_user_subscription_user_status,priority:2" json:"status"`
	IsPaid       bool                     `gorm:"column:is_paid;not null;default:false" json:"is_paid"`
	// PaymentMethod is "Online" for gateway payments; anything else is settled offline.
	PaymentMethod   types.PaymentMethod `gorm:"column:payment_method;type:varchar(32);not null" json:"payment_method"`
	TransactionCode string              `gorm:"column:transaction_code;type:varchar(32);not null;uniqueIndex" json:"transaction_code"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (UserSubscription) TableName() string {
	return "user_subscription"
}

// ActiveAt reports whether the subscription grants access at t. Payment
// state is not consulted.
func (s *UserSubscription) ActiveAt(t time.Time) bool {
	return s != nil && s.Status == types.SubscriptionStatusActive && s.EndAt.After(t)
}
