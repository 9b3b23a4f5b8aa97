package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/bookrental/pkg/types"
)

// SubscriptionLog records changes to user subscriptions.
// Use case: troubleshooting payment reconciliation.
type SubscriptionLog struct {
	ID             string                         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID         string                         `gorm:"column:user_id;type:varchar(64);index:idx_subscription_log_user,priority:1;not null"`
	SubscriptionID string                         `gorm:"column:subscription_id;type:uuid;index"`
	Reason         types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null"`
	// Before stores subscription data before the change in JSON format.
	Before datatypes.JSONType[*UserSubscription] `gorm:"column:before;type:jsonb;default:'null'"`
	// After stores subscription data after the change in JSON format.
	After datatypes.JSONType[*UserSubscription] `gorm:"column:after;type:jsonb;default:'null'"`
	// Extra stores additional context such as the operator or trigger source.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'"`
	CreatedAt time.Time
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
