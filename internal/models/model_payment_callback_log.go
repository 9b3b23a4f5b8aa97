package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/bookrental/pkg/types"
)

// PaymentCallbackLog keeps every payment gateway callback, successful or not.
type PaymentCallbackLog struct {
	ID              string                      `gorm:"column:id;type:uuid;primary_key" json:"id"`
	TraceID         string                      `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	TransactionCode string                      `gorm:"column:transaction_code;type:varchar(32);index" json:"transaction_code"`
	Payload         string                      `gorm:"column:payload;type:text" json:"payload"`
	Result          datatypes.JSONMap           `gorm:"column:result;type:jsonb;default:'{}'" json:"result"`
	Status          types.PaymentCallbackStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	ReceivedAt      time.Time                   `gorm:"column:received_at;not null" json:"received_at"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (PaymentCallbackLog) TableName() string { return "payment_callback_log" }
