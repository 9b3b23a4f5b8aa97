package models

import (
	"time"

	"github.com/fatflowers/bookrental/pkg/types"
)

// BookRental is a time-boxed entitlement to one book. Rows are never deleted;
// at most one active rental exists per (user_id, book_id), backed by the
// partial unique index uniq_book_rental_active.
type BookRental struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;index:idx_book_rental_user_status,priority:1" json:"user_id"`
	BookID string `gorm:"column:book_id;type:varchar(64);not null;index" json:"book_id"`
	PlanID string `gorm:"column:plan_id;type:uuid;not null" json:"plan_id"`
	// Price and DurationDays are the plan terms at rent time.
	Price        int64              `gorm:"column:price;type:bigint;not null" json:"price"`
	DurationDays int                `gorm:"column:duration_days;not null" json:"duration_days"`
	StartAt      time.Time          `gorm:"column:start_at;not null" json:"start_at"`
	EndAt        time.Time          `gorm:"column:end_at;not null;index:idx_book_rental_status_end,priority:2" json:"end_at"`
	Status       types.RentalStatus `gorm:"column:status;type:varchar(32);not null;index:idx_book_rental_user_status,priority:2;index:idx_book_rental_status_end,priority:1" json:"status"`
	IsReturned   bool               `gorm:"column:is_returned;not null;default:false" json:"is_returned"`
	IsRenewed    bool               `gorm:"column:is_renewed;not null;default:false" json:"is_renewed"`
	History      []RentalHistory    `gorm:"foreignKey:RentalID" json:"history,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (BookRental) TableName() string {
	return "book_rental"
}

// ActiveAt reports whether the rental grants access at t.
func (r *BookRental) ActiveAt(t time.Time) bool {
	return r != nil && r.Status == types.RentalStatusActive && r.EndAt.After(t)
}

// RentalHistory is an append-only record of a rental state transition.
type RentalHistory struct {
	ID        string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	RentalID  string             `gorm:"column:rental_id;type:uuid;not null;index" json:"rental_id"`
	Action    types.RentalAction `gorm:"column:action;type:varchar(32);not null" json:"action"`
	Note      string             `gorm:"column:note;type:text" json:"note"`
	CreatedAt time.Time          `gorm:"column:created_at;not null" json:"created_at"`
}

func (RentalHistory) TableName() string {
	return "rental_history"
}
