package models

import (
	"time"

	"github.com/fatflowers/bookrental/pkg/types"
)

// RentalPlan is a priced, fixed-duration offer. Price and duration are
// copied into rentals and subscriptions when they are created.
type RentalPlan struct {
	ID          string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Name        string `gorm:"column:name;type:varchar(128);not null;uniqueIndex" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`
	// Price in minor currency units.
	Price        int64          `gorm:"column:price;type:bigint;not null" json:"price"`
	DurationDays int            `gorm:"column:duration_days;not null" json:"duration_days"`
	PlanType     types.PlanType `gorm:"column:plan_type;type:varchar(32);not null;index" json:"plan_type"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (RentalPlan) TableName() string {
	return "rental_plan"
}

// Duration returns the plan length as a time.Duration.
func (p *RentalPlan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}
