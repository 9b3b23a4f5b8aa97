package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/types"
)

type PlanStore struct {
	db *gorm.DB
}

func NewPlanStore(db *gorm.DB) *PlanStore { return &PlanStore{db: db} }

func (s *PlanStore) Create(ctx context.Context, plan *models.RentalPlan) error {
	if err := s.db.WithContext(ctx).Create(plan).Error; err != nil {
		return fmt.Errorf("failed to create plan: %w", translate(err))
	}
	return nil
}

func (s *PlanStore) Update(ctx context.Context, plan *models.RentalPlan) error {
	res := s.db.WithContext(ctx).Model(&models.RentalPlan{}).Where("id = ?", plan.ID).
		Select("name", "description", "price", "duration_days", "plan_type", "is_active", "updated_at").
		Updates(plan)
	if res.Error != nil {
		return fmt.Errorf("failed to update plan: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PlanStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RentalPlan{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PlanStore) Get(ctx context.Context, id string) (*models.RentalPlan, error) {
	var plan models.RentalPlan
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, translate(err)
	}
	return &plan, nil
}

// NameTaken reports whether another plan than excludeID uses name.
func (s *PlanStore) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.RentalPlan{}).Where("name = ?", name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check plan name: %w", err)
	}
	return count > 0, nil
}

// List returns plans ordered by price; planType "" matches every type.
func (s *PlanStore) List(ctx context.Context, onlyActive bool, planType types.PlanType) ([]*models.RentalPlan, error) {
	q := s.db.WithContext(ctx).Model(&models.RentalPlan{})
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	if planType != "" {
		q = q.Where("plan_type = ?", planType)
	}
	var plans []*models.RentalPlan
	if err := q.Order("price ASC, name ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}
