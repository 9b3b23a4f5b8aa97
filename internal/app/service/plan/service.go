// Package plan is the rental plan catalog: priced, fixed-duration offers for
// single-book rentals and subscriptions.
package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/store"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/errs"
	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/tool"
	"github.com/fatflowers/bookrental/pkg/types"
)

type Repository interface {
	Create(ctx context.Context, plan *models.RentalPlan) error
	Update(ctx context.Context, plan *models.RentalPlan) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.RentalPlan, error)
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, onlyActive bool, planType types.PlanType) ([]*models.RentalPlan, error)
}

// Input carries the editable plan fields. PlanType defaults to single_book
// and IsActive to true.
type Input struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Price        int64          `json:"price"`
	DurationDays int            `json:"duration_days"`
	PlanType     types.PlanType `json:"plan_type"`
	IsActive     *bool          `json:"is_active"`
}

type Service struct {
	repo Repository
	log  *zap.SugaredLogger
}

func NewService(repo Repository, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, log: log}
}

func (in *Input) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return errs.Validation("plan name is required")
	}
	if in.Price <= 0 {
		return errs.Validation("price must be positive")
	}
	if in.DurationDays <= 0 {
		return errs.Validation("duration_days must be positive")
	}
	if in.PlanType == "" {
		in.PlanType = types.PlanTypeSingleBook
	}
	if !in.PlanType.Valid() {
		return errs.Validation("unknown plan type %q", in.PlanType)
	}
	return nil
}

func (s *Service) checkName(ctx context.Context, name, excludeID string) error {
	taken, err := s.repo.NameTaken(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return errs.Conflict("plan name %q already exists", name)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.RentalPlan, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, in.Name, ""); err != nil {
		return nil, err
	}
	p := &models.RentalPlan{
		ID:           tool.GenerateUUIDV7(),
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		DurationDays: in.DurationDays,
		PlanType:     in.PlanType,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.Conflict("plan name %q already exists", in.Name)
		}
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("plan_created", "plan_id", p.ID, "name", p.Name, "type", p.PlanType)
	return p, nil
}

// Update replaces the editable fields. Existing rentals and subscriptions
// keep the terms they were created with.
func (s *Service) Update(ctx context.Context, id string, in Input) (*models.RentalPlan, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, in.Name, id); err != nil {
		return nil, err
	}
	current.Name = in.Name
	current.Description = in.Description
	current.Price = in.Price
	current.DurationDays = in.DurationDays
	current.PlanType = in.PlanType
	if in.IsActive != nil {
		current.IsActive = *in.IsActive
	}
	if err := s.repo.Update(ctx, current); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, errs.Conflict("plan name %q already exists", in.Name)
		case errors.Is(err, store.ErrNotFound):
			return nil, errs.NotFound("plan %s not found", id)
		}
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("plan_updated", "plan_id", id)
	return current, nil
}

// Delete removes a plan even if rentals reference it; they carry copies of
// the plan terms.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.NotFound("plan %s not found", id)
		}
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("plan_deleted", "plan_id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.RentalPlan, error) {
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("plan %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, onlyActive bool) ([]*models.RentalPlan, error) {
	return s.repo.List(ctx, onlyActive, "")
}

func (s *Service) ListByType(ctx context.Context, planType types.PlanType, onlyActive bool) ([]*models.RentalPlan, error) {
	if !planType.Valid() {
		return nil, errs.Validation("unknown plan type %q", planType)
	}
	return s.repo.List(ctx, onlyActive, planType)
}

// GetUsable returns the plan if it can be used to start an entitlement of
// the given type.
func (s *Service) GetUsable(ctx context.Context, id string, planType types.PlanType) (*models.RentalPlan, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, errs.Validation("plan %q is not active", p.Name)
	}
	if p.PlanType != planType {
		return nil, errs.Validation("plan %q is a %s plan, expected %s", p.Name, p.PlanType, planType)
	}
	return p, nil
}
