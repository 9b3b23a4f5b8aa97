package plan

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/store"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/errs"
	"github.com/fatflowers/bookrental/pkg/types"
)

type memRepo struct {
	mu    sync.Mutex
	plans map[string]*models.RentalPlan
}

func newMemRepo() *memRepo { return &memRepo{plans: map[string]*models.RentalPlan{}} }

func (m *memRepo) Create(_ context.Context, p *models.RentalPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.plans {
		if existing.Name == p.Name {
			return store.ErrDuplicate
		}
	}
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *memRepo) Update(_ context.Context, p *models.RentalPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.plans, id)
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*models.RentalPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) NameTaken(_ context.Context, name, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.plans {
		if p.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) List(_ context.Context, onlyActive bool, planType types.PlanType) ([]*models.RentalPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := lo.Filter(lo.Values(m.plans), func(p *models.RentalPlan, _ int) bool {
		return (!onlyActive || p.IsActive) && (planType == "" || p.PlanType == planType)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func newTestService() *Service {
	return NewService(newMemRepo(), zap.NewNop().Sugar())
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService()
	cases := []struct {
		name string
		in   Input
	}{
		{"blank name", Input{Name: "  ", Price: 100, DurationDays: 7}},
		{"zero price", Input{Name: "Weekly", Price: 0, DurationDays: 7}},
		{"negative duration", Input{Name: "Weekly", Price: 100, DurationDays: -1}},
		{"unknown type", Input{Name: "Weekly", Price: 100, DurationDays: 7, PlanType: "lifetime"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err), err)
		})
	}
}

func TestCreate_DefaultsAndConflict(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, Input{Name: " Weekly ", Price: 199, DurationDays: 7})
	require.NoError(t, err)
	assert.Equal(t, "Weekly", p.Name)
	assert.Equal(t, types.PlanTypeSingleBook, p.PlanType)
	assert.True(t, p.IsActive)

	_, err = svc.Create(ctx, Input{Name: "Weekly", Price: 299, DurationDays: 14})
	assert.True(t, errs.IsConflict(err))
}

func TestUpdate_NameUniquenessExcludesSelf(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	weekly, err := svc.Create(ctx, Input{Name: "Weekly", Price: 199, DurationDays: 7})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "Monthly", Price: 599, DurationDays: 30})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, weekly.ID, Input{Name: "Weekly", Price: 249, DurationDays: 7, IsActive: &inactive})
	require.NoError(t, err)
	assert.EqualValues(t, 249, updated.Price)
	assert.False(t, updated.IsActive)

	_, err = svc.Update(ctx, weekly.ID, Input{Name: "Monthly", Price: 249, DurationDays: 7})
	assert.True(t, errs.IsConflict(err))

	_, err = svc.Update(ctx, "missing", Input{Name: "X", Price: 1, DurationDays: 1})
	assert.True(t, errs.IsNotFound(err))
}

func TestDeleteAndList(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	inactive := false
	a, err := svc.Create(ctx, Input{Name: "A", Price: 300, DurationDays: 7})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "B", Price: 100, DurationDays: 30, PlanType: types.PlanTypeSubscription})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "C", Price: 200, DurationDays: 7, IsActive: &inactive})
	require.NoError(t, err)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, lo.Map(all, func(p *models.RentalPlan, _ int) string { return p.Name }))

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	subs, err := svc.ListByType(ctx, types.PlanTypeSubscription, true)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "B", subs[0].Name)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.True(t, errs.IsNotFound(svc.Delete(ctx, a.ID)))
	_, err = svc.Get(ctx, a.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestGetUsable(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	inactive := false
	rent, err := svc.Create(ctx, Input{Name: "Rent", Price: 100, DurationDays: 7})
	require.NoError(t, err)
	off, err := svc.Create(ctx, Input{Name: "Off", Price: 100, DurationDays: 7, IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.GetUsable(ctx, rent.ID, types.PlanTypeSingleBook)
	require.NoError(t, err)

	_, err = svc.GetUsable(ctx, rent.ID, types.PlanTypeSubscription)
	assert.True(t, errs.IsValidation(err))

	_, err = svc.GetUsable(ctx, off.ID, types.PlanTypeSingleBook)
	assert.True(t, errs.IsValidation(err))

	_, err = svc.GetUsable(ctx, "nope", types.PlanTypeSingleBook)
	assert.True(t, errs.IsNotFound(err))
}
