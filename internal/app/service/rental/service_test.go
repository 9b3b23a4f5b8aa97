package rental

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/service/catalog"
	"github.com/fatflowers/bookrental/internal/app/service/ebook"
	"github.com/fatflowers/bookrental/internal/app/store"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/errs"
	"github.com/fatflowers/bookrental/pkg/types"
)

type memRepo struct {
	mu      sync.Mutex
	rentals map[string]*models.BookRental
	history map[string][]models.RentalHistory
	// skipPrecheck hides active rentals from GetActiveRentalByUserAndBook to
	// simulate a concurrent RentBook that passed the pre-check.
	skipPrecheck bool
}

func newMemRepo() *memRepo {
	return &memRepo{rentals: map[string]*models.BookRental{}, history: map[string][]models.RentalHistory{}}
}

func (m *memRepo) Create(_ context.Context, r *models.BookRental, h *models.RentalHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.rentals {
		if other.UserID == r.UserID && other.BookID == r.BookID && other.Status == types.RentalStatusActive {
			return store.ErrDuplicate
		}
	}
	cp := *r
	cp.History = nil
	m.rentals[r.ID] = &cp
	m.history[r.ID] = append(m.history[r.ID], *h)
	return nil
}

func (m *memRepo) Get(_ context.Context, id string, withHistory bool) (*models.BookRental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rentals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	if withHistory {
		cp.History = append([]models.RentalHistory(nil), m.history[id]...)
	}
	return &cp, nil
}

func (m *memRepo) GetActiveRentalByUserAndBook(_ context.Context, userID, bookID string) (*models.BookRental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipPrecheck {
		return nil, store.ErrNotFound
	}
	for _, r := range m.rentals {
		if r.UserID == userID && r.BookID == bookID && r.Status == types.RentalStatusActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRepo) transitionLocked(r *models.BookRental, h *models.RentalHistory) error {
	cur, ok := m.rentals[r.ID]
	if !ok || cur.Status != types.RentalStatusActive {
		return store.ErrStale
	}
	cur.EndAt = r.EndAt
	cur.Status = r.Status
	cur.IsReturned = r.IsReturned
	cur.IsRenewed = r.IsRenewed
	m.history[r.ID] = append(m.history[r.ID], *h)
	return nil
}

func (m *memRepo) Transition(_ context.Context, r *models.BookRental, h *models.RentalHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(r, h)
}

func (m *memRepo) GetExpiredRentals(_ context.Context, now time.Time) ([]*models.BookRental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.BookRental
	for _, r := range m.rentals {
		if r.Status == types.RentalStatusActive && !r.EndAt.After(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) ExpireRentals(_ context.Context, rentals []*models.BookRental, history []*models.RentalHistory) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i, r := range rentals {
		if err := m.transitionLocked(r, history[i]); err == nil {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ListByUser(_ context.Context, userID string, activeOnly bool) ([]*models.BookRental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.BookRental
	for _, r := range m.rentals {
		if r.UserID != userID || (activeOnly && r.Status != types.RentalStatusActive) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	return out, nil
}

func (m *memRepo) Scan(_ context.Context, req *types.ScanRequest) ([]*models.BookRental, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.BookRental, 0, len(m.rentals))
	for _, r := range m.rentals {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) activeCount(userID, bookID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rentals {
		if r.UserID == userID && r.BookID == bookID && r.Status == types.RentalStatusActive {
			n++
		}
	}
	return n
}

type fakeBooks map[string]string

func (f fakeBooks) GetTitle(_ context.Context, bookID string) (string, error) {
	title, ok := f[bookID]
	if !ok {
		return "", catalog.ErrBookNotFound
	}
	return title, nil
}

type fakePlans map[string]*models.RentalPlan

func (f fakePlans) GetUsable(_ context.Context, id string, planType types.PlanType) (*models.RentalPlan, error) {
	p, ok := f[id]
	if !ok {
		return nil, errs.NotFound("plan %s not found", id)
	}
	if !p.IsActive || p.PlanType != planType {
		return nil, errs.Validation("plan %s is not usable", id)
	}
	return p, nil
}

type fakeSubs map[string]*models.UserSubscription

func (f fakeSubs) GetActive(_ context.Context, userID string) (*models.UserSubscription, error) {
	if sub, ok := f[userID]; ok {
		return sub, nil
	}
	return nil, errs.NotFound("no active subscription")
}

type fakeLinks struct {
	calls []string
}

func (f *fakeLinks) IssueSingleFileLink(_ context.Context, bookID string) (*ebook.Link, error) {
	f.calls = append(f.calls, bookID)
	return &ebook.Link{URL: "memory://ebooks/" + bookID + ".pdf", Format: "pdf"}, nil
}

type fakeNotifier struct {
	titles []string
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, _, title, _ string, _ types.NotificationType, _ string) error {
	f.titles = append(f.titles, title)
	return f.err
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	subs     fakeSubs
	links    *fakeLinks
	notifier *fakeNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMemRepo(),
		subs:     fakeSubs{},
		links:    &fakeLinks{},
		notifier: &fakeNotifier{},
		now:      time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC),
	}
	books := fakeBooks{"b1": "Dune", "b2": "Emma"}
	plans := fakePlans{
		"p30":     {ID: "p30", Name: "30 days", Price: 500, DurationDays: 30, PlanType: types.PlanTypeSingleBook, IsActive: true},
		"p2":      {ID: "p2", Name: "2 days", Price: 100, DurationDays: 2, PlanType: types.PlanTypeSingleBook, IsActive: true},
		"off":     {ID: "off", Name: "retired", Price: 100, DurationDays: 7, PlanType: types.PlanTypeSingleBook, IsActive: false},
		"monthly": {ID: "monthly", Name: "monthly", Price: 999, DurationDays: 30, PlanType: types.PlanTypeSubscription, IsActive: true},
	}
	f.svc = NewService(f.repo, books, plans, f.subs, f.links, f.notifier, zap.NewNop().Sugar())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) rent(t *testing.T, userID, bookID, planID string) *models.BookRental {
	t.Helper()
	out, err := f.svc.RentBook(context.Background(), userID, bookID, planID)
	require.NoError(t, err)
	require.True(t, out.Success, out.Message)
	return out.Data
}

func TestRentBook(t *testing.T) {
	f := newFixture(t)
	r := f.rent(t, "u1", "b1", "p30")

	assert.Equal(t, types.RentalStatusActive, r.Status)
	assert.Equal(t, f.now.AddDate(0, 0, 30), r.EndAt)
	assert.EqualValues(t, 500, r.Price)
	require.Len(t, r.History, 1)
	assert.Equal(t, types.RentalActionRented, r.History[0].Action)
	assert.Equal(t, []string{"Book rented"}, f.notifier.titles)
}

func TestRentBook_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RentBook(ctx, "u1", "missing", "p30")
	assert.True(t, errs.IsNotFound(err))

	_, err = f.svc.RentBook(ctx, "u1", "b1", "nope")
	assert.True(t, errs.IsNotFound(err))

	_, err = f.svc.RentBook(ctx, "u1", "b1", "off")
	assert.True(t, errs.IsValidation(err))

	_, err = f.svc.RentBook(ctx, "u1", "b1", "monthly")
	assert.True(t, errs.IsValidation(err))
}

func TestRentBook_AlreadyRented(t *testing.T) {
	f := newFixture(t)
	f.rent(t, "u1", "b1", "p30")

	out, err := f.svc.RentBook(context.Background(), "u1", "b1", "p30")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, ReasonAlreadyRented, out.Message)
	assert.Equal(t, 1, f.repo.activeCount("u1", "b1"))

	// a different book or user is unaffected
	f.rent(t, "u1", "b2", "p30")
	f.rent(t, "u2", "b1", "p30")
}

func TestRentBook_InsertConflictIsOutcome(t *testing.T) {
	f := newFixture(t)
	f.rent(t, "u1", "b1", "p30")
	f.repo.skipPrecheck = true

	out, err := f.svc.RentBook(context.Background(), "u1", "b1", "p30")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, ReasonAlreadyRented, out.Message)
	assert.Equal(t, 1, f.repo.activeCount("u1", "b1"))
}

func TestRentBook_NotificationFailureKeepsRental(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("inbox down")

	r := f.rent(t, "u1", "b1", "p30")
	assert.Equal(t, 1, f.repo.activeCount("u1", "b1"))
	assert.NotEmpty(t, r.ID)
}

func TestRenewRental_StacksOnPriorEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.rent(t, "u1", "b1", "p2")

	renewed, err := f.svc.RenewRental(ctx, "u1", r.ID, "p30")
	require.NoError(t, err)
	assert.Equal(t, f.now.AddDate(0, 0, 32), renewed.EndAt)
	assert.True(t, renewed.IsRenewed)
	assert.Equal(t, types.RentalStatusActive, renewed.Status)

	access, err := f.svc.CheckAccess(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 32, access.RemainingDays)

	got, err := f.svc.GetRental(ctx, "u1", r.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, types.RentalActionRenewed, got.History[1].Action)
}

func TestRenewRental_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.rent(t, "u1", "b1", "p30")

	_, err := f.svc.RenewRental(ctx, "u1", "missing", "p30")
	assert.True(t, errs.IsNotFound(err))

	_, err = f.svc.RenewRental(ctx, "u2", r.ID, "p30")
	assert.True(t, errs.IsAuthorization(err))

	_, err = f.svc.RenewRental(ctx, "u1", r.ID, "off")
	assert.True(t, errs.IsValidation(err))

	_, err = f.svc.ReturnBook(ctx, "u1", r.ID)
	require.NoError(t, err)
	_, err = f.svc.RenewRental(ctx, "u1", r.ID, "p30")
	assert.True(t, errs.IsValidation(err))
}

func TestRentBook_ReplacesEndedUnsweptRental(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.rent(t, "u1", "b1", "p2")
	f.now = f.now.AddDate(0, 0, 40)

	access, err := f.svc.CheckAccess(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.False(t, access.Granted)

	fresh := f.rent(t, "u1", "b1", "p30")
	assert.Equal(t, f.now.AddDate(0, 0, 30), fresh.EndAt)
	assert.Equal(t, 1, f.repo.activeCount("u1", "b1"))

	prev, err := f.svc.GetRental(ctx, "u1", old.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RentalStatusExpired, prev.Status)
	assert.True(t, prev.IsReturned)
	require.Len(t, prev.History, 2)
	assert.Equal(t, types.RentalActionExpired, prev.History[1].Action)

	access, err = f.svc.CheckAccess(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.True(t, access.Granted)
	assert.Equal(t, fresh.ID, access.SourceID)
	assert.Equal(t, 30, access.RemainingDays)
}

func TestRenewRental_EndedUnsweptRentalIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.rent(t, "u1", "b1", "p2")
	f.now = f.now.AddDate(0, 0, 40)

	_, err := f.svc.RenewRental(ctx, "u1", r.ID, "p30")
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))

	got, err := f.svc.GetRental(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RentalStatusExpired, got.Status)
	assert.False(t, got.IsRenewed)
	assert.Equal(t, f.now.AddDate(0, 0, -38), got.EndAt)

	// the sweep finds nothing left and a new rental goes through
	n, err := f.svc.SweepExpiredRentals(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	f.rent(t, "u1", "b1", "p30")
}

func TestReturnBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.rent(t, "u1", "b1", "p30")

	_, err := f.svc.ReturnBook(ctx, "u2", r.ID)
	assert.True(t, errs.IsAuthorization(err))

	returned, err := f.svc.ReturnBook(ctx, "u1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RentalStatusReturned, returned.Status)
	assert.True(t, returned.IsReturned)

	_, err = f.svc.ReturnBook(ctx, "u1", r.ID)
	assert.True(t, errs.IsValidation(err))

	// returning frees the slot for a new rental
	f.rent(t, "u1", "b1", "p30")
}

func TestCancelRental(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.rent(t, "u1", "b1", "p30")

	cancelled, err := f.svc.CancelRental(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RentalStatusCancelled, cancelled.Status)
	assert.True(t, cancelled.IsReturned)

	_, err = f.svc.CancelRental(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))
}

func TestSweepExpiredRentals_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	short := f.rent(t, "u1", "b1", "p2")
	long := f.rent(t, "u1", "b2", "p30")

	f.now = f.now.AddDate(0, 0, 2)
	n, err := f.svc.SweepExpiredRentals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.SweepExpiredRentals(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.svc.GetRental(ctx, "u1", short.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RentalStatusExpired, got.Status)
	assert.True(t, got.IsReturned)
	assert.Equal(t, types.RentalActionExpired, got.History[len(got.History)-1].Action)

	got, err = f.svc.GetRental(ctx, "u1", long.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RentalStatusActive, got.Status)
}

func TestCheckAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CheckAccess(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.False(t, res.Granted)
	assert.Equal(t, ReasonNoEntitlement, res.Reason)

	f.subs["u1"] = &models.UserSubscription{ID: "s1", UserID: "u1", Status: types.SubscriptionStatusActive, EndAt: f.now.Add(36 * time.Hour)}
	res, err = f.svc.CheckAccess(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.True(t, res.Granted)
	assert.Equal(t, types.AccessSourceSubscription, res.Source)
	assert.Equal(t, 2, res.RemainingDays, "partial days round up")

	r := f.rent(t, "u1", "b1", "p30")
	res, err = f.svc.CheckAccess(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, types.AccessSourceRental, res.Source)
	assert.Equal(t, r.ID, res.SourceID)
	assert.Equal(t, 30, res.RemainingDays)
	require.NotNil(t, res.ExpiresAt)
	assert.Equal(t, r.EndAt, *res.ExpiresAt)
}

func TestCheckAccess_LapsedRentalFallsBack(t *testing.T) {
	f := newFixture(t)
	f.rent(t, "u1", "b1", "p2")
	f.now = f.now.AddDate(0, 0, 3)

	res, err := f.svc.CheckAccess(context.Background(), "u1", "b1")
	require.NoError(t, err)
	assert.False(t, res.Granted, "a rental past its end grants nothing even before the sweep")
}

func TestGetAccessLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetAccessLink(ctx, "u1", "b1")
	require.Error(t, err)
	assert.True(t, errs.IsAuthorization(err))
	assert.Equal(t, ReasonNoEntitlement, errs.Message(err))
	assert.Empty(t, f.links.calls)

	f.rent(t, "u1", "b1", "p30")
	link, err := f.svc.GetAccessLink(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, "pdf", link.Format)
	assert.Equal(t, []string{"b1"}, f.links.calls)
}

func TestListUserRentals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.rent(t, "u1", "b1", "p30")
	f.now = f.now.Add(time.Hour)
	f.rent(t, "u1", "b2", "p30")
	_, err := f.svc.ReturnBook(ctx, "u1", r.ID)
	require.NoError(t, err)

	all, err := f.svc.ListUserRentals(ctx, "u1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "b2", all[0].BookID)

	active, err := f.svc.ListUserRentals(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b2", active[0].BookID)
}
