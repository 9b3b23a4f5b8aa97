// Package rental implements per-book rentals: renting, renewing, returning,
// expiring and the access check that combines rentals with subscriptions.
package rental

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/service/catalog"
	"github.com/fatflowers/bookrental/internal/app/service/ebook"
	"github.com/fatflowers/bookrental/internal/app/store"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/errs"
	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/metrics"
	"github.com/fatflowers/bookrental/pkg/tool"
	"github.com/fatflowers/bookrental/pkg/types"
)

const (
	ReasonAlreadyRented = "already rented, use renew"
	ReasonNoEntitlement = "no active rental or subscription for this book"
)

type Repository interface {
	Create(ctx context.Context, rental *models.BookRental, history *models.RentalHistory) error
	Get(ctx context.Context, id string, withHistory bool) (*models.BookRental, error)
	GetActiveRentalByUserAndBook(ctx context.Context, userID, bookID string) (*models.BookRental, error)
	Transition(ctx context.Context, rental *models.BookRental, history *models.RentalHistory) error
	GetExpiredRentals(ctx context.Context, now time.Time) ([]*models.BookRental, error)
	ExpireRentals(ctx context.Context, rentals []*models.BookRental, history []*models.RentalHistory) (int, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*models.BookRental, error)
	Scan(ctx context.Context, req *types.ScanRequest) ([]*models.BookRental, int64, error)
}

type BookCatalog interface {
	GetTitle(ctx context.Context, bookID string) (string, error)
}

type PlanProvider interface {
	GetUsable(ctx context.Context, id string, planType types.PlanType) (*models.RentalPlan, error)
}

type SubscriptionChecker interface {
	GetActive(ctx context.Context, userID string) (*models.UserSubscription, error)
}

// LinkIssuer hands out download links without checking entitlement.
type LinkIssuer interface {
	IssueSingleFileLink(ctx context.Context, bookID string) (*ebook.Link, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, title, message string, typ types.NotificationType, link string) error
}

// AccessResult is the answer of CheckAccess. Source and ExpiresAt are set
// only when Granted; Reason only when not.
type AccessResult struct {
	Granted       bool               `json:"granted"`
	Source        types.AccessSource `json:"source,omitempty"`
	SourceID      string             `json:"source_id,omitempty"`
	RemainingDays int                `json:"remaining_days"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	Reason        string             `json:"reason,omitempty"`
}

type Service struct {
	repo     Repository
	books    BookCatalog
	plans    PlanProvider
	subs     SubscriptionChecker
	links    LinkIssuer
	notifier Notifier
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(repo Repository, books BookCatalog, plans PlanProvider, subs SubscriptionChecker, links LinkIssuer, notifier Notifier, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:     repo,
		books:    books,
		plans:    plans,
		subs:     subs,
		links:    links,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// RentBook rents bookID to userID on a single_book plan. An existing active
// rental of the same book is reported as a failed Outcome.
func (s *Service) RentBook(ctx context.Context, userID, bookID, planID string) (*types.Outcome[*models.BookRental], error) {
	if userID == "" {
		return nil, errs.Validation("user_id is required")
	}
	title, err := s.books.GetTitle(ctx, bookID)
	if errors.Is(err, catalog.ErrBookNotFound) {
		return nil, errs.NotFound("book %s not found", bookID)
	}
	if err != nil {
		return nil, err
	}
	p, err := s.plans.GetUsable(ctx, planID, types.PlanTypeSingleBook)
	if err != nil {
		return nil, err
	}

	now := s.now()
	existing, err := s.repo.GetActiveRentalByUserAndBook(ctx, userID, bookID)
	switch {
	case err == nil && existing.ActiveAt(now):
		return types.Fail[*models.BookRental](ReasonAlreadyRented), nil
	case err == nil:
		// ended but not swept yet
		if err := s.expireLapsed(ctx, existing); err != nil {
			return nil, err
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check active rental: %w", err)
	}

	rental := &models.BookRental{
		ID:           tool.GenerateUUIDV7(),
		UserID:       userID,
		BookID:       bookID,
		PlanID:       p.ID,
		Price:        p.Price,
		DurationDays: p.DurationDays,
		StartAt:      now,
		EndAt:        now.Add(p.Duration()),
		Status:       types.RentalStatusActive,
	}
	h := s.history(rental.ID, types.RentalActionRented, fmt.Sprintf("rented on plan %s until %s", p.Name, rental.EndAt.Format(time.RFC3339)))
	if err := s.repo.Create(ctx, rental, h); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Fail[*models.BookRental](ReasonAlreadyRented), nil
		}
		return nil, err
	}
	rental.History = []models.RentalHistory{*h}

	logctx.FromCtx(ctx, s.log).Infow("book_rented", "rental_id", rental.ID, "book_id", bookID, "plan_id", p.ID)
	s.notify(ctx, userID, "Book rented",
		fmt.Sprintf("You rented %q until %s.", title, rental.EndAt.Format(time.DateOnly)), bookID)
	return types.Succeed(rental, "rented"), nil
}

// RenewRental extends an active rental by the plan duration, counted from
// its current end.
func (s *Service) RenewRental(ctx context.Context, userID, rentalID, planID string) (*models.BookRental, error) {
	rental, err := s.owned(ctx, userID, rentalID)
	if err != nil {
		return nil, err
	}
	p, err := s.plans.GetUsable(ctx, planID, types.PlanTypeSingleBook)
	if err != nil {
		return nil, err
	}
	if rental.Status != types.RentalStatusActive {
		return nil, errs.Validation("rental %s is %s and cannot be renewed", rentalID, rental.Status)
	}
	if !rental.ActiveAt(s.now()) {
		if err := s.expireLapsed(ctx, rental); err != nil {
			return nil, err
		}
		return nil, errs.Validation("rental %s has ended, rent the book again", rentalID)
	}

	prevEnd := rental.EndAt
	rental.EndAt = prevEnd.Add(p.Duration())
	rental.IsRenewed = true
	h := s.history(rental.ID, types.RentalActionRenewed,
		fmt.Sprintf("renewed on plan %s: %s -> %s", p.Name, prevEnd.Format(time.RFC3339), rental.EndAt.Format(time.RFC3339)))
	if err := s.transition(ctx, rental, h); err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("rental_renewed", "rental_id", rental.ID, "end_at", rental.EndAt)
	s.notify(ctx, userID, "Rental renewed",
		fmt.Sprintf("Your rental is now valid until %s.", rental.EndAt.Format(time.DateOnly)), rental.BookID)
	return rental, nil
}

func (s *Service) ReturnBook(ctx context.Context, userID, rentalID string) (*models.BookRental, error) {
	rental, err := s.owned(ctx, userID, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != types.RentalStatusActive {
		return nil, errs.Validation("rental %s is %s and cannot be returned", rentalID, rental.Status)
	}
	rental.Status = types.RentalStatusReturned
	rental.IsReturned = true
	if err := s.transition(ctx, rental, s.history(rental.ID, types.RentalActionReturned, "returned by user")); err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("rental_returned", "rental_id", rental.ID)
	return rental, nil
}

// CancelRental is an administrative stop and skips the ownership check.
func (s *Service) CancelRental(ctx context.Context, rentalID string) (*models.BookRental, error) {
	rental, err := s.get(ctx, rentalID, false)
	if err != nil {
		return nil, err
	}
	if rental.Status != types.RentalStatusActive {
		return nil, errs.Validation("rental %s is %s and cannot be cancelled", rentalID, rental.Status)
	}
	rental.Status = types.RentalStatusCancelled
	rental.IsReturned = true
	if err := s.transition(ctx, rental, s.history(rental.ID, types.RentalActionCancelled, "cancelled by admin")); err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("rental_cancelled", "rental_id", rental.ID)
	s.notify(ctx, rental.UserID, "Rental cancelled", "One of your rentals was cancelled.", rental.BookID)
	return rental, nil
}

// SweepExpiredRentals expires every active rental whose end has passed and
// returns how many changed.
func (s *Service) SweepExpiredRentals(ctx context.Context) (int, error) {
	start := time.Now()
	defer metrics.ObserveBusinessProcess("sweep", "rental", start)

	rentals, err := s.repo.GetExpiredRentals(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if len(rentals) == 0 {
		return 0, nil
	}
	history := make([]*models.RentalHistory, 0, len(rentals))
	for _, r := range rentals {
		r.Status = types.RentalStatusExpired
		r.IsReturned = true
		history = append(history, s.history(r.ID, types.RentalActionExpired, "rental period ended"))
	}
	n, err := s.repo.ExpireRentals(ctx, rentals, history)
	if err != nil {
		return 0, err
	}
	metrics.AddBusinessItems("sweep", "rental", n)
	logctx.FromCtx(ctx, s.log).Infow("rentals_expired", "count", n)
	return n, nil
}

// CheckAccess reports whether userID may read bookID. A rental of the book
// takes precedence over a subscription.
func (s *Service) CheckAccess(ctx context.Context, userID, bookID string) (*AccessResult, error) {
	now := s.now()

	rental, err := s.repo.GetActiveRentalByUserAndBook(ctx, userID, bookID)
	switch {
	case err == nil && rental.ActiveAt(now):
		return granted(types.AccessSourceRental, rental.ID, rental.EndAt, now), nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to check rental access: %w", err)
	}

	sub, err := s.subs.GetActive(ctx, userID)
	switch {
	case err == nil:
		return granted(types.AccessSourceSubscription, sub.ID, sub.EndAt, now), nil
	case !errs.IsNotFound(err):
		return nil, fmt.Errorf("failed to check subscription access: %w", err)
	}
	return &AccessResult{Granted: false, Reason: ReasonNoEntitlement}, nil
}

func granted(source types.AccessSource, id string, end, now time.Time) *AccessResult {
	return &AccessResult{
		Granted:       true,
		Source:        source,
		SourceID:      id,
		RemainingDays: remainingDays(end, now),
		ExpiresAt:     &end,
	}
}

func remainingDays(end, now time.Time) int {
	if !end.After(now) {
		return 0
	}
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

// GetAccessLink checks access and then asks the content engine for a
// download link.
func (s *Service) GetAccessLink(ctx context.Context, userID, bookID string) (*ebook.Link, error) {
	res, err := s.CheckAccess(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if !res.Granted {
		return nil, errs.Authorization("%s", res.Reason)
	}
	return s.links.IssueSingleFileLink(ctx, bookID)
}

func (s *Service) ListUserRentals(ctx context.Context, userID string, activeOnly bool) ([]*models.BookRental, error) {
	return s.repo.ListByUser(ctx, userID, activeOnly)
}

// GetRental returns one of the user's rentals with its history.
func (s *Service) GetRental(ctx context.Context, userID, rentalID string) (*models.BookRental, error) {
	rental, err := s.get(ctx, rentalID, true)
	if err != nil {
		return nil, err
	}
	if rental.UserID != userID {
		return nil, errs.Authorization("rental %s does not belong to user", rentalID)
	}
	return rental, nil
}

func (s *Service) ScanRentals(ctx context.Context, req *types.ScanRequest) ([]*models.BookRental, int64, error) {
	return s.repo.Scan(ctx, req)
}

func (s *Service) get(ctx context.Context, rentalID string, withHistory bool) (*models.BookRental, error) {
	rental, err := s.repo.Get(ctx, rentalID, withHistory)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("rental %s not found", rentalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	return rental, nil
}

func (s *Service) owned(ctx context.Context, userID, rentalID string) (*models.BookRental, error) {
	rental, err := s.get(ctx, rentalID, false)
	if err != nil {
		return nil, err
	}
	if rental.UserID != userID {
		return nil, errs.Authorization("rental %s does not belong to user", rentalID)
	}
	return rental, nil
}

// expireLapsed moves an active rental whose end has passed to expired, the
// same way the sweep does. A concurrent change to the row is not an error.
func (s *Service) expireLapsed(ctx context.Context, rental *models.BookRental) error {
	rental.Status = types.RentalStatusExpired
	rental.IsReturned = true
	err := s.repo.Transition(ctx, rental, s.history(rental.ID, types.RentalActionExpired, "rental period ended"))
	if err != nil && !errors.Is(err, store.ErrStale) {
		return fmt.Errorf("failed to expire rental %s: %w", rental.ID, err)
	}
	logctx.FromCtx(ctx, s.log).Infow("rental_expired_inline", "rental_id", rental.ID)
	return nil
}

func (s *Service) transition(ctx context.Context, rental *models.BookRental, h *models.RentalHistory) error {
	err := s.repo.Transition(ctx, rental, h)
	if errors.Is(err, store.ErrStale) {
		return errs.Validation("rental %s is no longer active", rental.ID)
	}
	return err
}

func (s *Service) history(rentalID string, action types.RentalAction, note string) *models.RentalHistory {
	return &models.RentalHistory{
		ID:        tool.GenerateUUIDV7(),
		RentalID:  rentalID,
		Action:    action,
		Note:      note,
		CreatedAt: s.now(),
	}
}

func (s *Service) notify(ctx context.Context, userID, title, message, bookID string) {
	link := "/api/v1/books/" + bookID + "/access"
	if err := s.notifier.Notify(ctx, userID, title, message, types.NotificationTypeRental, link); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("rental_notify_failed", "err", err)
	}
}
