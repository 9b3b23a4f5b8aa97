package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/bookrental/internal/app/store"
	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/errs"
	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/metrics"
	"github.com/fatflowers/bookrental/pkg/tool"
	"github.com/fatflowers/bookrental/pkg/types"
)

const ReasonAlreadySubscribed = "you already have an active subscription, wait until current expires"

type Repository interface {
	Create(ctx context.Context, sub *models.UserSubscription) error
	Get(ctx context.Context, id string) (*models.UserSubscription, error)
	GetActiveSubscriptionByUser(ctx context.Context, userID string, now time.Time) (*models.UserSubscription, error)
	GetByTransactionCode(ctx context.Context, code string) (*models.UserSubscription, error)
	Update(ctx context.Context, sub *models.UserSubscription) error
	GetExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.UserSubscription, error)
	GetExpiredSubscriptionsByUser(ctx context.Context, userID string, now time.Time) ([]*models.UserSubscription, error)
	// ExpireSubscriptions returns the ids it actually moved to expired.
	ExpireSubscriptions(ctx context.Context, subs []*models.UserSubscription) ([]string, error)
	ListByUser(ctx context.Context, userID string) ([]*models.UserSubscription, error)
}

type PlanProvider interface {
	GetUsable(ctx context.Context, id string, planType types.PlanType) (*models.RentalPlan, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, title, message string, typ types.NotificationType, link string) error
}

// ChangeLog records before/after snapshots of subscription changes.
type ChangeLog interface {
	Save(ctx context.Context, log *models.SubscriptionLog) error
}

type SubscribeResult struct {
	SubscriptionID  string    `json:"subscription_id"`
	TransactionCode string    `json:"transaction_code"`
	IsPaid          bool      `json:"is_paid"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
}

type Service struct {
	repo     Repository
	plans    PlanProvider
	notifier Notifier
	changes  ChangeLog
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(repo Repository, plans PlanProvider, notifier Notifier, changes ChangeLog, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, plans: plans, notifier: notifier, changes: changes, log: log, now: time.Now}
}

// Subscribe starts a subscription on a subscription plan. A user with an
// active subscription gets a failed Outcome and nothing is created.
// Online payments start unpaid until ConfirmPayment.
func (s *Service) Subscribe(ctx context.Context, userID, planID string, method types.PaymentMethod) (*types.Outcome[*SubscribeResult], error) {
	if userID == "" {
		return nil, errs.Validation("user_id is required")
	}
	if method == "" {
		return nil, errs.Validation("payment_method is required")
	}
	p, err := s.plans.GetUsable(ctx, planID, types.PlanTypeSubscription)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if _, err := s.GetActive(ctx, userID); err == nil {
		return types.Fail[*SubscribeResult](ReasonAlreadySubscribed), nil
	} else if !errs.IsNotFound(err) {
		return nil, err
	}
	// an ended subscription the sweeper has not reached still holds the
	// user's active slot
	lapsed, err := s.repo.GetExpiredSubscriptionsByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.expire(ctx, lapsed); err != nil {
		return nil, err
	}

	sub := &models.UserSubscription{
		ID:              tool.GenerateUUIDV7(),
		UserID:          userID,
		PlanID:          p.ID,
		Price:           p.Price,
		DurationDays:    p.DurationDays,
		StartAt:         now,
		EndAt:           now.Add(p.Duration()),
		Status:          types.SubscriptionStatusActive,
		IsPaid:          method.PaidOnCreate(),
		PaymentMethod:   method,
		TransactionCode: tool.GenerateTransactionCode(now),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// lost the race against a concurrent Subscribe
			return types.Fail[*SubscribeResult](ReasonAlreadySubscribed), nil
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription_created", "subscription_id", sub.ID, "plan_id", p.ID, "is_paid", sub.IsPaid)
	s.recordChange(ctx, nil, sub, types.SubscriptionChangeReasonSubscribe)
	s.notify(ctx, userID, "Subscription started",
		fmt.Sprintf("Your %s subscription is valid until %s.", p.Name, sub.EndAt.Format(time.DateOnly)))

	return types.Succeed(&SubscribeResult{
		SubscriptionID:  sub.ID,
		TransactionCode: sub.TransactionCode,
		IsPaid:          sub.IsPaid,
		StartAt:         sub.StartAt,
		EndAt:           sub.EndAt,
	}, "subscribed"), nil
}

// ConfirmPayment marks the subscription behind transactionCode paid and
// active. Confirming twice is harmless.
func (s *Service) ConfirmPayment(ctx context.Context, transactionCode string) (*models.UserSubscription, error) {
	sub, err := s.repo.GetByTransactionCode(ctx, transactionCode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("no subscription with transaction code %s", transactionCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub.IsPaid && sub.Status == types.SubscriptionStatusActive {
		return sub, nil
	}

	before := *sub
	sub.IsPaid = true
	sub.Status = types.SubscriptionStatusActive
	if err := s.repo.Update(ctx, sub); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.Conflict("user %s already has another active subscription", sub.UserID)
		}
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription_paid", "subscription_id", sub.ID, "transaction_code", transactionCode)
	s.recordChange(ctx, &before, sub, types.SubscriptionChangeReasonPaymentConfirm)
	s.notify(ctx, sub.UserID, "Payment received", "Your subscription payment has been confirmed.")
	return sub, nil
}

// GetActive returns the user's subscription that is active and not past its
// end, or a NotFound error.
func (s *Service) GetActive(ctx context.Context, userID string) (*models.UserSubscription, error) {
	sub, err := s.repo.GetActiveSubscriptionByUser(ctx, userID, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("no active subscription")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}
	return sub, nil
}

func (s *Service) CheckActive(ctx context.Context, userID string) (bool, error) {
	_, err := s.GetActive(ctx, userID)
	if errs.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SweepExpired moves active subscriptions past their end to expired and
// returns how many changed. Running it again right away changes nothing.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	start := time.Now()
	defer metrics.ObserveBusinessProcess("sweep", "subscription", start)

	subs, err := s.repo.GetExpiredSubscriptions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, nil
	}
	n, err := s.expire(ctx, subs)
	if err != nil {
		return 0, err
	}
	metrics.AddBusinessItems("sweep", "subscription", n)
	logctx.FromCtx(ctx, s.log).Infow("subscriptions_expired", "count", n)
	return n, nil
}

// expire moves subs to expired and logs a change for each one the store
// actually updated.
func (s *Service) expire(ctx context.Context, subs []*models.UserSubscription) (int, error) {
	if len(subs) == 0 {
		return 0, nil
	}
	ids, err := s.repo.ExpireSubscriptions(ctx, subs)
	if err != nil {
		return 0, err
	}
	changed := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	for _, sub := range subs {
		if _, ok := changed[sub.ID]; !ok {
			continue
		}
		before := *sub
		sub.Status = types.SubscriptionStatusExpired
		s.recordChange(ctx, &before, sub, types.SubscriptionChangeReasonExpire)
	}
	return len(ids), nil
}

// Cancel is an administrative stop; the subscription stops granting access
// immediately.
func (s *Service) Cancel(ctx context.Context, subscriptionID string) error {
	sub, err := s.repo.Get(ctx, subscriptionID)
	if errors.Is(err, store.ErrNotFound) {
		return errs.NotFound("subscription %s not found", subscriptionID)
	}
	if err != nil {
		return fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub.Status == types.SubscriptionStatusCancelled {
		return nil
	}
	before := *sub
	sub.Status = types.SubscriptionStatusCancelled
	if err := s.repo.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription_cancelled", "subscription_id", sub.ID)
	s.recordChange(ctx, &before, sub, types.SubscriptionChangeReasonCancel)
	return nil
}

func (s *Service) ListUserSubscriptions(ctx context.Context, userID string) ([]*models.UserSubscription, error) {
	return s.repo.ListByUser(ctx, userID)
}

// recordChange writes the change log asynchronously; failures are logged.
func (s *Service) recordChange(ctx context.Context, before, after *models.UserSubscription, reason types.SubscriptionChangeReason) {
	entry := &models.SubscriptionLog{
		ID:             tool.GenerateUUIDV7(),
		UserID:         after.UserID,
		SubscriptionID: after.ID,
		Reason:         reason,
		Before:         datatypes.NewJSONType(before),
		After:          datatypes.NewJSONType(cloneSubscription(after)),
		Extra:          datatypes.JSONMap{"trace_id": ctx.Value(logctx.KeyTraceID)},
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.changes.Save(ctx, entry); err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}

func cloneSubscription(sub *models.UserSubscription) *models.UserSubscription {
	cp := *sub
	return &cp
}

func (s *Service) notify(ctx context.Context, userID, title, message string) {
	if err := s.notifier.Notify(ctx, userID, title, message, types.NotificationTypeSubscription, ""); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("subscription_notify_failed", "err", err)
	}
}

// GormChangeLog stores change logs in subscription_log.
type GormChangeLog struct {
	db *gorm.DB
}

func NewGormChangeLog(db *gorm.DB) *GormChangeLog { return &GormChangeLog{db: db} }

func (g *GormChangeLog) Save(ctx context.Context, log *models.SubscriptionLog) error {
	return g.db.WithContext(ctx).Create(log).Error
}
