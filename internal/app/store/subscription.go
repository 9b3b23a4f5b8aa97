package store

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/types"
)

type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore { return &SubscriptionStore{db: db} }

func (s *SubscriptionStore) Create(ctx context.Context, sub *models.UserSubscription) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", translate(err))
	}
	return nil
}

func (s *SubscriptionStore) Get(ctx context.Context, id string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

// GetActiveSubscriptionByUser returns the user's active subscription ending
// after now. Rows still marked active past their end are ignored until swept.
func (s *SubscriptionStore) GetActiveSubscriptionByUser(ctx context.Context, userID string, now time.Time) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND end_at > ?", userID, types.SubscriptionStatusActive, now).
		First(&sub).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *SubscriptionStore) GetByTransactionCode(ctx context.Context, code string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := s.db.WithContext(ctx).Where("transaction_code = ?", code).First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *SubscriptionStore) Update(ctx context.Context, sub *models.UserSubscription) error {
	res := s.db.WithContext(ctx).Model(&models.UserSubscription{}).Where("id = ?", sub.ID).
		Updates(map[string]any{
			"status":     sub.Status,
			"is_paid":    sub.IsPaid,
			"end_at":     sub.EndAt,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update subscription: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SubscriptionStore) GetExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.UserSubscription, error) {
	var subs []*models.UserSubscription
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", types.SubscriptionStatusActive, now).
		Order("end_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get expired subscriptions: %w", err)
	}
	return subs, nil
}

// GetExpiredSubscriptionsByUser returns the user's subscriptions that are
// still active but past their end.
func (s *SubscriptionStore) GetExpiredSubscriptionsByUser(ctx context.Context, userID string, now time.Time) ([]*models.UserSubscription, error) {
	var subs []*models.UserSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND end_at <= ?", userID, types.SubscriptionStatusActive, now).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get expired subscriptions of %s: %w", userID, err)
	}
	return subs, nil
}

// ExpireSubscriptions marks the given subscriptions expired in one
// statement and returns the ids it changed. Subscriptions that are no
// longer active are skipped.
func (s *SubscriptionStore) ExpireSubscriptions(ctx context.Context, subs []*models.UserSubscription) ([]string, error) {
	ids := lo.Map(subs, func(sub *models.UserSubscription, _ int) string { return sub.ID })
	if len(ids) == 0 {
		return nil, nil
	}
	var updated []models.UserSubscription
	res := s.db.WithContext(ctx).Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("id IN ? AND status = ?", ids, types.SubscriptionStatusActive).
		Updates(map[string]any{"status": types.SubscriptionStatusExpired, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to expire subscriptions: %w", res.Error)
	}
	return lo.Map(updated, func(sub models.UserSubscription, _ int) string { return sub.ID }), nil
}

func (s *SubscriptionStore) ListByUser(ctx context.Context, userID string) ([]*models.UserSubscription, error) {
	var subs []*models.UserSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("start_at DESC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
