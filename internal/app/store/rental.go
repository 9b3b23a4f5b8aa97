package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/types"
)

type RentalStore struct {
	db *gorm.DB
}

func NewRentalStore(db *gorm.DB) *RentalStore { return &RentalStore{db: db} }

// Create inserts the rental and its first history entry in one transaction.
func (s *RentalStore) Create(ctx context.Context, rental *models.BookRental, history *models.RentalHistory) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("History").Create(rental).Error; err != nil {
			return translate(err)
		}
		return tx.Create(history).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create rental: %w", err)
	}
	return nil
}

func (s *RentalStore) Get(ctx context.Context, id string, withHistory bool) (*models.BookRental, error) {
	q := s.db.WithContext(ctx)
	if withHistory {
		q = q.Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
	}
	var rental models.BookRental
	if err := q.Where("id = ?", id).First(&rental).Error; err != nil {
		return nil, translate(err)
	}
	return &rental, nil
}

func (s *RentalStore) GetActiveRentalByUserAndBook(ctx context.Context, userID, bookID string) (*models.BookRental, error) {
	var rental models.BookRental
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, types.RentalStatusActive).
		First(&rental).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rental, nil
}

// Transition saves a state change of an active rental and appends its
// history entry. ErrStale is returned if the rental left the active state
// in the meantime.
func (s *RentalStore) Transition(ctx context.Context, rental *models.BookRental, history *models.RentalHistory) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transition(tx, rental, history)
	})
	if err != nil {
		return fmt.Errorf("failed to save rental %s: %w", rental.ID, err)
	}
	return nil
}

func transition(tx *gorm.DB, rental *models.BookRental, history *models.RentalHistory) error {
	res := tx.Model(&models.BookRental{}).
		Where("id = ? AND status = ?", rental.ID, types.RentalStatusActive).
		Updates(map[string]any{
			"end_at":      rental.EndAt,
			"status":      rental.Status,
			"is_returned": rental.IsReturned,
			"is_renewed":  rental.IsRenewed,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return tx.Create(history).Error
}

func (s *RentalStore) GetExpiredRentals(ctx context.Context, now time.Time) ([]*models.BookRental, error) {
	var rentals []*models.BookRental
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", types.RentalStatusActive, now).
		Order("end_at ASC").
		Find(&rentals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get expired rentals: %w", err)
	}
	return rentals, nil
}

// ExpireRentals applies the prepared transitions in one transaction and
// returns how many were applied. Rentals that are no longer active are skipped.
func (s *RentalStore) ExpireRentals(ctx context.Context, rentals []*models.BookRental, history []*models.RentalHistory) (int, error) {
	if len(rentals) != len(history) {
		return 0, fmt.Errorf("expire rentals: %d rentals but %d history entries", len(rentals), len(history))
	}
	applied := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, r := range rentals {
			err := transition(tx, r, history[i])
			if errors.Is(err, ErrStale) {
				continue
			}
			if err != nil {
				return err
			}
			applied++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to expire rentals: %w", err)
	}
	return applied, nil
}

func (s *RentalStore) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*models.BookRental, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("status = ?", types.RentalStatusActive)
	}
	var rentals []*models.BookRental
	if err := q.Order("start_at DESC").Find(&rentals).Error; err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	return rentals, nil
}

func (s *RentalStore) Scan(ctx context.Context, req *types.ScanRequest) ([]*models.BookRental, int64, error) {
	rows, total, err := scan[models.BookRental](s.db.WithContext(ctx).Model(&models.BookRental{}), req, "start_at")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan rentals: %w", err)
	}
	return rows, total, nil
}
