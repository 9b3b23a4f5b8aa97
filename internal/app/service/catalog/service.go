// Package catalog answers the two questions the entitlement engines ask of
// the book catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/fatflowers/bookrental/internal/models"
)

var ErrBookNotFound = errors.New("book not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) Exists(ctx context.Context, bookID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check book %s: %w", bookID, err)
	}
	return count > 0, nil
}

// GetTitle returns ErrBookNotFound for unknown books.
func (s *Service) GetTitle(ctx context.Context, bookID string) (string, error) {
	var book models.Book
	err := s.db.WithContext(ctx).Select("id", "title").Where("id = ?", bookID).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrBookNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get book %s: %w", bookID, err)
	}
	return book.Title, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
