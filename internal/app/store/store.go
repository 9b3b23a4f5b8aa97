// Package store holds the gorm repositories for plans, rentals and
// subscriptions. Services depend on narrow interfaces declared next to them.
package store

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/bookrental/pkg/types"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert hits a unique index, including
	// the single-active-entitlement indexes.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStale is returned when a guarded update finds the row no longer active.
	ErrStale = errors.New("record changed concurrently")
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// scan applies filters, count, paging and sorting shared by the admin listings.
func scan[T any](tx *gorm.DB, req *types.ScanRequest, defaultSortBy string) ([]*T, int64, error) {
	req.Normalize(defaultSortBy)
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{types.CommonFilters(req.Filters)}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*T
	q := tx.Limit(req.Size).Offset(req.From).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
