package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/types"
)

type StatisticType string

const (
	// Rentals
	StatisticTypeDailyRentalCount   StatisticType = "daily_rental_count"
	StatisticTypeDailyRentalRevenue StatisticType = "daily_rental_revenue"
	StatisticTypeActiveRentalCount  StatisticType = "active_rental_count"

	// Subscriptions
	StatisticTypeDailyNewSubscriptionCount StatisticType = "daily_new_subscription_count"
	StatisticTypeDailySubscriptionRevenue  StatisticType = "daily_subscription_revenue"
	StatisticTypeActiveSubscriptionCount   StatisticType = "active_subscription_count"

	// Rentals and paid subscriptions together, accumulated per day
	StatisticTypeTotalRevenue StatisticType = "total_revenue"
)

// Filter fields that only make sense for some statistic types.
type StatisticFilterType string

const (
	StatisticFilterTypeBookID        StatisticFilterType = "book_id"
	StatisticFilterTypeIsPaid        StatisticFilterType = "is_paid"
	StatisticFilterTypePaymentMethod StatisticFilterType = "payment_method"
)

var filterTypes = []StatisticFilterType{
	StatisticFilterTypeBookID,
	StatisticFilterTypeIsPaid,
	StatisticFilterTypePaymentMethod,
}

var validFilters = map[StatisticFilterType][]StatisticType{
	StatisticFilterTypeBookID:        {StatisticTypeDailyRentalCount, StatisticTypeDailyRentalRevenue, StatisticTypeActiveRentalCount},
	StatisticFilterTypeIsPaid:        {StatisticTypeDailyNewSubscriptionCount, StatisticTypeDailySubscriptionRevenue, StatisticTypeActiveSubscriptionCount},
	StatisticFilterTypePaymentMethod: {StatisticTypeDailyNewSubscriptionCount, StatisticTypeDailySubscriptionRevenue, StatisticTypeActiveSubscriptionCount},
}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*StatisticDataItem  `json:"data_items"`
}

// GetFilters keeps the filters that apply to statisticType. Filters on
// fields not listed in validFilters (plan_id, dates) apply everywhere.
func (f *StatisticRequest) GetFilters(statisticType StatisticType) *StatisticRequest {
	if f == nil || len(f.Filters) == 0 {
		return f
	}
	var result StatisticRequest
	for _, filter := range f.Filters {
		if statisticTypes, ok := validFilters[StatisticFilterType(filter.Field)]; ok {
			if lo.Contains(statisticTypes, statisticType) {
				result.Filters = append(result.Filters, filter)
			}
		} else {
			result.Filters = append(result.Filters, filter)
		}
	}
	return &result
}

// Build composes a WHERE clause from the filters; is_paid accepts "true" and
// "false" in any JSON form.
func (f *StatisticRequest) Build(builder clause.Builder) {
	if f == nil || len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		switch filter.Field {
		case string(StatisticFilterTypeIsPaid):
			if len(filter.Values) > 0 && fmt.Sprint(filter.Values[0]) == "true" {
				builder.WriteString("is_paid = true")
			} else {
				builder.WriteString("is_paid = false")
			}
		default:
			filter.Build(builder)
		}
	}
}

type StatisticResponseDataItem struct {
	Date   string `json:"date"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"data_items"`
}

// Service computes admin dashboard statistics straight from the
// entitlement tables.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Service { return &Service{db: db, now: time.Now} }

func (s *Service) where(request *StatisticRequest, typ StatisticType) clause.Where {
	return clause.Where{Exprs: []clause.Expression{request.GetFilters(typ)}}
}

func (s *Service) getDailyRentalCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.BookRental{}).TableName()).
		Select("TO_CHAR(start_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where(s.where(request, StatisticTypeDailyRentalCount)).
		Group("TO_CHAR(start_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// getDailyRentalRevenue sums rental prices per day. Renewals are not
// separately priced, so only the initial rent counts.
func (s *Service) getDailyRentalRevenue(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.BookRental{}).TableName()).
		Select("TO_CHAR(start_at, 'YYYY-MM-DD') as date, sum(price) as value, count(*) as value2").
		Where(s.where(request, StatisticTypeDailyRentalRevenue)).
		Where("status != ?", types.RentalStatusCancelled).
		Group("TO_CHAR(start_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getActiveRentalCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.BookRental{}).TableName()).
		Select("count(*) as value").
		Where(s.where(request, StatisticTypeActiveRentalCount)).
		Where("status = ?", types.RentalStatusActive).
		Where("end_at > ?", s.now())
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserSubscription{}).TableName()).
		Select("TO_CHAR(start_at, 'YYYY-MM-DD') as date, COUNT(DISTINCT user_id) as value").
		Where(s.where(request, StatisticTypeDailyNewSubscriptionCount)).
		Group("TO_CHAR(start_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailySubscriptionRevenue(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserSubscription{}).TableName()).
		Select("TO_CHAR(start_at, 'YYYY-MM-DD') as date, payment_method as label, sum(price) as value, count(*) as value2").
		Where(s.where(request, StatisticTypeDailySubscriptionRevenue)).
		Where("is_paid = ?", true).
		Group("TO_CHAR(start_at, 'YYYY-MM-DD')").
		Group("payment_method").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getActiveSubscriptionCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserSubscription{}).TableName()).
		Select("count(*) as value").
		Where(s.where(request, StatisticTypeActiveSubscriptionCount)).
		Where("status = ?", types.SubscriptionStatusActive).
		Where("end_at > ?", s.now())
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalRevenue(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
WITH revenue AS (
    SELECT DATE(start_at) as date, price FROM book_rental WHERE status != ?
    UNION ALL
    SELECT DATE(start_at) as date, price FROM user_subscription WHERE is_paid = true
),
min_max_dates AS (
    SELECT MIN(date) as min_date, MAX(date) as max_date FROM revenue
),
dates AS (
    SELECT generate_series(min_date, max_date, '1 day'::interval)::date as date FROM min_max_dates
),
daily AS (
    SELECT d.date, COALESCE(SUM(r.price), 0) as value
    FROM dates d
    LEFT JOIN revenue r ON r.date = d.date
    GROUP BY d.date
)
SELECT TO_CHAR(d.date, 'YYYY-MM-DD') as date, SUM(s.value) as value
FROM daily d
LEFT JOIN daily s ON s.date <= d.date
GROUP BY d.date
ORDER BY d.date DESC
`, types.RentalStatusCancelled).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, request *StatisticRequest, dataItem *StatisticDataItem) ([]StatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyRentalCount:
		return s.getDailyRentalCount(ctx, request)
	case StatisticTypeDailyRentalRevenue:
		return s.getDailyRentalRevenue(ctx, request)
	case StatisticTypeActiveRentalCount:
		return s.getActiveRentalCount(ctx, request)
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, request)
	case StatisticTypeDailySubscriptionRevenue:
		return s.getDailySubscriptionRevenue(ctx, request)
	case StatisticTypeActiveSubscriptionCount:
		return s.getActiveSubscriptionCount(ctx, request)
	case StatisticTypeTotalRevenue:
		return s.getTotalRevenue(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// applicable reports whether every restricted filter in the request applies
// to typ. Items with an inapplicable filter are answered with no data.
func (f *StatisticRequest) applicable(typ StatisticType) bool {
	for _, filter := range f.Filters {
		ft := StatisticFilterType(filter.Field)
		if lo.Contains(filterTypes, ft) && !lo.Contains(validFilters[ft], typ) {
			return false
		}
	}
	return true
}

func (s *Service) GetStatistic(ctx context.Context, request *StatisticRequest) (*StatisticResponse, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []StatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *StatisticDataItem) {
			defer wg.Done()
			if !request.applicable(di.ID) {
				resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: nil}
				return
			}
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]StatisticResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			if entry != nil {
				results[entry.Key] = entry.Value
			}
		}
	}
	return &StatisticResponse{DataItems: results}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
