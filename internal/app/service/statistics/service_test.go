package statistics

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/bookrental/pkg/types"
)

// sqlBuilder renders clause expressions with ? placeholders.
type sqlBuilder struct {
	strings.Builder
	vars []any
}

func (b *sqlBuilder) WriteQuoted(field any) {
	switch f := field.(type) {
	case clause.Column:
		fmt.Fprintf(b, "%q", f.Name)
	default:
		fmt.Fprintf(b, "%q", fmt.Sprint(f))
	}
}

func (b *sqlBuilder) AddVar(w clause.Writer, vars ...any) {
	for i, v := range vars {
		if i > 0 {
			_, _ = w.WriteString(",")
		}
		_, _ = w.WriteString("?")
		b.vars = append(b.vars, v)
	}
}

func (b *sqlBuilder) AddError(err error) error { return err }

func render(e clause.Expression) (string, []any) {
	b := &sqlBuilder{}
	e.Build(b)
	return b.String(), b.vars
}

func newRequest(filters ...*types.CommonFilter) *StatisticRequest {
	return &StatisticRequest{Filters: filters}
}

func TestGetFilters(t *testing.T) {
	planFilter := &types.CommonFilter{Field: "plan_id", Operator: types.CommonFilterOperatorEq, Values: []any{"p1"}}
	bookFilter := &types.CommonFilter{Field: "book_id", Operator: types.CommonFilterOperatorEq, Values: []any{"b1"}}
	paidFilter := &types.CommonFilter{Field: "is_paid", Operator: types.CommonFilterOperatorEq, Values: []any{true}}
	req := newRequest(planFilter, bookFilter, paidFilter)

	got := req.GetFilters(StatisticTypeDailyRentalCount)
	assert.Equal(t, []*types.CommonFilter{planFilter, bookFilter}, got.Filters)

	got = req.GetFilters(StatisticTypeDailySubscriptionRevenue)
	assert.Equal(t, []*types.CommonFilter{planFilter, paidFilter}, got.Filters)

	var empty *StatisticRequest
	assert.Nil(t, empty.GetFilters(StatisticTypeTotalRevenue))
}

func TestBuild(t *testing.T) {
	sql, vars := render(newRequest())
	assert.Equal(t, "1=1", sql)
	assert.Empty(t, vars)

	sql, vars = render(newRequest(
		&types.CommonFilter{Field: "plan_id", Operator: types.CommonFilterOperatorEq, Values: []any{"p1"}},
		&types.CommonFilter{Field: "is_paid", Operator: types.CommonFilterOperatorEq, Values: []any{"true"}},
	))
	assert.Equal(t, `"plan_id" = ? AND is_paid = true`, sql)
	assert.Equal(t, []any{"p1"}, vars)

	sql, _ = render(newRequest(&types.CommonFilter{Field: "is_paid", Operator: types.CommonFilterOperatorEq, Values: []any{false}}))
	assert.Equal(t, "is_paid = false", sql)
}

func TestApplicable(t *testing.T) {
	req := newRequest(&types.CommonFilter{Field: "book_id", Operator: types.CommonFilterOperatorEq, Values: []any{"b1"}})
	assert.True(t, req.applicable(StatisticTypeDailyRentalRevenue))
	assert.False(t, req.applicable(StatisticTypeActiveSubscriptionCount))

	req = newRequest(&types.CommonFilter{Field: "start_at", Operator: types.CommonFilterOperatorGte, Values: []any{"2026-01-01"}})
	assert.True(t, req.applicable(StatisticTypeTotalRevenue))
}
