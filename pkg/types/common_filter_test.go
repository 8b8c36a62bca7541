package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var paymentFields = []string{"user_id", "status", "created_at", "total_amount_cents"}

func TestCommonFilter_Validate(t *testing.T) {
	cases := []struct {
		name    string
		filter  CommonFilter
		wantErr bool
	}{
		{"eq", CommonFilter{Field: "status", Operator: CommonFilterOperatorEq, Values: []any{"completed"}}, false},
		{"unknown field", CommonFilter{Field: "status; drop table payment", Operator: CommonFilterOperatorEq, Values: []any{"x"}}, true},
		{"json path", CommonFilter{Field: "custom_plan->>'guestLimit'", Operator: CommonFilterOperatorEq, Values: []any{"1"}}, true},
		{"missing value", CommonFilter{Field: "status", Operator: CommonFilterOperatorEq}, true},
		{"range needs two", CommonFilter{Field: "total_amount_cents", Operator: CommonFilterOperatorRange, Values: []any{1}}, true},
		{"date range", CommonFilter{Field: "created_at", Operator: CommonFilterOperatorDateRange, Values: []any{"2026-01-01", "2026-01-31T00:00:00Z"}}, false},
		{"bad date", CommonFilter{Field: "created_at", Operator: CommonFilterOperatorDateRange, Values: []any{"yesterday", "2026-01-31"}}, true},
		{"unknown operator", CommonFilter{Field: "status", Operator: "like", Values: []any{"%"}}, true},
		{"or", CommonFilter{Operator: CommonFilterOperatorOr, Filters: []CommonFilter{
			{Field: "status", Operator: CommonFilterOperatorEq, Values: []any{"pending"}},
			{Field: "status", Operator: CommonFilterOperatorEq, Values: []any{"failed"}},
		}}, false},
		{"or with bad child", CommonFilter{Operator: CommonFilterOperatorOr, Filters: []CommonFilter{
			{Field: "email", Operator: CommonFilterOperatorEq, Values: []any{"x"}},
		}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.filter.Validate(paymentFields)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateFilters_SkipsNil(t *testing.T) {
	require.NoError(t, ValidateFilters([]*CommonFilter{nil}, paymentFields))
	require.Error(t, ValidateFilters([]*CommonFilter{{Field: "nope", Operator: CommonFilterOperatorEq, Values: []any{1}}}, paymentFields))
}
