package discount

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/db/dbtest"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/tool"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)
	s := NewService(db, zap.NewNop().Sugar())
	s.now = func() time.Time { return testNow }
	return s, db
}

func seedCode(t *testing.T, db *gorm.DB, code string, typ models.DiscountType, value string, mutate ...func(*models.DiscountCode)) *models.DiscountCode {
	t.Helper()
	dc := &models.DiscountCode{
		ID:            tool.GenerateUUIDV7(),
		Code:          code,
		DiscountType:  typ,
		DiscountValue: decimal.RequireFromString(value),
		StartDate:     testNow.Add(-24 * time.Hour),
		ExpireDate:    testNow.Add(24 * time.Hour),
		IsActive:      true,
	}
	for _, m := range mutate {
		m(dc)
	}
	require.NoError(t, db.Create(dc).Error)
	return dc
}

func TestValidate_Reasons(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	seedCode(t, db, "SUMMER10", models.DiscountTypePercentage, "10")
	seedCode(t, db, "OFF", models.DiscountTypeFixed, "5", func(d *models.DiscountCode) { d.IsActive = false })
	seedCode(t, db, "SOON", models.DiscountTypeFixed, "5", func(d *models.DiscountCode) { d.StartDate = testNow.Add(time.Hour) })
	seedCode(t, db, "OLD", models.DiscountTypeFixed, "5", func(d *models.DiscountCode) { d.ExpireDate = testNow })

	v, err := s.Validate(ctx, "  summer10 ")
	require.NoError(t, err)
	require.True(t, v.Valid)

	cases := map[string]string{
		"NOPE": ReasonInvalid,
		"":     ReasonInvalid,
		"OFF":  ReasonInactive,
		"SOON": ReasonNotStarted,
		"OLD":  ReasonExpired,
	}
	for code, reason := range cases {
		v, err := s.Validate(ctx, code)
		require.NoError(t, err)
		require.False(t, v.Valid, code)
		require.Equal(t, reason, v.Reason, code)
	}
}

func TestComputeDiscount(t *testing.T) {
	pct := &models.DiscountCode{DiscountType: models.DiscountTypePercentage, DiscountValue: decimal.RequireFromString("10")}
	require.Equal(t, int64(300), ComputeDiscount(pct, 2999))

	fixed := &models.DiscountCode{DiscountType: models.DiscountTypeFixed, DiscountValue: decimal.RequireFromString("5.50")}
	require.Equal(t, int64(550), ComputeDiscount(fixed, 2999))
	require.Equal(t, int64(400), ComputeDiscount(fixed, 400))

	over := &models.DiscountCode{DiscountType: models.DiscountTypePercentage, DiscountValue: decimal.RequireFromString("150")}
	require.Equal(t, int64(1000), ComputeDiscount(over, 1000))

	negative := &models.DiscountCode{DiscountType: models.DiscountTypeFixed, DiscountValue: decimal.RequireFromString("-3")}
	require.Equal(t, int64(0), ComputeDiscount(negative, 1000))
	require.Equal(t, int64(0), ComputeDiscount(nil, 1000))
}

func TestApply_RecordsUsageAndCounters(t *testing.T) {
	s, db := newTestService(t)
	dc := seedCode(t, db, "SAVE5", models.DiscountTypeFixed, "5")

	res, err := s.Apply(context.Background(), ApplyRequest{Code: "save5", OrderAmountCents: 2999, EventID: "ev-1", UserID: "u-1"})
	require.NoError(t, err)
	require.False(t, res.AlreadyApplied)
	require.Equal(t, int64(500), res.DiscountAmountCents)
	require.Equal(t, int64(2499), res.FinalAmountCents)

	var got models.DiscountCode
	require.NoError(t, db.First(&got, "id = ?", dc.ID).Error)
	require.Equal(t, 1, got.CurrentUses)
	require.Equal(t, int64(500), got.TotalDiscountGivenCents)
	require.NotNil(t, got.LastUsedAt)
}

func TestApply_SameEventRetryIsIdempotent(t *testing.T) {
	s, db := newTestService(t)
	dc := seedCode(t, db, "SAVE5", models.DiscountTypeFixed, "5")
	req := ApplyRequest{Code: "SAVE5", OrderAmountCents: 2999, EventID: "ev-1", UserID: "u-1"}

	first, err := s.Apply(context.Background(), req)
	require.NoError(t, err)
	second, err := s.Apply(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.AlreadyApplied)
	require.Equal(t, first.DiscountAmountCents, second.DiscountAmountCents)

	var uses int64
	require.NoError(t, db.Model(&models.DiscountCodeUsage{}).Where("discount_code_id = ?", dc.ID).Count(&uses).Error)
	require.Equal(t, int64(1), uses)

	var got models.DiscountCode
	require.NoError(t, db.First(&got, "id = ?", dc.ID).Error)
	require.Equal(t, 1, got.CurrentUses)
}

func TestApply_ConcurrentDistinctOrders(t *testing.T) {
	s, db := newTestService(t)
	dc := seedCode(t, db, "PARTY20", models.DiscountTypePercentage, "20")

	const n = 20
	var wg sync.WaitGroup
	results := make([]*ApplyResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := int64(1000 + i*37)
			results[i], errs[i] = s.Apply(context.Background(), ApplyRequest{
				Code:             "PARTY20",
				OrderAmountCents: order,
				EventID:          fmt.Sprintf("ev-%d", i),
				UserID:           "u-1",
			})
		}(i)
	}
	wg.Wait()

	var total int64
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.LessOrEqual(t, results[i].DiscountAmountCents, results[i].OrderAmountCents)
		total += results[i].DiscountAmountCents
	}

	var got models.DiscountCode
	require.NoError(t, db.First(&got, "id = ?", dc.ID).Error)
	require.Equal(t, n, got.CurrentUses)
	require.Equal(t, total, got.TotalDiscountGivenCents)

	var uses int64
	require.NoError(t, db.Model(&models.DiscountCodeUsage{}).Count(&uses).Error)
	require.Equal(t, int64(n), uses)
}

func TestApply_InvalidCode(t *testing.T) {
	s, db := newTestService(t)
	seedCode(t, db, "OLD", models.DiscountTypeFixed, "5", func(d *models.DiscountCode) { d.ExpireDate = testNow.Add(-time.Minute) })

	_, err := s.Apply(context.Background(), ApplyRequest{Code: "OLD", OrderAmountCents: 1000, EventID: "ev-1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, ReasonExpired, pkgerrors.As(err).Message())

	_, err = s.Apply(context.Background(), ApplyRequest{Code: "OLD", OrderAmountCents: 1000})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
