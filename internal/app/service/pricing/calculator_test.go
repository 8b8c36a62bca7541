package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Talha654/overlayPix-backend/internal/models"
)

func testPlan() *models.Plan {
	return &models.Plan{
		ID:                                  "standard",
		Name:                                "Standard",
		Price:                               decimal.RequireFromString("29.99"),
		GuestLimit:                          50,
		PhotoPool:                           500,
		GuestLimitIncreasePricePerGuest:     decimal.RequireFromString("0.25"),
		PhotoPoolLimitIncreasePricePerPhoto: decimal.RequireFromString("0.02"),
		DefaultStorageDays:                  30,
		StorageOptions: datatypes.NewJSONType([]models.StorageOption{
			{Days: 30, Price: decimal.Zero},
			{Days: 90, Price: decimal.RequireFromString("5.00")},
		}),
		IsActive: true,
	}
}

func TestComputePrice_AtPlanMinimumsHasNoOverage(t *testing.T) {
	c := NewCalculator()
	plan := testPlan()

	custom := models.CustomPlan{GuestLimit: 50, PhotoPool: 500, StorageDays: 30}
	require.Equal(t, int64(2999), c.ComputePrice(plan, custom))

	b := c.Breakdown(plan, custom)
	require.True(t, b.GuestOverage.IsZero())
	require.True(t, b.PhotoOverage.IsZero())
	require.True(t, b.Storage.IsZero())
}

func TestComputePrice_Overages(t *testing.T) {
	c := NewCalculator()
	plan := testPlan()

	// 29.99 + 10*0.25 + 100*0.02 + 5.00 = 39.49
	custom := models.CustomPlan{GuestLimit: 60, PhotoPool: 600, StorageDays: 90}
	require.Equal(t, int64(3949), c.ComputePrice(plan, custom))

	// below the floors never discounts
	custom = models.CustomPlan{GuestLimit: 10, PhotoPool: 10, StorageDays: 30}
	require.Equal(t, int64(2999), c.ComputePrice(plan, custom))

	// unknown storage option costs nothing
	custom = models.CustomPlan{GuestLimit: 50, PhotoPool: 500, StorageDays: 7}
	require.Equal(t, int64(2999), c.ComputePrice(plan, custom))
}

func TestComputePrice_Deterministic(t *testing.T) {
	c := NewCalculator()
	plan := testPlan()
	plan.PhotoPoolLimitIncreasePricePerPhoto = decimal.RequireFromString("0.015")

	custom := models.CustomPlan{GuestLimit: 77, PhotoPool: 1234, StorageDays: 90}
	first := c.ComputePrice(plan, custom)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, c.ComputePrice(plan, custom))
	}
	// 29.99 + 27*0.25 + 734*0.015 + 5 = 52.75
	require.Equal(t, int64(5275), first)
}

func TestToCents_RoundsHalfAwayFromZero(t *testing.T) {
	require.Equal(t, int64(101), ToCents(decimal.RequireFromString("1.005")))
	require.Equal(t, int64(100), ToCents(decimal.RequireFromString("1.004")))
	require.Equal(t, int64(-101), ToCents(decimal.RequireFromString("-1.005")))
	require.True(t, FromCents(1234).Equal(decimal.RequireFromString("12.34")))
}

func TestComputePrice_NilPlan(t *testing.T) {
	require.Equal(t, int64(0), NewCalculator().ComputePrice(nil, models.CustomPlan{}))
}
