// Package pricing computes event prices in minor units and holds the policy
// deciding how far client-declared prices are trusted.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Talha654/overlayPix-backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ToCents converts a major-unit amount to minor units, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromCents converts minor units to a major-unit amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

// Breakdown itemises a computed price in major units.
type Breakdown struct {
	Base         decimal.Decimal `json:"base"`
	GuestOverage decimal.Decimal `json:"guestOverage"`
	PhotoOverage decimal.Decimal `json:"photoOverage"`
	Storage      decimal.Decimal `json:"storage"`
	TotalCents   int64           `json:"totalCents"`
}

// ComputePrice returns the price of custom on top of plan, in cents.
func (c *Calculator) ComputePrice(plan *models.Plan, custom models.CustomPlan) int64 {
	return c.Breakdown(plan, custom).TotalCents
}

func (c *Calculator) Breakdown(plan *models.Plan, custom models.CustomPlan) Breakdown {
	if plan == nil {
		return Breakdown{}
	}
	extraGuests := max(0, custom.GuestLimit-plan.GuestLimit)
	extraPhotos := max(0, custom.PhotoPool-plan.PhotoPool)

	b := Breakdown{
		Base:         plan.Price,
		GuestOverage: plan.GuestLimitIncreasePricePerGuest.Mul(decimal.NewFromInt(int64(extraGuests))),
		PhotoOverage: plan.PhotoPoolLimitIncreasePricePerPhoto.Mul(decimal.NewFromInt(int64(extraPhotos))),
		Storage:      decimal.Zero,
	}
	if opt, ok := plan.StorageOption(custom.StorageDays); ok {
		b.Storage = opt.Price
	}
	b.TotalCents = ToCents(b.Base.Add(b.GuestOverage).Add(b.PhotoOverage).Add(b.Storage))
	return b
}
