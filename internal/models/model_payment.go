package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/Talha654/overlayPix-backend/pkg/types"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment is keyed by the provider reference (PaymentIntent id, PayPal order id)
// or a synthesized free_* id.
type Payment struct {
	ID         string                         `gorm:"column:id;type:varchar(128);primary_key" json:"id"`
	Provider   types.PaymentProvider          `gorm:"column:provider;type:varchar(16);not null" json:"provider"`
	UserID     string                         `gorm:"column:user_id;type:varchar(128);not null;index:idx_payment_user_created,priority:1" json:"userId"`
	PlanID     string                         `gorm:"column:plan_id;type:varchar(128)" json:"planId"`
	CustomPlan datatypes.JSONType[CustomPlan] `gorm:"column:custom_plan;type:jsonb" json:"customPlan"`
	Email      string                         `gorm:"column:email;type:varchar(256)" json:"email,omitempty"`

	TotalAmountCents int64  `gorm:"column:total_amount_cents;not null" json:"totalAmountCents"`
	Currency         string `gorm:"column:currency;type:varchar(8);not null" json:"currency"`

	Status PaymentStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	// ProviderStatus is the raw provider string, kept for debugging only.
	ProviderStatus string `gorm:"column:provider_status;type:varchar(64)" json:"providerStatus"`

	IsFreePlan   bool   `gorm:"column:is_free_plan;not null;default:false" json:"isFreePlan"`
	IsUpgrade    bool   `gorm:"column:is_upgrade;not null;default:false" json:"isUpgrade"`
	CaptureID    string `gorm:"column:capture_id;type:varchar(128)" json:"captureId,omitempty"`
	ClientSecret string `gorm:"column:client_secret;type:varchar(256)" json:"-"`

	DiscountCode        string `gorm:"column:discount_code;type:varchar(64)" json:"discountCode,omitempty"`
	OriginalAmountCents int64  `gorm:"column:original_amount_cents;not null;default:0" json:"originalAmountCents"`
	DiscountAmountCents int64  `gorm:"column:discount_amount_cents;not null;default:0" json:"discountAmountCents"`

	EventID            string `gorm:"column:event_id;type:varchar(64)" json:"eventId,omitempty"`
	ExistingPriceCents int64  `gorm:"column:existing_price_cents;not null;default:0" json:"existingPriceCents"`
	NewPlanPriceCents  int64  `gorm:"column:new_plan_price_cents;not null;default:0" json:"newPlanPriceCents"`
	UpgradeDeltaCents  int64  `gorm:"column:upgrade_delta_cents;not null;default:0" json:"upgradeDeltaCents"`

	UsedByEventID *string `gorm:"column:used_by_event_id;type:varchar(64)" json:"usedByEventId,omitempty"`

	RefundID     string     `gorm:"column:refund_id;type:varchar(128)" json:"refundId,omitempty"`
	RefundReason string     `gorm:"column:refund_reason;type:varchar(256)" json:"refundReason,omitempty"`
	RefundedAt   *time.Time `gorm:"column:refunded_at" json:"refundedAt,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_payment_user_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Payment) TableName() string {
	return "payment"
}

func (p *Payment) IsSettled() bool {
	return p != nil && (p.Status == PaymentStatusCompleted || p.IsFreePlan)
}
