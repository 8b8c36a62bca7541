// Package payment reconciles client-declared prices with server prices and
// drives charges through Stripe, PayPal and RevenueCat.
package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

type CreateIntentRequest struct {
	Provider       types.PaymentProvider `json:"paymentMethod"`
	UserID         string                `json:"-"`
	Email          string                `json:"-"`
	PlanID         string                `json:"planId" validate:"required"`
	CustomPlan     models.CustomPlan     `json:"customPlan"`
	FinalPrice     decimal.Decimal       `json:"finalPrice"`
	DiscountCode   string                `json:"discountCode,omitempty"`
	IdempotencyKey string                `json:"-"`
}

type IntentResult struct {
	Provider            types.PaymentProvider `json:"provider"`
	ProviderRef         string                `json:"providerRef"`
	AmountCents         int64                 `json:"amountCents"`
	Currency            string                `json:"currency"`
	IsFree              bool                  `json:"isFree"`
	ClientSecret        string                `json:"clientSecret,omitempty"`
	ApprovalURL         string                `json:"approvalUrl,omitempty"`
	OriginalAmountCents int64                 `json:"originalAmountCents"`
	DiscountAmountCents int64                 `json:"discountAmountCents"`
	UpgradeDeltaCents   int64                 `json:"upgradeDeltaCents,omitempty"`
	PriceValidated      bool                  `json:"priceValidated"`
}

type ConfirmRequest struct {
	Provider        types.PaymentProvider `json:"paymentMethod"`
	Ref             string                `json:"providerRef" validate:"required"`
	UserID          string                `json:"-"`
	PaymentMethodID string                `json:"paymentMethodId,omitempty"`
}

type StatusResult struct {
	Provider       types.PaymentProvider `json:"provider"`
	Ref            string                `json:"providerRef"`
	Status         models.PaymentStatus  `json:"status"`
	ProviderStatus string                `json:"providerStatus"`
	// Stale is set when the provider could not be reached and the last
	// locally recorded status is returned.
	Stale   bool            `json:"stale"`
	Payment *models.Payment `json:"payment"`
}

type RefundRequest struct {
	Ref    string `json:"providerRef" validate:"required"`
	Reason string `json:"reason"`
	UserID string `json:"-"`
	Admin  bool   `json:"-"`
}

type SubscriptionVerification struct {
	Success            bool       `json:"success"`
	ProductID          string     `json:"productId"`
	ActiveEntitlements []string   `json:"activeEntitlements"`
	TransactionID      string     `json:"transactionId,omitempty"`
	PurchaseDate       *time.Time `json:"purchaseDate,omitempty"`
}

// EventPaymentCheck describes the payment backing a new event.
type EventPaymentCheck struct {
	Provider    types.PaymentProvider
	Ref         string
	ProductID   string
	UserID      string
	ServerCents int64
	HasDiscount bool
}

type VerifiedPayment struct {
	Provider                types.PaymentProvider
	Ref                     string
	Status                  models.PaymentStatus
	AmountCents             int64
	IsFree                  bool
	RevenueCatTransactionID *string
	// Payment is nil for RevenueCat purchases, which have no local record.
	Payment *models.Payment
}

type UpgradeIntentRequest struct {
	Provider       types.PaymentProvider `json:"paymentMethod"`
	UserID         string                `json:"-"`
	Email          string                `json:"-"`
	EventID        string                `json:"eventId" validate:"required"`
	NewPlanID      string                `json:"planId" validate:"required"`
	NewCustomPlan  models.CustomPlan     `json:"customPlan"`
	UpgradePrice   decimal.Decimal       `json:"upgradePrice"`
	IdempotencyKey string                `json:"-"`
}

// Manager is the payment reconciler used by handlers and the event service.
type Manager interface {
	CreateIntent(ctx context.Context, req *CreateIntentRequest) (*IntentResult, error)
	CreateUpgradeIntent(ctx context.Context, req *UpgradeIntentRequest) (*IntentResult, error)
	Confirm(ctx context.Context, req *ConfirmRequest) (*models.Payment, error)
	GetStatus(ctx context.Context, provider types.PaymentProvider, ref string) (*StatusResult, error)
	Refund(ctx context.Context, req *RefundRequest) (*models.Payment, error)
	VerifySubscription(ctx context.Context, userID, productID string) (*SubscriptionVerification, error)
	// VerifyForEvent checks that a payment may fund a new event.
	VerifyForEvent(ctx context.Context, check *EventPaymentCheck) (*VerifiedPayment, error)
	// VerifyUpgrade checks that ref is a settled upgrade payment of eventID.
	VerifyUpgrade(ctx context.Context, provider types.PaymentProvider, ref, userID, eventID string) (*models.Payment, error)
	// MarkUsedTx binds a payment to the event it funded, once.
	MarkUsedTx(tx *gorm.DB, ref, eventID string) error
	ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error)
}

type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}
