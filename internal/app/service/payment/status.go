package payment

import (
	"strings"

	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

// ProviderStatus is a provider-specific payment state. Adapters produce one of
// StripeStatus, PayPalStatus, RevenueCatEntitlement or FreeStatus and nothing
// outside this package branches on the raw value.
type ProviderStatus interface {
	Provider() types.PaymentProvider
	Raw() string
	Normalize() models.PaymentStatus
}

// StripeStatus is a PaymentIntent status.
type StripeStatus string

func (s StripeStatus) Provider() types.PaymentProvider { return types.PaymentProviderStripe }
func (s StripeStatus) Raw() string                     { return string(s) }

func (s StripeStatus) Normalize() models.PaymentStatus {
	switch s {
	case "succeeded":
		return models.PaymentStatusCompleted
	case "canceled":
		return models.PaymentStatusFailed
	}
	// processing, requires_payment_method, requires_confirmation, requires_action, requires_capture
	return models.PaymentStatusPending
}

// PayPalStatus is an Orders v2 order status.
type PayPalStatus string

func (s PayPalStatus) Provider() types.PaymentProvider { return types.PaymentProviderPayPal }
func (s PayPalStatus) Raw() string                     { return string(s) }

func (s PayPalStatus) Normalize() models.PaymentStatus {
	switch strings.ToUpper(string(s)) {
	case "COMPLETED", "APPROVED":
		return models.PaymentStatusCompleted
	case "VOIDED":
		return models.PaymentStatusFailed
	}
	// CREATED, SAVED, PAYER_ACTION_REQUIRED
	return models.PaymentStatusPending
}

// RevenueCatEntitlement is the outcome of a subscriber lookup.
type RevenueCatEntitlement struct {
	Active bool
	Name   string
}

func (s RevenueCatEntitlement) Provider() types.PaymentProvider {
	return types.PaymentProviderRevenueCat
}

func (s RevenueCatEntitlement) Raw() string {
	if s.Active {
		return "active"
	}
	return "inactive"
}

func (s RevenueCatEntitlement) Normalize() models.PaymentStatus {
	if s.Active {
		return models.PaymentStatusCompleted
	}
	return models.PaymentStatusFailed
}

// FreeStatus marks zero-amount orders that never reach a provider.
type FreeStatus struct {
	For types.PaymentProvider
}

func (s FreeStatus) Provider() types.PaymentProvider { return s.For }
func (s FreeStatus) Raw() string                     { return "free" }
func (s FreeStatus) Normalize() models.PaymentStatus { return models.PaymentStatusCompleted }
