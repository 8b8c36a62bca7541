package pricing

import (
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/datatypes"

	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/pkg/config"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

type ChargeReason string

const (
	ChargeReasonMatched         ChargeReason = "matched"
	ChargeReasonClientTrusted   ChargeReason = "client_trusted"
	ChargeReasonWithinTolerance ChargeReason = "within_tolerance"
)

// ChargeDecision is the amount to charge and why it was chosen.
type ChargeDecision struct {
	AmountCents int64        `json:"amountCents"`
	ServerCents int64        `json:"serverCents"`
	ClientCents int64        `json:"clientCents"`
	Reason      ChargeReason `json:"reason"`
}

// PriceTrustPolicy holds every relaxed price-validation rule in one place.
type PriceTrustPolicy struct {
	// TrustClientPriceWithoutDiscount charges the client price when it differs
	// from the server price and no discount code is involved.
	TrustClientPriceWithoutDiscount bool
	// TrustSubscriptionProviders prices store purchases from the client and
	// skips plan floors for them.
	TrustSubscriptionProviders bool
	// TrustClientUpgradePrice charges the client-computed upgrade delta.
	TrustClientUpgradePrice bool
	ToleranceCents          map[types.PaymentProvider]int64
	MinimumChargeCents      int64
}

func NewPriceTrustPolicy(cfg *config.Config) *PriceTrustPolicy {
	tol := make(map[types.PaymentProvider]int64, len(cfg.Pricing.ToleranceCents))
	for k, v := range cfg.Pricing.ToleranceCents {
		tol[types.PaymentProvider(k)] = v
	}
	return &PriceTrustPolicy{
		TrustClientPriceWithoutDiscount: cfg.Pricing.TrustClientPriceWithoutDiscount,
		TrustSubscriptionProviders:      cfg.Pricing.TrustSubscriptionProviders,
		TrustClientUpgradePrice:         cfg.Pricing.TrustClientUpgradePrice,
		ToleranceCents:                  tol,
		MinimumChargeCents:              cfg.Pricing.MinimumChargeCents,
	}
}

func (p *PriceTrustPolicy) Tolerance(provider types.PaymentProvider) int64 {
	if p == nil {
		return 0
	}
	return p.ToleranceCents[provider]
}

// ResolveCharge reconciles the server price with the client-declared one.
func (p *PriceTrustPolicy) ResolveCharge(provider types.PaymentProvider, serverCents, clientCents int64, hasDiscount bool) (ChargeDecision, error) {
	d := ChargeDecision{AmountCents: serverCents, ServerCents: serverCents, ClientCents: clientCents, Reason: ChargeReasonMatched}
	if serverCents == clientCents {
		return d, nil
	}
	if !hasDiscount && p.TrustClientPriceWithoutDiscount {
		d.AmountCents = clientCents
		d.Reason = ChargeReasonClientTrusted
		return d, nil
	}
	diff := serverCents - clientCents
	if diff < 0 {
		diff = -diff
	}
	if diff <= p.Tolerance(provider) {
		d.Reason = ChargeReasonWithinTolerance
		return d, nil
	}
	return d, pkgerrors.New(pkgerrors.CodePriceIntegrity, "Price mismatch. Please refresh and try again.").WithDetails(map[string]any{
		"clientPrice": clientCents,
		"serverPrice": serverCents,
		"difference":  diff,
	})
}

// ResolvePaidAmount applies ResolveCharge to an amount already stored on a payment.
func (p *PriceTrustPolicy) ResolvePaidAmount(provider types.PaymentProvider, serverCents, paidCents int64, hasDiscount bool) (ChargeDecision, error) {
	return p.ResolveCharge(provider, serverCents, paidCents, hasDiscount)
}

// ClampMinimum raises a non-zero charge to the provider minimum.
func (p *PriceTrustPolicy) ClampMinimum(cents int64) int64 {
	if cents <= 0 {
		return 0
	}
	return max(cents, p.MinimumChargeCents)
}

// BypassPlanFloors reports whether custom plans paid through provider skip
// the base plan floors and storage option check.
func (p *PriceTrustPolicy) BypassPlanFloors(provider types.PaymentProvider) bool {
	return p.TrustSubscriptionProviders && provider.IsSubscriptionProvider()
}

// PhantomPlan builds a zero-overage plan priced at clientCents for store purchases.
func (p *PriceTrustPolicy) PhantomPlan(productID string, custom models.CustomPlan, clientCents int64) *models.Plan {
	return &models.Plan{
		ID:                 productID,
		Name:               productID,
		Price:              FromCents(clientCents),
		GuestLimit:         custom.GuestLimit,
		PhotoPool:          custom.PhotoPool,
		DefaultStorageDays: custom.StorageDays,
		StorageOptions:     datatypes.NewJSONType([]models.StorageOption{{Days: custom.StorageDays}}),
		Permissions:        custom.Permissions,
		IsActive:           true,
	}
}

// UpgradeCharge picks the upgrade delta to charge. validated is false when the
// client figure was used.
func (p *PriceTrustPolicy) UpgradeCharge(serverDelta, clientDelta int64) (charge int64, validated bool) {
	if p.TrustClientUpgradePrice {
		return clientDelta, false
	}
	return serverDelta, true
}

// ValidateCustomPlan checks custom against its hard bounds and, unless
// bypassFloors, against plan. Every violation is reported.
func ValidateCustomPlan(plan *models.Plan, custom models.CustomPlan, bypassFloors bool) error {
	var err error
	if custom.GuestLimit < 1 || custom.GuestLimit > 10000 {
		err = multierr.Append(err, fmt.Errorf("guestLimit must be between 1 and 10000"))
	}
	if custom.PhotoPool < 1 || custom.PhotoPool > 100000 {
		err = multierr.Append(err, fmt.Errorf("photoPool must be between 1 and 100000"))
	}
	if custom.PhotosPerGuest != nil && (*custom.PhotosPerGuest < 1 || *custom.PhotosPerGuest > 1000) {
		err = multierr.Append(err, fmt.Errorf("photosPerGuest must be between 1 and 1000"))
	}
	if custom.StorageDays < 1 || custom.StorageDays > 3650 {
		err = multierr.Append(err, fmt.Errorf("storageDays must be between 1 and 3650"))
	}
	if !bypassFloors && plan != nil {
		if custom.GuestLimit < plan.GuestLimit {
			err = multierr.Append(err, fmt.Errorf("guestLimit cannot be below the plan limit of %d", plan.GuestLimit))
		}
		if custom.PhotoPool < plan.PhotoPool {
			err = multierr.Append(err, fmt.Errorf("photoPool cannot be below the plan pool of %d", plan.PhotoPool))
		}
		if _, ok := plan.StorageOption(custom.StorageDays); !ok {
			err = multierr.Append(err, fmt.Errorf("storageDays %d is not offered by plan %s", custom.StorageDays, plan.ID))
		}
	}
	if err == nil {
		return nil
	}
	violations := make([]string, 0)
	for _, e := range multierr.Errors(err) {
		violations = append(violations, e.Error())
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "Invalid custom plan").WithDetails(map[string]any{"violations": violations})
}
