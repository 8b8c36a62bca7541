package payment

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/pricing"
	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

func (s *Service) CreateUpgradeIntent(ctx context.Context, req *UpgradeIntentRequest) (*IntentResult, error) {
	if req == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nil request")
	}
	provider, ok := types.ParsePaymentProvider(string(req.Provider))
	if !ok || provider.IsSubscriptionProvider() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment method: %s", req.Provider)
	}
	lg := logctx.FromCtx(ctx, s.log)

	var ev models.Event
	if err := s.db.WithContext(ctx).Where("id = ?", req.EventID).First(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if !ev.IsOwner(req.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the event owner can upgrade")
	}

	plan, err := s.loadActivePlan(ctx, req.NewPlanID)
	if err != nil {
		return nil, err
	}
	newTotal := s.calc.ComputePrice(plan, req.NewCustomPlan)
	delta := newTotal - ev.FinalPriceCents
	if delta < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "downgrades are not supported").WithDetails(map[string]any{
			"existingPrice": ev.FinalPriceCents,
			"newPlanPrice":  newTotal,
		})
	}

	clientDelta := pricing.ToCents(req.UpgradePrice)
	charge, validated := s.policy.UpgradeCharge(delta, clientDelta)
	if !validated {
		lg.Warnw("upgrade charged at client price", "event_id", ev.ID, "server_delta_cents", delta,
			"client_delta_cents", clientDelta, "price_validated", false)
	}

	payment := &models.Payment{
		Provider:            provider,
		UserID:              req.UserID,
		Email:               req.Email,
		PlanID:              plan.ID,
		CustomPlan:          datatypes.NewJSONType(req.NewCustomPlan),
		Currency:            s.currency[provider],
		IsUpgrade:           true,
		EventID:             ev.ID,
		ExistingPriceCents:  ev.FinalPriceCents,
		NewPlanPriceCents:   newTotal,
		UpgradeDeltaCents:   delta,
		OriginalAmountCents: delta,
	}
	res := &IntentResult{
		Provider:            provider,
		Currency:            payment.Currency,
		OriginalAmountCents: delta,
		UpgradeDeltaCents:   delta,
		PriceValidated:      validated,
	}

	if charge <= 0 {
		if err := s.persistFree(ctx, payment, provider, true); err != nil {
			return nil, err
		}
		res.ProviderRef, res.IsFree = payment.ID, true
		lg.Infow("free upgrade recorded", "ref", payment.ID, "event_id", ev.ID)
		return res, nil
	}

	amount := s.policy.ClampMinimum(charge)
	c, err := s.createCharge(ctx, provider, ChargeRequest{
		AmountCents:    amount,
		Currency:       payment.Currency,
		Email:          req.Email,
		Reference:      ev.ID,
		IdempotencyKey: req.IdempotencyKey,
		Metadata: map[string]string{
			"user_id":  req.UserID,
			"event_id": ev.ID,
			"plan_id":  plan.ID,
			"upgrade":  "true",
		},
	})
	if err != nil {
		return nil, err
	}
	payment.ID = c.Ref
	payment.TotalAmountCents = amount
	payment.Status = c.Status.Normalize()
	payment.ProviderStatus = c.Status.Raw()
	payment.ClientSecret = c.ClientSecret
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to save upgrade payment: %w", err)
	}
	metrics.IncPaymentOutcome(string(provider), string(payment.Status))
	lg.Infow("upgrade intent created", "provider", provider, "ref", c.Ref, "event_id", ev.ID, "amount_cents", amount)

	res.ProviderRef = c.Ref
	res.AmountCents = amount
	res.ClientSecret = c.ClientSecret
	res.ApprovalURL = c.ApprovalURL
	return res, nil
}
