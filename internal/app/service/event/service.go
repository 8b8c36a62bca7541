// Package event manages the lifecycle of events: paid creation, owner
// updates, plan upgrades and the guest-facing share code view.
package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/discount"
	"github.com/Talha654/overlayPix-backend/internal/app/service/expiry"
	"github.com/Talha654/overlayPix-backend/internal/app/service/payment"
	"github.com/Talha654/overlayPix-backend/internal/app/service/pricing"
	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/cache"
	"github.com/Talha654/overlayPix-backend/internal/platform/qrcode"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
	"github.com/Talha654/overlayPix-backend/pkg/tool"
	"github.com/Talha654/overlayPix-backend/pkg/types"
	"github.com/Talha654/overlayPix-backend/pkg/validate"
)

const (
	defaultTypography = "Inter"
	defaultFontStyle  = "normal"
	defaultFontSize   = 16

	submissionGuardTTL = 30 * time.Second
)

type Service struct {
	db       *gorm.DB
	log      *zap.SugaredLogger
	calc     *pricing.Calculator
	policy   *pricing.PriceTrustPolicy
	discount *discount.Service
	payments payment.Manager
	store    storage.Store
	qr       *qrcode.Generator
	guard    cache.Guard
	audit    audit.Recorder
	expiry   *expiry.Service
	now      func() time.Time
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.SugaredLogger
	Calc     *pricing.Calculator
	Policy   *pricing.PriceTrustPolicy
	Discount *discount.Service
	Payments payment.Manager
	Store    storage.Store
	QR       *qrcode.Generator
	Guard    cache.Guard
	Audit    audit.Recorder
	Expiry   *expiry.Service
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log,
		calc:     p.Calc,
		policy:   p.Policy,
		discount: p.Discount,
		payments: p.Payments,
		store:    p.Store,
		qr:       p.QR,
		guard:    p.Guard,
		audit:    p.Audit,
		expiry:   p.Expiry,
		now:      time.Now,
	}
}

// priced is the outcome of plan resolution and price reconciliation.
type priced struct {
	plan          *models.Plan
	originalCents int64
	serverCents   int64
	finalCents    int64
	discount      *models.DiscountCode
	discountCents int64
	reason        pricing.ChargeReason
}

func (s *Service) validateCreate(req *CreateEventRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if req.EventDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"eventDate": "is required"})
	}
	if _, err := temporal.LoadZone(req.TimeZone); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"timeZone": "must be a valid IANA time zone"})
	}
	if req.FinalPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"finalPrice": "must be at least 0"})
	}
	if req.Payment != nil {
		if _, ok := types.ParsePaymentProvider(string(req.Payment.Provider())); !ok {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment method: %s", req.Payment.Method)
		}
	}
	if req.FinalPrice.IsPositive() && req.Payment.Ref() == "" {
		field := map[types.PaymentProvider]string{
			types.PaymentProviderStripe:     "payment.paymentIntentId",
			types.PaymentProviderPayPal:     "payment.paypalOrderId",
			types.PaymentProviderRevenueCat: "payment.productId",
		}[req.Payment.Provider()]
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: "is required"})
	}
	if req.Typography == "" {
		req.Typography = defaultTypography
	}
	if req.FontStyle == "" {
		req.FontStyle = defaultFontStyle
	}
	if req.FontSize == 0 {
		req.FontSize = defaultFontSize
	}
	return nil
}

// price resolves the plan and reconciles the client's final price with it.
func (s *Service) price(ctx context.Context, req *CreateEventRequest) (*priced, error) {
	provider := req.Payment.Provider()
	clientCents := pricing.ToCents(req.FinalPrice)
	code := strings.TrimSpace(string(req.DiscountCode))

	if provider == types.PaymentProviderRevenueCat {
		return &priced{
			plan:          s.policy.PhantomPlan(req.PlanID, req.CustomPlan, clientCents),
			originalCents: clientCents,
			serverCents:   clientCents,
			finalCents:    clientCents,
			reason:        pricing.ChargeReasonMatched,
		}, nil
	}

	var plan models.Plan
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", req.PlanID, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "plan %s not found", req.PlanID)
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	p := &priced{plan: &plan, originalCents: s.calc.ComputePrice(&plan, req.CustomPlan)}
	p.serverCents = p.originalCents
	if code != "" {
		v, err := s.discount.Validate(ctx, code)
		if err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, v.Reason)
		}
		p.discount = v.Code
		p.discountCents = discount.ComputeDiscount(v.Code, p.originalCents)
		p.serverCents -= p.discountCents
	}
	decision, err := s.policy.ResolveCharge(provider, p.serverCents, clientCents, code != "")
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("event price mismatch", "plan_id", plan.ID, "server_cents", p.serverCents,
			"client_cents", clientCents, "discount_code", code)
		return nil, err
	}
	p.finalCents = decision.AmountCents
	p.reason = decision.Reason
	return p, nil
}

// Create validates, prices and pays for a new event and persists it with its
// side-effect rows in one transaction.
func (s *Service) Create(ctx context.Context, actor types.Actor, in CreateEventInput) (*models.Event, error) {
	defer metrics.ObserveBusinessProcess("event", "create", time.Now())
	req := in.Request
	if req == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No event data provided")
	}
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}
	lg := logctx.FromCtx(ctx, s.log)

	var existingOverlay *models.Overlay
	if req.Overlay != "" && in.Overlay.Empty() {
		ov, err := s.lookupOverlay(ctx, req.Overlay)
		if err != nil {
			return nil, err
		}
		existingOverlay = ov
	}

	pr, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}
	provider := req.Payment.Provider()
	if err := pricing.ValidateCustomPlan(pr.plan, req.CustomPlan, s.policy.BypassPlanFloors(provider)); err != nil {
		return nil, err
	}
	window, err := temporal.ComposeWindow(req.EventDate.Time, req.EventStartTime, req.EventEndTime, req.TimeZone)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	ref := req.Payment.Ref()
	if ref != "" {
		release, err := s.guard.Acquire(ctx, "event-create:"+string(provider)+":"+ref, submissionGuardTTL)
		if err != nil {
			if errors.Is(err, cache.ErrInFlight) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "An event for this payment is already being created")
			}
			return nil, fmt.Errorf("failed to acquire submission guard: %w", err)
		}
		defer release()
	}

	var verified *payment.VerifiedPayment
	if ref != "" {
		verified, err = s.payments.VerifyForEvent(ctx, &payment.EventPaymentCheck{
			Provider:    provider,
			Ref:         ref,
			ProductID:   req.Payment.ProductID,
			UserID:      actor.ID,
			ServerCents: pr.serverCents,
			HasDiscount: pr.discount != nil,
		})
		if err != nil {
			return nil, err
		}
	}

	// the event records what was charged, which may exceed a trusted client
	// price raised to the provider minimum
	finalCents, discountCents := pr.finalCents, pr.discountCents
	if verified != nil && verified.Payment != nil && !verified.IsFree {
		finalCents = verified.AmountCents
	}
	if pr.discount == nil && pr.reason == pricing.ChargeReasonClientTrusted {
		discountCents = max(0, pr.originalCents-finalCents)
	}

	now := s.now().UTC()
	ev := &models.Event{
		ID:                  tool.GenerateUUIDV7(),
		UserID:              actor.ID,
		Name:                strings.TrimSpace(req.Name),
		Type:                req.Type,
		EventDate:           req.EventDate.UTC(),
		EventStartTime:      req.EventStartTime,
		EventEndTime:        req.EventEndTime,
		TimeZone:            req.TimeZone,
		EventEndDate:        &window.End,
		BrandColor:          req.BrandColor,
		Typography:          req.Typography,
		FontStyle:           req.FontStyle,
		FontSize:            req.FontSize,
		EventPictureURL:     req.EventPictureURL,
		OverlayName:         req.OverlayName,
		PlanID:              req.PlanID,
		BasePlanName:        pr.plan.Name,
		CustomPlan:          req.CustomPlan,
		FinalPriceCents:     finalCents,
		OriginalPriceCents:  pr.originalCents,
		DiscountAmountCents: discountCents,
		Status:              models.EventStatusActive,
		PaymentMethod:       provider,
		PaymentStatus:       models.PaymentStatusCompleted,
		IsFreePlan:          verified == nil || verified.IsFree,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if pr.discount != nil {
		ev.DiscountCode = pr.discount.Code
		ev.DiscountType = string(pr.discount.DiscountType)
	}
	if verified != nil {
		ev.PaymentRef = verified.Ref
		ev.PaymentStatus = verified.Status
		ev.RevenueCatTransactionID = verified.RevenueCatTransactionID
	}
	if existingOverlay != nil {
		ev.OverlayID, ev.OverlayURL = existingOverlay.ID, existingOverlay.URL
		if ev.OverlayName == "" {
			ev.OverlayName = existingOverlay.Name
		}
	}
	ev.ShareCode, err = tool.GenerateShareCode()
	if err != nil {
		return nil, err
	}

	up := &uploads{store: s.store}
	newOverlay, err := up.overlay(ctx, in.Overlay, req.OverlayName, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if newOverlay != nil {
		ev.OverlayID, ev.OverlayURL = newOverlay.ID, newOverlay.URL
	}
	banner, err := up.banner(ctx, in.Picture, ev.ID, actor.ID, now)
	if err != nil {
		up.cleanup(ctx, lg)
		return nil, err
	}
	if banner != nil {
		ev.EventPictureURL = banner.PhotoURL
	}
	qrURL, qrKey, err := s.qr.JoinQR(ctx, ev.ID, ev.ShareCode)
	if err != nil {
		up.cleanup(ctx, lg)
		return nil, fmt.Errorf("failed to generate qr code: %w", err)
	}
	up.keys = append(up.keys, qrKey)
	ev.QRCodeURL = qrURL

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newOverlay != nil {
			if err := tx.Create(newOverlay).Error; err != nil {
				return fmt.Errorf("failed to save overlay: %w", err)
			}
		}
		if banner != nil {
			if err := tx.Create(banner).Error; err != nil {
				return fmt.Errorf("failed to save event picture: %w", err)
			}
		}
		if err := tx.Create(ev).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) && ev.RevenueCatTransactionID != nil {
				return pkgerrors.Wrap(pkgerrors.CodeReplay, err, "Transaction already used")
			}
			return fmt.Errorf("failed to save event: %w", err)
		}
		if verified != nil && verified.Payment != nil {
			if err := s.payments.MarkUsedTx(tx, verified.Ref, ev.ID); err != nil {
				return err
			}
		}
		if pr.discount != nil {
			// redemption bookkeeping must not fail the event; the savepoint keeps tx usable
			err := tx.Transaction(func(sp *gorm.DB) error {
				_, err := s.discount.ApplyTx(sp, discount.ApplyRequest{
					Code:             pr.discount.Code,
					OrderAmountCents: pr.originalCents,
					EventID:          ev.ID,
					UserID:           actor.ID,
				})
				return err
			})
			if err != nil {
				lg.Warnw("failed to record discount usage", "event_id", ev.ID, "code", pr.discount.Code, "err", err)
			}
		}
		return nil
	})
	if err != nil {
		up.cleanup(ctx, lg)
		lg.Errorw("event creation failed", "user_id", actor.ID, "err", err)
		s.audit.Record(ctx, audit.Entry{
			Type:    models.AuditLogTypeEventCreate, Actor: actor, EventName: ev.Name, Status: models.AuditLogStatusError,
			Details: map[string]any{"error": err.Error(), "planId": req.PlanID},
		})
		return nil, err
	}

	lg.Infow("event created", "event_id", ev.ID, "user_id", actor.ID, "plan_id", ev.PlanID,
		"final_price_cents", ev.FinalPriceCents, "payment_method", provider, "free", ev.IsFreePlan)
	s.audit.Record(ctx, audit.Entry{
		Type:    models.AuditLogTypeEventCreate, Actor: actor, EventID: ev.ID, EventName: ev.Name,
		Details: map[string]any{"planId": ev.PlanID, "finalPriceCents": ev.FinalPriceCents, "shareCode": ev.ShareCode},
	})
	if !ev.IsFreePlan {
		s.audit.Record(ctx, audit.Entry{
			Type:    models.AuditLogTypePayment, Actor: actor, EventID: ev.ID, EventName: ev.Name,
			Details: map[string]any{"provider": provider, "ref": ev.PaymentRef, "amountCents": ev.FinalPriceCents},
		})
	}
	return ev, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
