package payment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/discount"
	"github.com/Talha654/overlayPix-backend/internal/app/service/pricing"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/paypal"
	"github.com/Talha654/overlayPix-backend/internal/platform/revenuecat"
	"github.com/Talha654/overlayPix-backend/internal/platform/stripe"
	"github.com/Talha654/overlayPix-backend/pkg/config"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
	"github.com/Talha654/overlayPix-backend/pkg/tool"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

type Service struct {
	log      *zap.SugaredLogger
	db       *gorm.DB
	calc     *pricing.Calculator
	policy   *pricing.PriceTrustPolicy
	discount *discount.Service
	audit    audit.Recorder
	adapters map[types.PaymentProvider]chargeAdapter
	rc       revenuecat.Client
	timeout  time.Duration
	currency map[types.PaymentProvider]string
	now      func() time.Time
}

func NewService(
	cfg *config.Config,
	log *zap.SugaredLogger,
	db *gorm.DB,
	calc *pricing.Calculator,
	policy *pricing.PriceTrustPolicy,
	disc *discount.Service,
	rec audit.Recorder,
	sc stripe.Client,
	pc paypal.Client,
	rc revenuecat.Client,
) Manager {
	return newService(cfg, log, db, calc, policy, disc, rec, rc,
		&stripeAdapter{client: sc, currency: cfg.Stripe.Currency},
		&paypalAdapter{client: pc, currency: cfg.PayPal.Currency},
	)
}

func newService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, calc *pricing.Calculator, policy *pricing.PriceTrustPolicy,
	disc *discount.Service, rec audit.Recorder, rc revenuecat.Client, adapters ...chargeAdapter) *Service {
	timeout := cfg.Payment.ProviderTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &Service{
		log:      log,
		db:       db,
		calc:     calc,
		policy:   policy,
		discount: disc,
		audit:    rec,
		adapters: make(map[types.PaymentProvider]chargeAdapter, len(adapters)),
		rc:       rc,
		timeout:  timeout,
		currency: map[types.PaymentProvider]string{
			types.PaymentProviderStripe: strings.ToLower(cfg.Stripe.Currency),
			types.PaymentProviderPayPal: strings.ToUpper(cfg.PayPal.Currency),
		},
		now: time.Now,
	}
	for _, a := range adapters {
		s.adapters[a.Provider()] = a
	}
	return s
}

func (s *Service) adapter(provider types.PaymentProvider) (chargeAdapter, error) {
	if provider == "" {
		provider = types.PaymentProviderStripe
	}
	a, ok := s.adapters[provider]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment method: %s", provider)
	}
	return a, nil
}

// freeRefPrefix names synthesized ids: free, free_paypal, free_upgrade, free_paypal_upgrade.
func freeRefPrefix(provider types.PaymentProvider, upgrade bool) string {
	prefix := "free"
	if provider == types.PaymentProviderPayPal {
		prefix += "_paypal"
	}
	if upgrade {
		prefix += "_upgrade"
	}
	return prefix
}

// IsFreeRef reports whether ref was synthesized for a zero-amount order.
func IsFreeRef(ref string) bool {
	return strings.HasPrefix(ref, "free_")
}

func (s *Service) loadActivePlan(ctx context.Context, planID string) (*models.Plan, error) {
	var plan models.Plan
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", planID, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "plan %s not found", planID)
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	return &plan, nil
}

func (s *Service) loadPayment(ctx context.Context, ref string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).Where("id = ?", ref).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &p, nil
}

// providerError classifies a failed provider call. Timeouts and transport
// failures are retryable; the local record is left untouched.
func providerError(ctx context.Context, provider types.PaymentProvider, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("%s %s timed out", provider, op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("%s %s failed", provider, op))
}

func (s *Service) CreateIntent(ctx context.Context, req *CreateIntentRequest) (*IntentResult, error) {
	if req == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nil request")
	}
	provider, ok := types.ParsePaymentProvider(string(req.Provider))
	if !ok || provider.IsSubscriptionProvider() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment method: %s", req.Provider)
	}
	lg := logctx.FromCtx(ctx, s.log)

	plan, err := s.loadActivePlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if err := pricing.ValidateCustomPlan(plan, req.CustomPlan, false); err != nil {
		return nil, err
	}

	original := s.calc.ComputePrice(plan, req.CustomPlan)
	server := original
	var discountCents int64
	hasDiscount := strings.TrimSpace(req.DiscountCode) != ""
	if hasDiscount {
		v, err := s.discount.Validate(ctx, req.DiscountCode)
		if err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, v.Reason)
		}
		discountCents = discount.ComputeDiscount(v.Code, original)
		server = original - discountCents
	}

	decision, err := s.policy.ResolveCharge(provider, server, pricing.ToCents(req.FinalPrice), hasDiscount)
	if err != nil {
		lg.Warnw("price integrity check failed", "provider", provider, "server_cents", server, "client_cents", pricing.ToCents(req.FinalPrice), "discount", req.DiscountCode)
		return nil, err
	}
	amount := s.policy.ClampMinimum(decision.AmountCents)

	payment := &models.Payment{
		Provider:            provider,
		UserID:              req.UserID,
		Email:               req.Email,
		PlanID:              plan.ID,
		CustomPlan:          datatypes.NewJSONType(req.CustomPlan),
		TotalAmountCents:    amount,
		Currency:            s.currency[provider],
		DiscountCode:        discount.NormalizeCode(req.DiscountCode),
		OriginalAmountCents: original,
		DiscountAmountCents: discountCents,
	}
	res := &IntentResult{
		Provider:            provider,
		AmountCents:         amount,
		Currency:            payment.Currency,
		OriginalAmountCents: original,
		DiscountAmountCents: discountCents,
		PriceValidated:      decision.Reason != pricing.ChargeReasonClientTrusted,
	}

	if amount == 0 {
		if err := s.persistFree(ctx, payment, provider, false); err != nil {
			return nil, err
		}
		res.ProviderRef, res.IsFree = payment.ID, true
		lg.Infow("free order recorded", "ref", payment.ID, "plan_id", plan.ID, "user_id", req.UserID)
		return res, nil
	}

	charge, err := s.createCharge(ctx, provider, ChargeRequest{
		AmountCents:    amount,
		Currency:       payment.Currency,
		Email:          req.Email,
		Reference:      plan.ID,
		IdempotencyKey: req.IdempotencyKey,
		Metadata: map[string]string{
			"user_id":       req.UserID,
			"plan_id":       plan.ID,
			"discount_code": payment.DiscountCode,
		},
	})
	if err != nil {
		return nil, err
	}
	payment.ID = charge.Ref
	payment.Status = charge.Status.Normalize()
	payment.ProviderStatus = charge.Status.Raw()
	payment.ClientSecret = charge.ClientSecret
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	metrics.IncPaymentOutcome(string(provider), string(payment.Status))
	lg.Infow("payment intent created", "provider", provider, "ref", charge.Ref, "amount_cents", amount, "reason", decision.Reason)

	res.ProviderRef = charge.Ref
	res.ClientSecret = charge.ClientSecret
	res.ApprovalURL = charge.ApprovalURL
	return res, nil
}

func (s *Service) persistFree(ctx context.Context, p *models.Payment, provider types.PaymentProvider, upgrade bool) error {
	p.ID = tool.GenerateFreeRef(freeRefPrefix(provider, upgrade), s.now())
	p.TotalAmountCents = 0
	p.IsFreePlan = true
	status := FreeStatus{For: provider}
	p.Status = status.Normalize()
	p.ProviderStatus = status.Raw()
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to save free payment: %w", err)
	}
	metrics.IncPaymentOutcome(string(provider), "free")
	return nil
}

// createCharge calls the provider once under the provider timeout. Charge
// creation is never retried.
func (s *Service) createCharge(ctx context.Context, provider types.PaymentProvider, req ChargeRequest) (*Charge, error) {
	a, err := s.adapter(provider)
	if err != nil {
		return nil, err
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = tool.GenerateUUIDV7()
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	charge, err := a.Create(cctx, req)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("provider charge creation failed", "provider", provider, "err", err)
		return nil, providerError(cctx, provider, "create", err)
	}
	return charge, nil
}

func (s *Service) Confirm(ctx context.Context, req *ConfirmRequest) (*models.Payment, error) {
	if req == nil || req.Ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "providerRef is required")
	}
	lg := logctx.FromCtx(ctx, s.log)
	p, err := s.loadPayment(ctx, req.Ref)
	if err != nil {
		return nil, err
	}
	if p.UserID != req.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	if p.IsSettled() {
		return p, nil
	}
	if p.Status == models.PaymentStatusRefunded || p.Status == models.PaymentStatusFailed {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "payment is %s", p.Status)
	}

	a, err := s.adapter(p.Provider)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	charge, err := a.Capture(cctx, p.ID, req.PaymentMethodID)
	if err != nil {
		lg.Warnw("payment confirm failed, record left pending", "provider", p.Provider, "ref", p.ID, "err", err)
		return nil, providerError(cctx, p.Provider, "confirm", err)
	}

	p.Status = charge.Status.Normalize()
	p.ProviderStatus = charge.Status.Raw()
	if charge.CaptureID != "" {
		p.CaptureID = charge.CaptureID
	}
	if err := s.db.WithContext(ctx).Model(p).Select("status", "provider_status", "capture_id").Updates(p).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	metrics.IncPaymentOutcome(string(p.Provider), string(p.Status))
	lg.Infow("payment confirmed", "provider", p.Provider, "ref", p.ID, "status", p.Status)
	return p, nil
}

func (s *Service) GetStatus(ctx context.Context, provider types.PaymentProvider, ref string) (*StatusResult, error) {
	p, err := s.loadPayment(ctx, ref)
	if err != nil {
		return nil, err
	}
	if provider != "" && provider != p.Provider {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return s.syncStatus(ctx, p)
}

// syncStatus polls the provider (one retry) and stores a drifted status.
// Refunded payments keep their local status.
func (s *Service) syncStatus(ctx context.Context, p *models.Payment) (*StatusResult, error) {
	res := &StatusResult{Provider: p.Provider, Ref: p.ID, Status: p.Status, ProviderStatus: p.ProviderStatus, Payment: p}
	if p.IsFreePlan || p.Status == models.PaymentStatusRefunded {
		return res, nil
	}
	a, err := s.adapter(p.Provider)
	if err != nil {
		return nil, err
	}

	var charge *Charge
	for attempt := 0; attempt < 2; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		charge, err = a.Lookup(cctx, p.ID)
		cancel()
		if err == nil {
			break
		}
	}
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("provider status poll failed, using local status", "provider", p.Provider, "ref", p.ID, "err", err)
		res.Stale = true
		return res, nil
	}

	status, raw := charge.Status.Normalize(), charge.Status.Raw()
	changed := status != p.Status || raw != p.ProviderStatus || (charge.CaptureID != "" && charge.CaptureID != p.CaptureID)
	if changed {
		p.Status, p.ProviderStatus = status, raw
		if charge.CaptureID != "" {
			p.CaptureID = charge.CaptureID
		}
		if err := s.db.WithContext(ctx).Model(p).Select("status", "provider_status", "capture_id").Updates(p).Error; err != nil {
			return nil, fmt.Errorf("failed to update payment status: %w", err)
		}
	}
	res.Status, res.ProviderStatus = p.Status, p.ProviderStatus
	return res, nil
}

func (s *Service) Refund(ctx context.Context, req *RefundRequest) (*models.Payment, error) {
	if req == nil || req.Ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "providerRef is required")
	}
	p, err := s.loadPayment(ctx, req.Ref)
	if err != nil {
		return nil, err
	}
	if !req.Admin && p.UserID != req.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	if p.IsFreePlan || IsFreeRef(p.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "free orders cannot be refunded")
	}
	if p.Status != models.PaymentStatusCompleted {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "only completed payments can be refunded, payment is %s", p.Status)
	}
	a, err := s.adapter(p.Provider)
	if err != nil {
		return nil, err
	}
	if p.Provider == types.PaymentProviderPayPal && p.CaptureID == "" {
		if _, err := s.syncStatus(ctx, p); err != nil {
			return nil, err
		}
		if p.CaptureID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "paypal capture id is missing")
		}
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	refundID, err := a.Refund(cctx, p, req.Reason)
	if err != nil {
		return nil, providerError(cctx, p.Provider, "refund", err)
	}

	now := s.now().UTC()
	p.Status = models.PaymentStatusRefunded
	p.RefundID, p.RefundReason, p.RefundedAt = refundID, req.Reason, &now
	if err := s.db.WithContext(ctx).Model(p).Select("status", "refund_id", "refund_reason", "refunded_at").Updates(p).Error; err != nil {
		return nil, fmt.Errorf("failed to mark payment refunded: %w", err)
	}
	metrics.IncPaymentOutcome(string(p.Provider), string(models.PaymentStatusRefunded))
	logctx.FromCtx(ctx, s.log).Infow("payment refunded", "provider", p.Provider, "ref", p.ID, "refund_id", refundID)

	entry := audit.Entry{
		Type:  models.AuditLogTypePaymentRefund,
		Actor: types.Actor{ID: req.UserID, Admin: req.Admin},
		Details: map[string]any{
			"provider":    p.Provider,
			"ref":         p.ID,
			"refundId":    refundID,
			"reason":      req.Reason,
			"amountCents": p.TotalAmountCents,
			"ownerId":     p.UserID,
		},
	}
	if p.UsedByEventID != nil {
		entry.EventID = *p.UsedByEventID
	}
	s.audit.Record(ctx, entry)
	return p, nil
}

// filtersAnd is a helper to combine multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// paymentListColumns are the columns admin filters and sorting may reference.
var paymentListColumns = []string{
	"id", "provider", "user_id", "plan_id", "email", "status", "is_free_plan", "is_upgrade",
	"discount_code", "event_id", "used_by_event_id", "total_amount_cents", "currency", "created_at", "updated_at",
}

// ScanPayments implements paginated/admin listing with filters
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.Size > 100 {
		req.Size = 100
	}
	if req.From < 0 {
		req.From = 0
	}
	if err := types.ValidateFilters(req.Filters, paymentListColumns); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if req.SortBy != "" && !slices.Contains(paymentListColumns, req.SortBy) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "cannot sort by %q", req.SortBy)
	}

	tx := s.db.WithContext(ctx).Model(&models.Payment{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []*models.Payment
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}
