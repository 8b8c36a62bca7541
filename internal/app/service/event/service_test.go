package event

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/discount"
	"github.com/Talha654/overlayPix-backend/internal/app/service/expiry"
	"github.com/Talha654/overlayPix-backend/internal/app/service/payment"
	"github.com/Talha654/overlayPix-backend/internal/app/service/pricing"
	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/cache"
	"github.com/Talha654/overlayPix-backend/internal/platform/db/dbtest"
	"github.com/Talha654/overlayPix-backend/internal/platform/qrcode"
	"github.com/Talha654/overlayPix-backend/internal/platform/revenuecat"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	"github.com/Talha654/overlayPix-backend/pkg/config"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/tool"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

var (
	owner = types.Actor{ID: "owner-1", Email: "owner@example.com"}
	guest = types.Actor{ID: "guest-1", Email: "guest@example.com"}
)

type testEnv struct {
	svc      *Service
	db       *gorm.DB
	stripe   *fakeStripe
	rc       *fakeRevenueCat
	store    *storage.MemoryStore
	audit    *audit.Service
	payments payment.Manager
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		App:     config.AppConfig{PublicBaseURL: "https://pix.test"},
		Stripe:  config.StripeConfig{Currency: "usd"},
		PayPal:  config.PayPalConfig{Currency: "USD"},
		Payment: config.PaymentConfig{ProviderTimeout: time.Second},
		Pricing: config.PricingConfig{
			TrustClientPriceWithoutDiscount: true,
			TrustSubscriptionProviders:      true,
			TrustClientUpgradePrice:         true,
			MinimumChargeCents:              50,
		},
	}
	db := dbtest.New(t)
	log := zap.NewNop().Sugar()
	env := &testEnv{
		db:     db,
		stripe: newFakeStripe(),
		rc:     &fakeRevenueCat{},
		store:  storage.NewMemoryStore("https://cdn.test"),
		audit:  audit.New(db, log),
		now:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	calc, policy, disc := pricing.NewCalculator(), pricing.NewPriceTrustPolicy(cfg), discount.NewService(db, log)
	env.payments = payment.NewService(cfg, log, db, calc, policy, disc, env.audit, env.stripe, fakePayPal{}, env.rc)
	env.svc = NewService(Params{
		DB:       db,
		Log:      log,
		Calc:     calc,
		Policy:   policy,
		Discount: disc,
		Payments: env.payments,
		Store:    env.store,
		QR:       qrcode.New(cfg, env.store),
		Guard:    cache.NopGuard{},
		Audit:    env.audit,
		Expiry:   expiry.NewService(db, log, cfg),
	})
	env.svc.now = func() time.Time { return env.now }
	seedPlan(t, db)
	return env
}

func seedPlan(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.Plan{
		ID:                                  "basic",
		Name:                                "Basic",
		Price:                               decimal.RequireFromString("29.99"),
		GuestLimit:                          50,
		PhotoPool:                           500,
		GuestLimitIncreasePricePerGuest:     decimal.RequireFromString("0.50"),
		PhotoPoolLimitIncreasePricePerPhoto: decimal.RequireFromString("0.05"),
		DefaultStorageDays:                  30,
		StorageOptions:                      datatypes.NewJSONType([]models.StorageOption{{Days: 30, Price: decimal.Zero}}),
		Permissions:                         models.Permissions{CanViewGallery: true},
		IsActive:                            true,
	}).Error)
}

func seedDiscount(t *testing.T, db *gorm.DB, code string, percent int64) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.DiscountCode{
		ID:            tool.GenerateUUIDV7(),
		Code:          code,
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(percent),
		StartDate:     now.Add(-time.Hour),
		ExpireDate:    now.Add(24 * time.Hour),
		IsActive:      true,
	}).Error)
}

func baseRequest() *CreateEventRequest {
	return &CreateEventRequest{
		Name:           "Garden Party",
		Type:           "party",
		EventDate:      temporal.Instant{Time: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)},
		EventStartTime: "18:00",
		EventEndTime:   "23:00",
		TimeZone:       "UTC",
		PlanID:         "basic",
		CustomPlan:     models.CustomPlan{GuestLimit: 50, PhotoPool: 500, StorageDays: 30, Permissions: models.Permissions{CanViewGallery: true}},
		FinalPrice:     decimal.Zero,
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkgerrors.IsCode(err, code), "want %s, got %v", code, err)
}

// paidIntent creates a stripe intent for the basic plan and settles it.
func (e *testEnv) paidIntent(t *testing.T, price string) string {
	t.Helper()
	res, err := e.payments.CreateIntent(context.Background(), &payment.CreateIntentRequest{
		Provider:   types.PaymentProviderStripe,
		UserID:     owner.ID,
		PlanID:     "basic",
		CustomPlan: baseRequest().CustomPlan,
		FinalPrice: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	e.stripe.succeed(res.ProviderRef)
	return res.ProviderRef
}

func (e *testEnv) createFree(t *testing.T) *models.Event {
	t.Helper()
	ev, err := e.svc.Create(context.Background(), owner, CreateEventInput{Request: baseRequest()})
	require.NoError(t, err)
	return ev
}

func auditTypes(t *testing.T, e *testEnv) []models.AuditLogType {
	t.Helper()
	e.audit.Wait()
	var rows []models.AuditLog
	require.NoError(t, e.db.Order("created_at").Find(&rows).Error)
	out := make([]models.AuditLogType, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Type)
	}
	return out
}

func TestCreate_FreeEvent(t *testing.T) {
	env := newTestEnv(t)

	ev := env.createFree(t)
	require.True(t, ev.IsFreePlan)
	require.Equal(t, models.EventStatusActive, ev.Status)
	require.Equal(t, "Inter", ev.Typography)
	require.Equal(t, 16, ev.FontSize)
	require.Len(t, ev.ShareCode, tool.ShareCodeLength)
	require.NotEmpty(t, ev.QRCodeURL)
	require.Equal(t, 1, env.store.Len())
	require.Equal(t, time.Date(2026, 6, 10, 23, 0, 0, 0, time.UTC), ev.EventEndDate.UTC())

	var stored models.Event
	require.NoError(t, env.db.First(&stored, "id = ?", ev.ID).Error)
	require.Equal(t, ev.ShareCode, stored.ShareCode)
	require.Equal(t, 0, stored.GuestCount)
	require.Contains(t, auditTypes(t, env), models.AuditLogTypeEventCreate)
}

func TestCreate_OvernightWindow(t *testing.T) {
	env := newTestEnv(t)
	req := baseRequest()
	req.EventStartTime, req.EventEndTime, req.TimeZone = "22:00", "02:00", "America/New_York"

	ev, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	require.NoError(t, err)
	// 02:00 EDT on June 11 is 06:00 UTC
	require.Equal(t, time.Date(2026, 6, 11, 6, 0, 0, 0, time.UTC), ev.EventEndDate.UTC())
}

func TestCreate_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	cases := map[string]func(r *CreateEventRequest){
		"short name":       func(r *CreateEventRequest) { r.Name = "ab" },
		"bad clock":        func(r *CreateEventRequest) { r.EventStartTime = "25:00" },
		"bad zone":         func(r *CreateEventRequest) { r.TimeZone = "Mars/Base" },
		"missing date":     func(r *CreateEventRequest) { r.EventDate = temporal.Instant{} },
		"paid without ref": func(r *CreateEventRequest) { r.FinalPrice = decimal.RequireFromString("29.99") },
		"guests below plan": func(r *CreateEventRequest) {
			r.CustomPlan.GuestLimit = 10
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := baseRequest()
			mutate(req)
			_, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}
	require.Equal(t, 0, env.store.Len())
}

func TestCreate_UnknownPlan(t *testing.T) {
	env := newTestEnv(t)
	req := baseRequest()
	req.PlanID = "missing"
	_, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreate_PaidStripeMarksPaymentUsed(t *testing.T) {
	env := newTestEnv(t)
	ref := env.paidIntent(t, "29.99")

	req := baseRequest()
	req.FinalPrice = decimal.RequireFromString("29.99")
	req.Payment = &PaymentInfo{Method: types.PaymentProviderStripe, PaymentIntentID: ref}
	ev, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	require.NoError(t, err)
	require.False(t, ev.IsFreePlan)
	require.Equal(t, ref, ev.PaymentRef)
	require.Equal(t, int64(2999), ev.FinalPriceCents)

	var p models.Payment
	require.NoError(t, env.db.First(&p, "id = ?", ref).Error)
	require.NotNil(t, p.UsedByEventID)
	require.Equal(t, ev.ID, *p.UsedByEventID)

	// the same payment cannot fund a second event
	_, err = env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	requireCode(t, err, pkgerrors.CodeReplay)

	require.Contains(t, auditTypes(t, env), models.AuditLogTypePayment)
}

func TestCreate_TrustedClientPriceStoresChargedAmount(t *testing.T) {
	env := newTestEnv(t)
	ref := env.paidIntent(t, "0.30")

	var p models.Payment
	require.NoError(t, env.db.First(&p, "id = ?", ref).Error)
	require.Equal(t, int64(50), p.TotalAmountCents)

	req := baseRequest()
	req.FinalPrice = decimal.RequireFromString("0.30")
	req.Payment = &PaymentInfo{PaymentIntentID: ref}
	ev, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	require.NoError(t, err)
	require.Equal(t, int64(50), ev.FinalPriceCents)
	require.Equal(t, int64(2999), ev.OriginalPriceCents)
	require.Equal(t, int64(2949), ev.DiscountAmountCents)
	require.Empty(t, ev.DiscountCode)

	var stored models.Event
	require.NoError(t, env.db.First(&stored, "id = ?", ev.ID).Error)
	require.Equal(t, int64(50), stored.FinalPriceCents)
}

func TestCreate_TrustedFreePriceRecordsDiscount(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createFree(t)
	require.Zero(t, ev.FinalPriceCents)
	require.Equal(t, int64(2999), ev.DiscountAmountCents)
}

func TestCreate_UnsettledPaymentRejected(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.payments.CreateIntent(context.Background(), &payment.CreateIntentRequest{
		Provider:   types.PaymentProviderStripe, UserID: owner.ID, PlanID: "basic",
		CustomPlan: baseRequest().CustomPlan, FinalPrice: decimal.RequireFromString("29.99"),
	})
	require.NoError(t, err)

	req := baseRequest()
	req.FinalPrice = decimal.RequireFromString("29.99")
	req.Payment = &PaymentInfo{PaymentIntentID: res.ProviderRef}
	_, err = env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	requireCode(t, err, pkgerrors.CodeValidation)

	var n int64
	require.NoError(t, env.db.Model(&models.Event{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestCreate_OtherUsersPaymentForbidden(t *testing.T) {
	env := newTestEnv(t)
	ref := env.paidIntent(t, "29.99")

	req := baseRequest()
	req.FinalPrice = decimal.RequireFromString("29.99")
	req.Payment = &PaymentInfo{PaymentIntentID: ref}
	_, err := env.svc.Create(context.Background(), guest, CreateEventInput{Request: req})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestCreate_FullDiscountRecordsUsage(t *testing.T) {
	env := newTestEnv(t)
	seedDiscount(t, env.db, "FREE100", 100)

	req := baseRequest()
	req.DiscountCode = "free100"
	ev, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	require.NoError(t, err)
	require.True(t, ev.IsFreePlan)
	require.Equal(t, int64(2999), ev.DiscountAmountCents)
	require.Equal(t, int64(2999), ev.OriginalPriceCents)
	require.Zero(t, ev.FinalPriceCents)

	var dc models.DiscountCode
	require.NoError(t, env.db.First(&dc, "code = ?", "FREE100").Error)
	require.Equal(t, 1, dc.CurrentUses)
	require.Equal(t, int64(2999), dc.TotalDiscountGivenCents)
	var usages int64
	require.NoError(t, env.db.Model(&models.DiscountCodeUsage{}).Where("event_id = ?", ev.ID).Count(&usages).Error)
	require.Equal(t, int64(1), usages)
}

func TestCreate_DiscountPriceMismatch(t *testing.T) {
	env := newTestEnv(t)
	seedDiscount(t, env.db, "HALF", 50)

	req := baseRequest()
	req.DiscountCode = "HALF"
	req.FinalPrice = decimal.RequireFromString("29.99")
	req.Payment = &PaymentInfo{PaymentIntentID: "pi_unused"}
	_, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	requireCode(t, err, pkgerrors.CodePriceIntegrity)
}

func TestCreate_InvalidDiscount(t *testing.T) {
	env := newTestEnv(t)
	req := baseRequest()
	req.DiscountCode = "NOPE"
	_, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreate_RevenueCatTransactionReplay(t *testing.T) {
	env := newTestEnv(t)
	env.rc.sub = &revenuecat.Subscriber{
		NonSubscriptions: map[string][]revenuecat.NonSubscription{
			"pix_pro": {{ID: "ns_1", PurchaseDate: env.now, Store: "app_store", StoreTransactionIdentifier: "store_tx_1"}},
		},
	}

	req := baseRequest()
	req.PlanID = "pix_pro"
	req.CustomPlan = models.CustomPlan{GuestLimit: 5, PhotoPool: 20, StorageDays: 7}
	req.FinalPrice = decimal.RequireFromString("9.99")
	req.Payment = &PaymentInfo{Method: types.PaymentProviderRevenueCat, ProductID: "pix_pro"}

	ev, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	require.NoError(t, err)
	require.Equal(t, "store_tx_1", ev.PaymentRef)
	require.NotNil(t, ev.RevenueCatTransactionID)
	require.Equal(t, int64(999), ev.FinalPriceCents)

	_, err = env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	requireCode(t, err, pkgerrors.CodeReplay)
}

func TestCreate_WithUploads(t *testing.T) {
	env := newTestEnv(t)
	ev, err := env.svc.Create(context.Background(), owner, CreateEventInput{
		Request: baseRequest(),
		Overlay: &storage.Object{Filename: "frame.png", ContentType: "image/png", Body: []byte("png")},
		Picture: &storage.Object{Filename: "cover.png", ContentType: "image/png", Body: []byte("png")},
	})
	require.NoError(t, err)
	require.NotEmpty(t, ev.OverlayID)
	require.Contains(t, ev.OverlayURL, "useroverlays/"+ev.OverlayID+"/overlay-")
	require.Contains(t, ev.EventPictureURL, "events/"+ev.ID+"/banner-")
	require.Equal(t, 3, env.store.Len())

	var ov models.Overlay
	require.NoError(t, env.db.First(&ov, "id = ?", ev.OverlayID).Error)
	var banners int64
	require.NoError(t, env.db.Model(&models.Photo{}).Where("event_id = ? AND kind = ?", ev.ID, models.PhotoKindBanner).Count(&banners).Error)
	require.Equal(t, int64(1), banners)
}

func TestCreate_UnknownOverlay(t *testing.T) {
	env := newTestEnv(t)
	req := baseRequest()
	req.Overlay = "missing-overlay"
	_, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreate_StorageFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailPut = context.DeadlineExceeded
	_, err := env.svc.Create(context.Background(), owner, CreateEventInput{
		Request: baseRequest(),
		Overlay: &storage.Object{Filename: "frame.png", Body: []byte("png")},
	})
	require.Error(t, err)

	var n int64
	require.NoError(t, env.db.Model(&models.Event{}).Count(&n).Error)
	require.Zero(t, n)
}
