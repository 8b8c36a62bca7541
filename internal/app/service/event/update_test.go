package event

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Talha654/overlayPix-backend/internal/app/service/payment"
	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

func TestUpdate_RestrictedFieldsRejectWholePatch(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createFree(t)

	_, err := env.svc.Update(context.Background(), owner, ev.ID, UpdateInput{Patch: map[string]any{
		"name":       "Renamed Party",
		"planId":     "premium",
		"guestCount": 0,
	}})
	requireCode(t, err, pkgerrors.CodeForbidden)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, []string{"guestCount", "planId"}, details["restrictedFields"])

	var stored models.Event
	require.NoError(t, env.db.First(&stored, "id = ?", ev.ID).Error)
	require.Equal(t, "Garden Party", stored.Name)
}

func TestUpdate_Errors(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createFree(t)

	_, err := env.svc.Update(context.Background(), guest, ev.ID, UpdateInput{Patch: map[string]any{"name": "Hijacked"}})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = env.svc.Update(context.Background(), owner, "missing", UpdateInput{Patch: map[string]any{"name": "Whatever"}})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = env.svc.Update(context.Background(), owner, ev.ID, UpdateInput{Patch: map[string]any{}})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = env.svc.Update(context.Background(), owner, ev.ID, UpdateInput{Patch: map[string]any{"colour": "red"}})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = env.svc.Update(context.Background(), owner, ev.ID, UpdateInput{Patch: map[string]any{"fontSize": float64(100)}})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = env.svc.Update(context.Background(), owner, ev.ID, UpdateInput{Patch: map[string]any{"eventStartTime": "7pm"}})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdate_AppliesAllowedFields(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createFree(t)

	updated, err := env.svc.Update(context.Background(), owner, ev.ID, UpdateInput{Patch: map[string]any{
		"name":       "  Garden Party II ",
		"brandColor": "#ff0066",
		"fontSize":   float64(24),
	}})
	require.NoError(t, err)
	require.Equal(t, "Garden Party II", updated.Name)
	require.Equal(t, "#ff0066", updated.BrandColor)
	require.Equal(t, 24, updated.FontSize)
	require.Equal(t, ev.ShareCode, updated.ShareCode)
	require.Contains(t, auditTypes(t, env), models.AuditLogTypeEventUpdate)
}

func TestUpdate_TimeFieldsRecomputeEnd(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createFree(t)

	updated, err := env.svc.Update(context.Background(), owner, ev.ID, UpdateInput{Patch: map[string]any{"eventEndTime": "02:00"}})
	require.NoError(t, err)
	require.Equal(t, "02:00", updated.EventEndTime)
	require.Equal(t, time.Date(2026, 6, 11, 2, 0, 0, 0, time.UTC), updated.EventEndDate.UTC())

	updated, err = env.svc.Update(context.Background(), owner, ev.ID, UpdateInput{Patch: map[string]any{
		"eventDate": "2026-07-04",
		"timeZone":  "Europe/Berlin",
	}})
	require.NoError(t, err)
	// 02:00 CEST on July 5 is 00:00 UTC
	require.Equal(t, time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC), updated.EventEndDate.UTC())
}

func TestUpgrade_PaidUpgradeKeepsCounters(t *testing.T) {
	env := newTestEnv(t)
	ref := env.paidIntent(t, "29.99")
	req := baseRequest()
	req.FinalPrice = decimal.RequireFromString("29.99")
	req.Payment = &PaymentInfo{PaymentIntentID: ref}
	ev, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.Event{}).Where("id = ?", ev.ID).Updates(map[string]any{"guest_count": 7, "photo_count": 42}).Error)

	bigger := req.CustomPlan
	bigger.GuestLimit = 100
	intent, err := env.payments.CreateUpgradeIntent(context.Background(), &payment.UpgradeIntentRequest{
		Provider:      types.PaymentProviderStripe,
		UserID:        owner.ID,
		EventID:       ev.ID,
		NewPlanID:     "basic",
		NewCustomPlan: bigger,
		UpgradePrice:  decimal.RequireFromString("25.00"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2500), intent.AmountCents)
	env.stripe.succeed(intent.ProviderRef)

	upgraded, err := env.svc.Upgrade(context.Background(), owner, ev.ID, &UpgradeRequest{
		PlanID:     "basic",
		CustomPlan: bigger,
		FinalPrice: decimal.RequireFromString("54.99"),
		Payment:    &PaymentInfo{PaymentIntentID: intent.ProviderRef},
	})
	require.NoError(t, err)
	require.Equal(t, 100, upgraded.CustomPlan.GuestLimit)
	require.Equal(t, int64(5499), upgraded.FinalPriceCents)
	require.Equal(t, 7, upgraded.GuestCount)
	require.Equal(t, 42, upgraded.PhotoCount)

	var p models.Payment
	require.NoError(t, env.db.First(&p, "id = ?", intent.ProviderRef).Error)
	require.NotNil(t, p.UsedByEventID)

	// the upgrade payment is spent
	_, err = env.svc.Upgrade(context.Background(), owner, ev.ID, &UpgradeRequest{
		PlanID:  "basic", CustomPlan: bigger, FinalPrice: decimal.RequireFromString("54.99"),
		Payment: &PaymentInfo{PaymentIntentID: intent.ProviderRef},
	})
	requireCode(t, err, pkgerrors.CodeReplay)
	logged := auditTypes(t, env)
	require.Contains(t, logged, models.AuditLogTypeEventUpgrade)
	require.Contains(t, logged, models.AuditLogTypePaymentUpgrade)
}

func TestUpgrade_PriceIncreaseNeedsPayment(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createFree(t)

	bigger := baseRequest().CustomPlan
	bigger.GuestLimit = 80
	_, err := env.svc.Upgrade(context.Background(), owner, ev.ID, &UpgradeRequest{
		PlanID: "basic", CustomPlan: bigger, FinalPrice: decimal.RequireFromString("15.00"),
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	upgraded, err := env.svc.Upgrade(context.Background(), owner, ev.ID, &UpgradeRequest{
		PlanID: "basic", CustomPlan: bigger, FinalPrice: decimal.Zero,
	})
	require.NoError(t, err)
	require.Equal(t, 80, upgraded.CustomPlan.GuestLimit)
}

func TestUpgrade_RejectsLowerPrice(t *testing.T) {
	env := newTestEnv(t)
	ref := env.paidIntent(t, "29.99")
	req := baseRequest()
	req.FinalPrice = decimal.RequireFromString("29.99")
	req.Payment = &PaymentInfo{PaymentIntentID: ref}
	ev, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	require.NoError(t, err)

	smaller := req.CustomPlan
	smaller.GuestLimit = 5
	_, err = env.svc.Upgrade(context.Background(), owner, ev.ID, &UpgradeRequest{
		PlanID: "basic", CustomPlan: smaller, FinalPrice: decimal.Zero,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
	require.Equal(t, "downgrades are not supported", pkgerrors.As(err).Message())

	var stored models.Event
	require.NoError(t, env.db.First(&stored, "id = ?", ev.ID).Error)
	require.Equal(t, int64(2999), stored.FinalPriceCents)
	require.Equal(t, req.CustomPlan.GuestLimit, stored.CustomPlan.GuestLimit)

	// same price is still accepted without a payment
	same, err := env.svc.Upgrade(context.Background(), owner, ev.ID, &UpgradeRequest{
		PlanID: "basic", CustomPlan: req.CustomPlan, FinalPrice: decimal.RequireFromString("29.99"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2999), same.FinalPriceCents)
}

func TestUpgrade_EndedEventIsTemporal(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createFree(t)
	env.now = time.Date(2026, 6, 11, 0, 0, 0, 0, time.UTC)

	_, err := env.svc.Upgrade(context.Background(), owner, ev.ID, &UpgradeRequest{
		PlanID: "basic", CustomPlan: baseRequest().CustomPlan,
	})
	requireCode(t, err, pkgerrors.CodeTemporal)

	var stored models.Event
	require.NoError(t, env.db.First(&stored, "id = ?", ev.ID).Error)
	require.Equal(t, models.EventStatusExpired, stored.Status)
}

func TestUpgrade_NotOwner(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createFree(t)
	_, err := env.svc.Upgrade(context.Background(), guest, ev.ID, &UpgradeRequest{PlanID: "basic", CustomPlan: baseRequest().CustomPlan})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestGet_FlipsEndedEvent(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createFree(t)

	view, err := env.svc.Get(context.Background(), owner, ev.ID)
	require.NoError(t, err)
	require.True(t, view.IsActive)
	require.False(t, view.StorageExpired)
	require.NotNil(t, view.StorageExpiresAt)
	require.Equal(t, time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC), view.StorageExpiresAt.UTC())

	env.now = time.Date(2026, 6, 10, 23, 0, 1, 0, time.UTC)
	view, err = env.svc.Get(context.Background(), owner, ev.ID)
	require.NoError(t, err)
	require.False(t, view.IsActive)
	require.Equal(t, models.EventStatusExpired, view.Status)

	// expiry is one-way even if the clock moves back
	env.now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	view, err = env.svc.Get(context.Background(), owner, ev.ID)
	require.NoError(t, err)
	require.False(t, view.IsActive)

	_, err = env.svc.Get(context.Background(), guest, ev.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestGetByShareCode_RemainingPhotos(t *testing.T) {
	env := newTestEnv(t)
	req := baseRequest()
	perGuest := 5
	req.CustomPlan.PhotosPerGuest = &perGuest
	ev, err := env.svc.Create(context.Background(), owner, CreateEventInput{Request: req})
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.Event{}).Where("id = ?", ev.ID).Update("photo_count", 497).Error)

	view, err := env.svc.GetByShareCode(context.Background(), guest, ev.ShareCode)
	require.NoError(t, err)
	require.False(t, view.IsOwner)
	require.False(t, view.Consented)
	require.Equal(t, 3, *view.RemainingPhotos)

	require.NoError(t, env.db.Create(&models.Guest{
		ID: "g-row", EventID: ev.ID, GuestID: guest.ID, TermsAccepted: true, PhotosUploaded: 4,
	}).Error)
	view, err = env.svc.GetByShareCode(context.Background(), guest, ev.ShareCode)
	require.NoError(t, err)
	require.True(t, view.Consented)
	require.Equal(t, 1, *view.RemainingPhotos)

	view, err = env.svc.GetByShareCode(context.Background(), owner, ev.ShareCode)
	require.NoError(t, err)
	require.True(t, view.IsOwner)
	require.Nil(t, view.RemainingPhotos)

	_, err = env.svc.GetByShareCode(context.Background(), guest, "NOPE1234")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListOwned_Paginates(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.now = env.now.Add(time.Minute)
		env.createFree(t)
	}

	page, err := env.svc.ListOwned(context.Background(), owner, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)
	require.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))

	page, err = env.svc.ListOwned(context.Background(), owner, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Empty(t, page.NextCursor)

	page, err = env.svc.ListOwned(context.Background(), guest, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	_, err = env.svc.ListOwned(context.Background(), owner, pagination.Params{Cursor: "%%%"})
	requireCode(t, err, pkgerrors.CodeValidation)
}
