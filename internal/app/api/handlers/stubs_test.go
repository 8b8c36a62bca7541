package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/discount"
	"github.com/Talha654/overlayPix-backend/internal/app/service/event"
	"github.com/Talha654/overlayPix-backend/internal/app/service/guest"
	"github.com/Talha654/overlayPix-backend/internal/app/service/payment"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

type stubEvents struct {
	err       error
	gotActor  types.Actor
	gotCreate event.CreateEventInput
	gotUpdate event.UpdateInput
	gotParams pagination.Params
}

func (s *stubEvents) Create(_ context.Context, actor types.Actor, in event.CreateEventInput) (*models.Event, error) {
	s.gotActor, s.gotCreate = actor, in
	if s.err != nil {
		return nil, s.err
	}
	return &models.Event{ID: "ev-1", UserID: actor.ID, Name: in.Request.Name}, nil
}

func (s *stubEvents) Get(_ context.Context, actor types.Actor, id string) (*event.View, error) {
	s.gotActor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &event.View{Event: &models.Event{ID: id}, IsActive: true}, nil
}

func (s *stubEvents) GetByShareCode(_ context.Context, _ types.Actor, code string) (*event.GuestView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &event.GuestView{EventID: "ev-1", Name: code}, nil
}

func (s *stubEvents) ListOwned(_ context.Context, _ types.Actor, params pagination.Params) (pagination.Page[*models.Event], error) {
	s.gotParams = params
	return pagination.Page[*models.Event]{Items: []*models.Event{{ID: "ev-1"}}}, s.err
}

func (s *stubEvents) Update(_ context.Context, _ types.Actor, id string, in event.UpdateInput) (*models.Event, error) {
	s.gotUpdate = in
	if s.err != nil {
		return nil, s.err
	}
	return &models.Event{ID: id}, nil
}

func (s *stubEvents) Upgrade(_ context.Context, _ types.Actor, id string, req *event.UpgradeRequest) (*models.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Event{ID: id, PlanID: req.PlanID}, nil
}

type stubGuests struct {
	err        error
	gotObj     *storage.Object
	gotOverlay string
	gotJoin    guest.JoinRequest
	gotParams  pagination.Params
	gotGuestID string
}

func (s *stubGuests) Join(_ context.Context, _ types.Actor, _ string, req guest.JoinRequest) (*guest.JoinResult, error) {
	s.gotJoin = req
	if s.err != nil {
		return nil, s.err
	}
	return &guest.JoinResult{EventID: "ev-1", Joined: true, GuestCount: 1, GuestLimit: 10}, nil
}

func (s *stubGuests) UploadPhoto(_ context.Context, _ types.Actor, eventID string, obj *storage.Object, overlayID string) (*models.Photo, error) {
	s.gotObj, s.gotOverlay = obj, overlayID
	if s.err != nil {
		return nil, s.err
	}
	return &models.Photo{ID: "ph-1", EventID: eventID}, nil
}

func (s *stubGuests) ListPhotos(_ context.Context, _ types.Actor, _ string, _ pagination.Params) (pagination.Page[*guest.PhotoView], error) {
	return pagination.Page[*guest.PhotoView]{}, s.err
}

func (s *stubGuests) GuestPhotos(_ context.Context, _ types.Actor, _ string) (*guest.MyPhotos, error) {
	return &guest.MyPhotos{}, s.err
}

func (s *stubGuests) ListGuests(_ context.Context, _ types.Actor, eventID string, params pagination.Params) (pagination.Page[*models.Guest], error) {
	s.gotParams = params
	if s.err != nil {
		return pagination.Page[*models.Guest]{}, s.err
	}
	return pagination.Page[*models.Guest]{Items: []*models.Guest{{ID: "gr-1", EventID: eventID, GuestID: "g1", PhotosUploaded: 2}}}, nil
}

func (s *stubGuests) JoinedEvents(_ context.Context, _ types.Actor, params pagination.Params) (pagination.Page[*guest.JoinedEvent], error) {
	s.gotParams = params
	return pagination.Page[*guest.JoinedEvent]{Items: []*guest.JoinedEvent{{EventID: "ev-1", Name: "Garden Party"}}}, s.err
}

func (s *stubGuests) Consent(_ context.Context, actor types.Actor, eventID string) (*guest.ConsentStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &guest.ConsentStatus{EventID: eventID, Consented: actor.ID == "user-1"}, nil
}

func (s *stubGuests) PhotosByGuest(_ context.Context, _ types.Actor, _ string, guestID string) (*guest.UploaderPhotos, error) {
	s.gotGuestID = guestID
	if s.err != nil {
		return nil, s.err
	}
	return &guest.UploaderPhotos{Guest: &guest.UploaderInfo{GuestID: guestID, PhotosUploaded: 1}}, nil
}

func (s *stubGuests) like(liked bool) (*guest.LikeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	n := 0
	if liked {
		n = 1
	}
	return &guest.LikeResult{PhotoID: "ph-1", Liked: liked, LikeCount: n}, nil
}

func (s *stubGuests) Like(context.Context, types.Actor, string) (*guest.LikeResult, error) {
	return s.like(true)
}

func (s *stubGuests) Unlike(context.Context, types.Actor, string) (*guest.LikeResult, error) {
	return s.like(false)
}

func (s *stubGuests) Toggle(context.Context, types.Actor, string) (*guest.LikeResult, error) {
	return s.like(true)
}

type stubPayments struct {
	err       error
	gotIntent *payment.CreateIntentRequest
	gotRefund *payment.RefundRequest
	gotScan   *payment.ScanPaymentsRequest
	gotStatus types.PaymentProvider
}

func (s *stubPayments) CreateIntent(_ context.Context, req *payment.CreateIntentRequest) (*payment.IntentResult, error) {
	s.gotIntent = req
	if s.err != nil {
		return nil, s.err
	}
	return &payment.IntentResult{Provider: req.Provider, ProviderRef: "pi_1", AmountCents: 2999}, nil
}

func (s *stubPayments) CreateUpgradeIntent(_ context.Context, req *payment.UpgradeIntentRequest) (*payment.IntentResult, error) {
	return &payment.IntentResult{Provider: req.Provider, UpgradeDeltaCents: 500}, s.err
}

func (s *stubPayments) Confirm(_ context.Context, req *payment.ConfirmRequest) (*models.Payment, error) {
	return &models.Payment{ID: req.Ref, UserID: req.UserID}, s.err
}

func (s *stubPayments) GetStatus(_ context.Context, provider types.PaymentProvider, ref string) (*payment.StatusResult, error) {
	s.gotStatus = provider
	return &payment.StatusResult{Provider: provider, Ref: ref, Status: models.PaymentStatusCompleted}, s.err
}

func (s *stubPayments) Refund(_ context.Context, req *payment.RefundRequest) (*models.Payment, error) {
	s.gotRefund = req
	return &models.Payment{ID: req.Ref}, s.err
}

func (s *stubPayments) VerifySubscription(_ context.Context, _ string, productID string) (*payment.SubscriptionVerification, error) {
	return &payment.SubscriptionVerification{Success: true, ProductID: productID}, s.err
}

func (s *stubPayments) VerifyForEvent(context.Context, *payment.EventPaymentCheck) (*payment.VerifiedPayment, error) {
	panic("not used")
}

func (s *stubPayments) VerifyUpgrade(context.Context, types.PaymentProvider, string, string, string) (*models.Payment, error) {
	panic("not used")
}

func (s *stubPayments) MarkUsedTx(*gorm.DB, string, string) error {
	panic("not used")
}

func (s *stubPayments) ScanPayments(_ context.Context, req *payment.ScanPaymentsRequest) (*payment.ScanPaymentsResponse, error) {
	s.gotScan = req
	return &payment.ScanPaymentsResponse{Total: 0}, s.err
}

type stubDiscounts struct{}

func (stubDiscounts) Validate(_ context.Context, code string) (*discount.Validation, error) {
	if code == "SAVE10" {
		return &discount.Validation{Valid: true}, nil
	}
	return &discount.Validation{Reason: discount.ReasonInvalid}, nil
}

type stubAudit struct{ gotFilter audit.ListFilter }

func (s *stubAudit) List(_ context.Context, _ pagination.Params, f audit.ListFilter) (pagination.Page[*models.AuditLog], error) {
	s.gotFilter = f
	return pagination.Page[*models.AuditLog]{}, nil
}

type stubSweeper struct{ n int }

func (s stubSweeper) Sweep(context.Context) (int, error) { return s.n, nil }
