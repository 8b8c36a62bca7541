package event

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

// PaymentInfo names the payment backing an event. Which reference field is
// read depends on Method, stripe when empty.
type PaymentInfo struct {
	Method          types.PaymentProvider `json:"method,omitempty"`
	PaymentIntentID string                `json:"paymentIntentId,omitempty"`
	PayPalOrderID   string                `json:"paypalOrderId,omitempty"`
	ProductID       string                `json:"productId,omitempty"`
}

func (p *PaymentInfo) Provider() types.PaymentProvider {
	if p == nil || p.Method == "" {
		return types.PaymentProviderStripe
	}
	return p.Method
}

// Ref is the provider reference for the chosen method.
func (p *PaymentInfo) Ref() string {
	if p == nil {
		return ""
	}
	switch p.Provider() {
	case types.PaymentProviderPayPal:
		return p.PayPalOrderID
	case types.PaymentProviderRevenueCat:
		return p.ProductID
	}
	return p.PaymentIntentID
}

// DiscountCodeRef accepts either "CODE" or {"code": "CODE"}.
type DiscountCodeRef string

func (d *DiscountCodeRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*d = DiscountCodeRef(obj.Code)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*d = DiscountCodeRef(s)
	return nil
}

type CreateEventRequest struct {
	Name            string            `json:"name" validate:"required,min=3,max=100"`
	Type            string            `json:"type" validate:"required"`
	EventDate       temporal.Instant  `json:"eventDate"`
	EventStartTime  string            `json:"eventStartTime" validate:"required,clock"`
	EventEndTime    string            `json:"eventEndTime" validate:"required,clock"`
	TimeZone        string            `json:"timeZone" validate:"required"`
	Overlay         string            `json:"overlay,omitempty"`
	OverlayName     string            `json:"overlayName,omitempty"`
	BrandColor      string            `json:"brandColor,omitempty"`
	Typography      string            `json:"typography,omitempty"`
	FontStyle       string            `json:"fontStyle,omitempty"`
	FontSize        int               `json:"fontSize,omitempty" validate:"omitempty,min=8,max=72"`
	EventPictureURL string            `json:"eventPictureUrl,omitempty"`
	PlanID          string            `json:"planId" validate:"required"`
	CustomPlan      models.CustomPlan `json:"customPlan"`
	FinalPrice      decimal.Decimal   `json:"finalPrice"`
	DiscountCode    DiscountCodeRef   `json:"discountCode,omitempty"`
	Payment         *PaymentInfo      `json:"payment,omitempty"`
}

// CreateEventInput carries the request plus optional multipart uploads.
type CreateEventInput struct {
	Request *CreateEventRequest
	Overlay *storage.Object
	Picture *storage.Object
}

type UpdateInput struct {
	Patch   map[string]any
	Overlay *storage.Object
	Picture *storage.Object
}

type UpgradeRequest struct {
	PlanID     string            `json:"planId" validate:"required"`
	CustomPlan models.CustomPlan `json:"customPlan"`
	FinalPrice decimal.Decimal   `json:"finalPrice"`
	Payment    *PaymentInfo      `json:"payment,omitempty"`
}

// View is the owner's view of an event.
type View struct {
	*models.Event
	IsActive         bool       `json:"isActive"`
	StorageExpired   bool       `json:"storageExpired"`
	StorageExpiresAt *time.Time `json:"storageExpiresAt,omitempty"`
}

// GuestView is what a share-code holder sees.
type GuestView struct {
	EventID         string             `json:"eventId"`
	Name            string             `json:"name"`
	Type            string             `json:"type"`
	EventDate       time.Time          `json:"eventDate"`
	EventStartTime  string             `json:"eventStartTime"`
	EventEndTime    string             `json:"eventEndTime"`
	EventEndDate    *time.Time         `json:"eventEndDate,omitempty"`
	TimeZone        string             `json:"timeZone"`
	BrandColor      string             `json:"brandColor"`
	Typography      string             `json:"typography"`
	FontStyle       string             `json:"fontStyle"`
	FontSize        int                `json:"fontSize"`
	EventPictureURL string             `json:"eventPictureUrl"`
	OverlayID       string             `json:"overlayId"`
	OverlayURL      string             `json:"overlayUrl"`
	Status          models.EventStatus `json:"status"`
	IsActive        bool               `json:"isActive"`
	StorageExpired  bool               `json:"storageExpired"`
	GuestLimit      int                `json:"guestLimit"`
	GuestCount      int                `json:"guestCount"`
	PhotosPerGuest  *int               `json:"photosPerGuest,omitempty"`
	Permissions     models.Permissions `json:"permissions"`
	IsOwner         bool               `json:"isOwner"`
	Consented       bool               `json:"consented"`
	// RemainingPhotos is nil for the owner, who is only bound by the pool.
	RemainingPhotos *int `json:"remainingPhotos"`
}
