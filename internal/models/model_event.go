package models

import (
	"time"

	"github.com/Talha654/overlayPix-backend/pkg/types"
)

type EventStatus string

const (
	EventStatusActive  EventStatus = "active"
	EventStatusExpired EventStatus = "expired"
)

// Event is a time-boxed photo collection owned by an organizer.
type Event struct {
	ID     string `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(128);not null;index:idx_event_user_created,priority:1" json:"userId"`
	Name   string `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Type   string `gorm:"column:type;type:varchar(64)" json:"type"`

	// EventDate is the client supplied event date in UTC. Its calendar date anchors the window.
	EventDate      time.Time  `gorm:"column:event_date;not null" json:"eventDate"`
	EventStartTime string     `gorm:"column:event_start_time;type:varchar(5);not null" json:"eventStartTime"`
	EventEndTime   string     `gorm:"column:event_end_time;type:varchar(5);not null" json:"eventEndTime"`
	TimeZone       string     `gorm:"column:time_zone;type:varchar(64);not null" json:"timeZone"`
	EventEndDate   *time.Time `gorm:"column:event_end_date;index:idx_event_status_end,priority:2" json:"eventEndDate"`

	BrandColor      string `gorm:"column:brand_color;type:varchar(32)" json:"brandColor"`
	Typography      string `gorm:"column:typography;type:varchar(64)" json:"typography"`
	FontStyle       string `gorm:"column:font_style;type:varchar(32)" json:"fontStyle"`
	FontSize        int    `gorm:"column:font_size" json:"fontSize"`
	EventPictureURL string `gorm:"column:event_picture_url;type:text" json:"eventPictureUrl"`

	OverlayID   string `gorm:"column:overlay_id;type:varchar(64)" json:"overlayId"`
	OverlayURL  string `gorm:"column:overlay_url;type:text" json:"overlayUrl"`
	OverlayName string `gorm:"column:overlay_name;type:varchar(128)" json:"overlayName"`

	PlanID       string     `gorm:"column:plan_id;type:varchar(128);not null" json:"planId"`
	BasePlanName string     `gorm:"column:base_plan_name;type:varchar(128)" json:"basePlanName"`
	CustomPlan   CustomPlan `gorm:"embedded;embeddedPrefix:custom_plan_" json:"customPlan"`

	FinalPriceCents     int64  `gorm:"column:final_price_cents;not null;default:0" json:"finalPriceCents"`
	OriginalPriceCents  int64  `gorm:"column:original_price_cents;not null;default:0" json:"originalPriceCents"`
	DiscountCode        string `gorm:"column:discount_code;type:varchar(64)" json:"discountCode,omitempty"`
	DiscountAmountCents int64  `gorm:"column:discount_amount_cents;not null;default:0" json:"discountAmountCents"`
	DiscountType        string `gorm:"column:discount_type;type:varchar(16)" json:"discountType,omitempty"`

	ShareCode string      `gorm:"column:share_code;type:varchar(16);not null;uniqueIndex" json:"shareCode"`
	QRCodeURL string      `gorm:"column:qr_code_url;type:text" json:"qrCodeUrl"`
	Status    EventStatus `gorm:"column:status;type:varchar(16);not null;default:active;index:idx_event_status_end,priority:1" json:"status"`

	PaymentMethod           types.PaymentProvider `gorm:"column:payment_method;type:varchar(16)" json:"paymentMethod"`
	PaymentRef              string                `gorm:"column:payment_ref;type:varchar(128)" json:"paymentRef"`
	PaymentStatus           PaymentStatus         `gorm:"column:payment_status;type:varchar(16)" json:"paymentStatus"`
	IsFreePlan              bool                  `gorm:"column:is_free_plan;not null;default:false" json:"isFreePlan"`
	RevenueCatTransactionID *string               `gorm:"column:revenuecat_transaction_id;type:varchar(128);uniqueIndex" json:"revenuecatTransactionId,omitempty"`

	GuestCount int `gorm:"column:guest_count;not null;default:0" json:"guestCount"`
	PhotoCount int `gorm:"column:photo_count;not null;default:0" json:"photoCount"`

	CreatedAt time.Time `gorm:"index:idx_event_user_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Event) TableName() string {
	return "event"
}

func (e *Event) IsOwner(userID string) bool {
	return e != nil && userID != "" && e.UserID == userID
}

// RemainingPhotos is the pool capacity left, never negative.
func (e *Event) RemainingPhotos() int {
	if e == nil {
		return 0
	}
	return max(0, e.CustomPlan.PhotoPool-e.PhotoCount)
}
