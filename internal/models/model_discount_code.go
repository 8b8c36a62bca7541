package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// DiscountCode is a promotional code. Value is a percent for percentage codes
// and major currency units for fixed codes.
type DiscountCode struct {
	ID                      string          `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Code                    string          `gorm:"column:code;type:varchar(64);not null;uniqueIndex" json:"code"`
	DiscountType            DiscountType    `gorm:"column:discount_type;type:varchar(16);not null" json:"discountType"`
	DiscountValue           decimal.Decimal `gorm:"column:discount_value;type:numeric(12,2);not null" json:"discountValue"`
	StartDate               time.Time       `gorm:"column:start_date;not null" json:"startDate"`
	ExpireDate              time.Time       `gorm:"column:expire_date;not null" json:"expireDate"`
	IsActive                bool            `gorm:"column:is_active;not null" json:"isActive"`
	CurrentUses             int             `gorm:"column:current_uses;not null;default:0" json:"currentUses"`
	TotalDiscountGivenCents int64           `gorm:"column:total_discount_given_cents;not null;default:0" json:"totalDiscountGivenCents"`
	LastUsedAt              *time.Time      `gorm:"column:last_used_at" json:"lastUsedAt,omitempty"`
	Description             string          `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt               time.Time       `json:"createdAt"`
	UpdatedAt               time.Time       `json:"updatedAt"`
}

func (DiscountCode) TableName() string { return "discount_code" }

// DiscountCodeUsage is an append-only redemption record, one per (code, event).
type DiscountCodeUsage struct {
	ID                  string    `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	DiscountCodeID      string    `gorm:"column:discount_code_id;type:varchar(64);not null;uniqueIndex:uniq_discount_usage_code_event,priority:1" json:"discountCodeId"`
	EventID             string    `gorm:"column:event_id;type:varchar(64);not null;uniqueIndex:uniq_discount_usage_code_event,priority:2" json:"eventId"`
	UserID              string    `gorm:"column:user_id;type:varchar(128)" json:"userId"`
	OrderAmountCents    int64     `gorm:"column:order_amount_cents;not null" json:"orderAmountCents"`
	DiscountAmountCents int64     `gorm:"column:discount_amount_cents;not null" json:"discountAmountCents"`
	CreatedAt           time.Time `json:"createdAt"`
}

func (DiscountCodeUsage) TableName() string { return "discount_code_usage" }
