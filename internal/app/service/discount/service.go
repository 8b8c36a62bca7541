// Package discount validates promotional codes and records redemptions.
package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/tool"
)

var (
	ErrCodeNotFound = errors.New("discount code not found")
	// ErrCodeExhausted is returned when the redemption update matched no row,
	// i.e. the code was deactivated or expired between validation and update.
	ErrCodeExhausted = errors.New("discount code no longer redeemable")
)

const (
	ReasonInvalid    = "Invalid discount code"
	ReasonInactive   = "Discount code is inactive"
	ReasonNotStarted = "Discount code has not started yet"
	ReasonExpired    = "Discount code has expired"
)

type Validation struct {
	Valid  bool                 `json:"valid"`
	Reason string               `json:"reason,omitempty"`
	Code   *models.DiscountCode `json:"discountCode,omitempty"`
}

type ApplyRequest struct {
	Code             string
	OrderAmountCents int64
	EventID          string
	UserID           string
}

type ApplyResult struct {
	DiscountCodeID      string              `json:"discountCodeId"`
	Code                string              `json:"code"`
	DiscountType        models.DiscountType `json:"discountType"`
	OrderAmountCents    int64               `json:"orderAmountCents"`
	DiscountAmountCents int64               `json:"discountAmountCents"`
	FinalAmountCents    int64               `json:"finalAmountCents"`
	AlreadyApplied      bool                `json:"alreadyApplied"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// NormalizeCode is the canonical lookup form of a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate reports whether code can be redeemed now.
func (s *Service) Validate(ctx context.Context, code string) (*Validation, error) {
	return s.validate(s.db.WithContext(ctx), code)
}

func (s *Service) validate(tx *gorm.DB, code string) (*Validation, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return &Validation{Reason: ReasonInvalid}, nil
	}
	var dc models.DiscountCode
	if err := tx.Where("code = ?", normalized).First(&dc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Validation{Reason: ReasonInvalid}, nil
		}
		return nil, fmt.Errorf("failed to load discount code: %w", err)
	}
	now := s.now()
	switch {
	case !dc.IsActive:
		return &Validation{Reason: ReasonInactive, Code: &dc}, nil
	case now.Before(dc.StartDate):
		return &Validation{Reason: ReasonNotStarted, Code: &dc}, nil
	case !now.Before(dc.ExpireDate):
		return &Validation{Reason: ReasonExpired, Code: &dc}, nil
	}
	return &Validation{Valid: true, Code: &dc}, nil
}

// Apply redeems code for one event in its own transaction.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	var res *ApplyResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = s.ApplyTx(tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyTx redeems code inside tx. A second redemption for the same event
// returns the recorded result without writing.
func (s *Service) ApplyTx(tx *gorm.DB, req ApplyRequest) (*ApplyResult, error) {
	if req.EventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required to apply a discount")
	}
	v, err := s.validate(tx, req.Code)
	if err != nil {
		return nil, err
	}
	if !v.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, v.Reason)
	}
	dc := v.Code

	var prior models.DiscountCodeUsage
	err = tx.Where("discount_code_id = ? AND event_id = ?", dc.ID, req.EventID).First(&prior).Error
	if err == nil {
		return resultFromUsage(dc, &prior, true), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load discount usage: %w", err)
	}

	amount := ComputeDiscount(dc, req.OrderAmountCents)
	now := s.now().UTC()
	usage := &models.DiscountCodeUsage{
		ID:                  tool.GenerateUUIDV7(),
		DiscountCodeID:      dc.ID,
		EventID:             req.EventID,
		UserID:              req.UserID,
		OrderAmountCents:    req.OrderAmountCents,
		DiscountAmountCents: amount,
		CreatedAt:           now,
	}
	if err := tx.Create(usage).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "discount already applied to this event")
		}
		return nil, fmt.Errorf("failed to record discount usage: %w", err)
	}

	upd := tx.Model(&models.DiscountCode{}).
		Where("id = ? AND is_active = ? AND start_date <= ? AND expire_date > ?", dc.ID, true, now, now).
		Updates(map[string]any{
			"current_uses":               gorm.Expr("current_uses + 1"),
			"total_discount_given_cents": gorm.Expr("total_discount_given_cents + ?", amount),
			"last_used_at":               now,
			"updated_at":                 now,
		})
	if upd.Error != nil {
		return nil, fmt.Errorf("failed to update discount code: %w", upd.Error)
	}
	if upd.RowsAffected != 1 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrCodeExhausted, ReasonExpired)
	}

	logctx.FromCtx(tx.Statement.Context, s.log).Infow("discount applied",
		"code", dc.Code, "event_id", req.EventID, "order_cents", req.OrderAmountCents, "discount_cents", amount)
	return resultFromUsage(dc, usage, false), nil
}

// ComputeDiscount returns the discount in cents for an order, clamped to [0, order].
func ComputeDiscount(dc *models.DiscountCode, orderCents int64) int64 {
	if dc == nil || orderCents <= 0 {
		return 0
	}
	var amount int64
	switch dc.DiscountType {
	case models.DiscountTypePercentage:
		amount = dc.DiscountValue.Mul(decimal.NewFromInt(orderCents)).Div(decimal.NewFromInt(100)).Round(0).IntPart()
	case models.DiscountTypeFixed:
		amount = dc.DiscountValue.Shift(2).Round(0).IntPart()
	}
	return min(max(amount, 0), orderCents)
}

func resultFromUsage(dc *models.DiscountCode, u *models.DiscountCodeUsage, already bool) *ApplyResult {
	return &ApplyResult{
		DiscountCodeID:      dc.ID,
		Code:                dc.Code,
		DiscountType:        dc.DiscountType,
		OrderAmountCents:    u.OrderAmountCents,
		DiscountAmountCents: u.DiscountAmountCents,
		FinalAmountCents:    u.OrderAmountCents - u.DiscountAmountCents,
		AlreadyApplied:      already,
	}
}

var Module = fx.Options(
	fx.Provide(NewService),
)
