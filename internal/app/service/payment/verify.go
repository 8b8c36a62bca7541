package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/revenuecat"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

func (s *Service) VerifySubscription(ctx context.Context, userID, productID string) (*SubscriptionVerification, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sub, err := s.rc.GetSubscriber(cctx, userID)
	if err != nil {
		if errors.Is(err, revenuecat.ErrSubscriberNotFound) {
			return &SubscriptionVerification{ProductID: productID}, nil
		}
		logctx.FromCtx(ctx, s.log).Errorw("revenuecat lookup failed", "user_id", userID, "product_id", productID, "err", err)
		return nil, providerError(cctx, types.PaymentProviderRevenueCat, "subscriber lookup", err)
	}

	res := &SubscriptionVerification{
		ProductID:          productID,
		ActiveEntitlements: sub.ActiveEntitlements(s.now()),
	}
	if productID != "" {
		if purchase, ok := sub.LatestPurchase(productID); ok {
			res.TransactionID = purchase.StoreTransactionIdentifier
			purchased := purchase.PurchaseDate
			res.PurchaseDate = &purchased
		}
	}
	res.Success = len(res.ActiveEntitlements) > 0 || res.TransactionID != ""
	status := RevenueCatEntitlement{Active: res.Success, Name: productID}
	metrics.IncPaymentOutcome(string(status.Provider()), string(status.Normalize()))
	return res, nil
}

func (s *Service) VerifyForEvent(ctx context.Context, check *EventPaymentCheck) (*VerifiedPayment, error) {
	if check == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment details are required")
	}
	if check.Provider == types.PaymentProviderRevenueCat {
		return s.verifyRevenueCat(ctx, check)
	}
	if check.Ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	p, err := s.loadPayment(ctx, check.Ref)
	if err != nil {
		return nil, err
	}
	if p.UserID != check.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	if check.Provider != "" && p.Provider != check.Provider {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "payment %s was not made with %s", p.ID, check.Provider)
	}
	if p.IsUpgrade {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upgrade payments cannot fund a new event")
	}
	if _, err := s.syncStatus(ctx, p); err != nil {
		return nil, err
	}
	if !p.IsSettled() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrPaymentNotCompleted, ErrPaymentNotCompleted.Error()).
			WithDetails(map[string]any{"status": p.Status})
	}

	expected := s.policy.ClampMinimum(check.ServerCents)
	if _, err := s.policy.ResolvePaidAmount(p.Provider, expected, p.TotalAmountCents, check.HasDiscount); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("paid amount does not match event price",
			"ref", p.ID, "paid_cents", p.TotalAmountCents, "server_cents", expected)
		return nil, err
	}
	if p.UsedByEventID != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeReplay, ErrPaymentAlreadyUsed, "Payment already used")
	}
	return &VerifiedPayment{
		Provider:    p.Provider,
		Ref:         p.ID,
		Status:      p.Status,
		AmountCents: p.TotalAmountCents,
		IsFree:      p.IsFreePlan,
		Payment:     p,
	}, nil
}

func (s *Service) verifyRevenueCat(ctx context.Context, check *EventPaymentCheck) (*VerifiedPayment, error) {
	if check.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required for revenuecat payments")
	}
	sub, err := s.VerifySubscription(ctx, check.UserID, check.ProductID)
	if err != nil {
		return nil, err
	}
	if !sub.Success {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrPaymentNotCompleted, "No active purchase found for this product")
	}

	out := &VerifiedPayment{
		Provider:    types.PaymentProviderRevenueCat,
		Ref:         check.ProductID,
		Status:      RevenueCatEntitlement{Active: true, Name: check.ProductID}.Normalize(),
		AmountCents: check.ServerCents,
	}
	if sub.TransactionID == "" {
		return out, nil
	}

	var used int64
	if err := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("revenuecat_transaction_id = ?", sub.TransactionID).
		Count(&used).Error; err != nil {
		return nil, fmt.Errorf("failed to check revenuecat transaction: %w", err)
	}
	if used > 0 {
		logctx.FromCtx(ctx, s.log).Warnw("revenuecat transaction replay rejected",
			"user_id", check.UserID, "product_id", check.ProductID, "transaction_id", sub.TransactionID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeReplay, ErrPaymentAlreadyUsed, "Transaction already used")
	}
	tid := sub.TransactionID
	out.Ref = tid
	out.RevenueCatTransactionID = &tid
	return out, nil
}

func (s *Service) VerifyUpgrade(ctx context.Context, provider types.PaymentProvider, ref, userID, eventID string) (*models.Payment, error) {
	p, err := s.loadPayment(ctx, ref)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	if !p.IsUpgrade || p.EventID != eventID || (provider != "" && p.Provider != provider) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment is not an upgrade payment for this event")
	}
	if _, err := s.syncStatus(ctx, p); err != nil {
		return nil, err
	}
	if !p.IsSettled() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrPaymentNotCompleted, ErrPaymentNotCompleted.Error()).
			WithDetails(map[string]any{"status": p.Status})
	}
	if p.UsedByEventID != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeReplay, ErrPaymentAlreadyUsed, "Payment already used")
	}
	return p, nil
}

// MarkUsedTx sets used_by_event_id if it is still empty.
func (s *Service) MarkUsedTx(tx *gorm.DB, ref, eventID string) error {
	res := tx.Model(&models.Payment{}).
		Where("id = ? AND used_by_event_id IS NULL", ref).
		Updates(map[string]any{"used_by_event_id": eventID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("failed to mark payment used: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return pkgerrors.Wrap(pkgerrors.CodeReplay, ErrPaymentAlreadyUsed, "Payment already used")
	}
	return nil
}
