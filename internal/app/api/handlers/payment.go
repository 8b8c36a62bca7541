package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Talha654/overlayPix-backend/internal/app/service/discount"
	"github.com/Talha654/overlayPix-backend/internal/app/service/payment"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

// IdempotencyKeyHeader is forwarded to providers that support idempotent charge creation.
const IdempotencyKeyHeader = "Idempotency-Key"

// DiscountValidator checks a promotional code without redeeming it.
type DiscountValidator interface {
	Validate(ctx context.Context, code string) (*discount.Validation, error)
}

// @Summary      Create payment intent
// @Description  Reconciles the client price with the server price and opens a Stripe PaymentIntent or PayPal order. Free orders return isFree without a provider call.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header  string                        false  "Idempotency key"
// @Param        request          body    payment.CreateIntentRequest  true   "Order"
// @Success      200  {object}  handlers.RespIntent
// @Failure      400  {object}  handlers.RespError
// @Failure      502  {object}  handlers.RespError
// @Router       /api/v1/payments/intents [post]
func ApiCreateIntent(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		var req payment.CreateIntentRequest
		if !bindJSON(c, &req) {
			return
		}
		req.UserID, req.Email = actor.ID, actor.DisplayEmail()
		req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

		res, err := mgr.CreateIntent(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

// @Summary      Create upgrade payment intent
// @Description  Charges the difference between the new plan and the price already paid.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header  string                         false  "Idempotency key"
// @Param        request          body    payment.UpgradeIntentRequest  true   "Upgrade"
// @Success      200  {object}  handlers.RespIntent
// @Router       /api/v1/payments/upgrade-intents [post]
func ApiCreateUpgradeIntent(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		var req payment.UpgradeIntentRequest
		if !bindJSON(c, &req) {
			return
		}
		req.UserID, req.Email = actor.ID, actor.DisplayEmail()
		req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

		res, err := mgr.CreateUpgradeIntent(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

// @Summary      Confirm payment
// @Description  Confirms or captures a pending charge. Confirming a settled payment returns it unchanged.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  payment.ConfirmRequest  true  "Confirmation"
// @Success      200  {object}  handlers.RespPayment
// @Router       /api/v1/payments/confirm [post]
func ApiConfirmPayment(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		var req payment.ConfirmRequest
		if !bindJSON(c, &req) {
			return
		}
		req.UserID = actor.ID

		p, err := mgr.Confirm(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, p)
	}
}

// @Summary      Payment status
// @Description  Polls the provider and returns the normalized status. Stale is set when the provider was unreachable.
// @Tags         Payment
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path  string  true  "stripe | paypal"
// @Param        ref       path  string  true  "Provider reference"
// @Success      200  {object}  handlers.RespPaymentStatus
// @Router       /api/v1/payments/{provider}/{ref}/status [get]
func ApiPaymentStatus(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, authed := actorOf(c); !authed {
			return
		}
		provider, known := types.ParsePaymentProvider(c.Param("provider"))
		if !known {
			writeError(c, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment provider: %s", c.Param("provider")))
			return
		}
		res, err := mgr.GetStatus(c.Request.Context(), provider, c.Param("ref"))
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

// @Summary      Refund payment
// @Description  Refunds a settled payment. Only the payer or an admin may refund.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  payment.RefundRequest  true  "Refund"
// @Success      200  {object}  handlers.RespPayment
// @Router       /api/v1/payments/refund [post]
func ApiRefundPayment(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		var req payment.RefundRequest
		if !bindJSON(c, &req) {
			return
		}
		req.UserID, req.Admin = actor.ID, actor.Admin

		p, err := mgr.Refund(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, p)
	}
}

// @Summary      My payments
// @Description  Lists the caller's payment records, newest first.
// @Tags         Payment
// @Produce      json
// @Security     BearerAuth
// @Param        from  query  int  false  "Offset"
// @Param        size  query  int  false  "Page size"
// @Success      200  {object}  handlers.RespPaymentList
// @Router       /api/v1/payments [get]
func ApiListMyPayments(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		var q struct {
			From int `form:"from"`
			Size int `form:"size"`
		}
		if err := c.ShouldBindQuery(&q); err != nil {
			writeError(c, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid query"))
			return
		}
		res, err := mgr.ScanPayments(c.Request.Context(), &payment.ScanPaymentsRequest{
			Filters: []*types.CommonFilter{{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{actor.ID}}},
			From:    q.From,
			Size:    q.Size,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

type verifySubscriptionReq struct {
	ProductID string `json:"productId" validate:"required"`
}

// @Summary      Verify RevenueCat purchase
// @Description  Checks that the caller owns the product in RevenueCat.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  handlers.verifySubscriptionReq  true  "Product"
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/payments/revenuecat/verify [post]
func ApiVerifySubscription(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		var req verifySubscriptionReq
		if !bindJSON(c, &req) {
			return
		}
		res, err := mgr.VerifySubscription(c.Request.Context(), actor.ID, req.ProductID)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

type validateDiscountReq struct {
	Code string `json:"code" validate:"required"`
}

// @Summary      Validate discount code
// @Description  Reports whether a code can be redeemed now. Invalid codes return valid=false with a reason.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  handlers.validateDiscountReq  true  "Code"
// @Success      200  {object}  handlers.RespDiscountValidation
// @Router       /api/v1/discount-codes/validate [post]
func ApiValidateDiscount(svc DiscountValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, authed := actorOf(c); !authed {
			return
		}
		var req validateDiscountReq
		if !bindJSON(c, &req) {
			return
		}
		res, err := svc.Validate(c.Request.Context(), req.Code)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

func RegisterPaymentRoutes(r gin.IRouter, mgr payment.Manager, disc DiscountValidator) {
	r.GET("/payments", ApiListMyPayments(mgr))
	r.POST("/payments/intents", ApiCreateIntent(mgr))
	r.POST("/payments/upgrade-intents", ApiCreateUpgradeIntent(mgr))
	r.POST("/payments/confirm", ApiConfirmPayment(mgr))
	r.GET("/payments/:provider/:ref/status", ApiPaymentStatus(mgr))
	r.POST("/payments/refund", ApiRefundPayment(mgr))
	r.POST("/payments/revenuecat/verify", ApiVerifySubscription(mgr))
	r.POST("/discount-codes/validate", ApiValidateDiscount(disc))
}
