// Package stripe wraps the Stripe PaymentIntents and Refunds APIs.
package stripe

import (
	"context"
	"errors"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Talha654/overlayPix-backend/pkg/config"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
)

var ErrNotConfigured = errors.New("stripe secret key is not configured")

// CreateIntentParams describes a PaymentIntent to create.
type CreateIntentParams struct {
	AmountCents    int64
	Currency       string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

// Client is the subset of Stripe used by the payment reconciler.
type Client interface {
	CreatePaymentIntent(ctx context.Context, p CreateIntentParams) (*stripego.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripego.PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, id, paymentMethodID string) (*stripego.PaymentIntent, error)
	RefundPaymentIntent(ctx context.Context, id, reason string) (*stripego.Refund, error)
}

type apiClient struct {
	api      *client.API
	currency string
	log      *zap.SugaredLogger
}

func New(cfg *config.Config, log *zap.SugaredLogger) Client {
	key := strings.TrimSpace(cfg.Stripe.SecretKey)
	if key == "" {
		log.Warnw("stripe secret key not configured, stripe payments disabled")
		return &apiClient{currency: cfg.Stripe.Currency, log: log}
	}
	return &apiClient{api: client.New(key, nil), currency: cfg.Stripe.Currency, log: log}
}

func (c *apiClient) CreatePaymentIntent(ctx context.Context, p CreateIntentParams) (*stripego.PaymentIntent, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}
	defer metrics.ObserveBusinessProcess("stripe", "create_intent", time.Now())

	currency := p.Currency
	if currency == "" {
		currency = c.currency
	}
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(p.AmountCents),
		Currency: stripego.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	if p.ReceiptEmail != "" {
		params.ReceiptEmail = stripego.String(p.ReceiptEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	params.Context = ctx
	return c.api.PaymentIntents.New(params)
}

func (c *apiClient) GetPaymentIntent(ctx context.Context, id string) (*stripego.PaymentIntent, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}
	defer metrics.ObserveBusinessProcess("stripe", "get_intent", time.Now())

	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	return c.api.PaymentIntents.Get(id, params)
}

func (c *apiClient) ConfirmPaymentIntent(ctx context.Context, id, paymentMethodID string) (*stripego.PaymentIntent, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}
	defer metrics.ObserveBusinessProcess("stripe", "confirm_intent", time.Now())

	params := &stripego.PaymentIntentConfirmParams{}
	if paymentMethodID != "" {
		params.PaymentMethod = stripego.String(paymentMethodID)
	}
	params.Context = ctx
	return c.api.PaymentIntents.Confirm(id, params)
}

func (c *apiClient) RefundPaymentIntent(ctx context.Context, id, reason string) (*stripego.Refund, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}
	defer metrics.ObserveBusinessProcess("stripe", "refund", time.Now())

	params := &stripego.RefundParams{PaymentIntent: stripego.String(id)}
	if r := refundReason(reason); r != "" {
		params.Reason = stripego.String(r)
	}
	if reason != "" {
		params.AddMetadata("reason", reason)
	}
	params.Context = ctx
	return c.api.Refunds.New(params)
}

// refundReason maps free text onto Stripe's enumerated refund reasons.
func refundReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "duplicate":
		return string(stripego.RefundReasonDuplicate)
	case "fraudulent":
		return string(stripego.RefundReasonFraudulent)
	case "":
		return ""
	default:
		return string(stripego.RefundReasonRequestedByCustomer)
	}
}

// IsUnexpectedState reports whether err is Stripe's payment_intent_unexpected_state,
// returned when confirming an intent that already moved on.
func IsUnexpectedState(err error) bool {
	var se *stripego.Error
	if errors.As(err, &se) {
		return se.Code == stripego.ErrorCodePaymentIntentUnexpectedState
	}
	return false
}

var Module = fx.Options(
	fx.Provide(New),
)
