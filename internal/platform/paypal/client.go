// Package paypal wraps the PayPal Orders v2 API.
package paypal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paypalsdk "github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Talha654/overlayPix-backend/pkg/config"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
)

var ErrNotConfigured = errors.New("paypal credentials are not configured")

// Order is the provider-neutral view of a PayPal order.
type Order struct {
	ID          string
	Status      string
	ApprovalURL string
	CaptureID   string
	AmountCents int64
}

// Client is the subset of PayPal used by the payment reconciler.
type Client interface {
	CreateOrder(ctx context.Context, amountCents int64, currency, referenceID string) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	CaptureOrder(ctx context.Context, id string) (*Order, error)
	RefundCapture(ctx context.Context, captureID string) (refundID string, status string, err error)
}

type sdkClient struct {
	mu       sync.Mutex
	sdk      *paypalsdk.Client
	currency string
	log      *zap.SugaredLogger
}

func New(cfg *config.Config, log *zap.SugaredLogger) (Client, error) {
	if cfg.PayPal.ClientID == "" || cfg.PayPal.ClientSecret == "" {
		log.Warnw("paypal credentials not configured, paypal payments disabled")
		return &sdkClient{currency: cfg.PayPal.Currency, log: log}, nil
	}
	base := paypalsdk.APIBaseLive
	if cfg.PayPal.Sandbox {
		base = paypalsdk.APIBaseSandBox
	}
	sdk, err := paypalsdk.NewClient(cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to init paypal client: %w", err)
	}
	return &sdkClient{sdk: sdk, currency: cfg.PayPal.Currency, log: log}, nil
}

// authorize fetches an access token on first use; the SDK refreshes it afterwards.
func (c *sdkClient) authorize(ctx context.Context) error {
	if c.sdk == nil {
		return ErrNotConfigured
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk.Token != nil {
		return nil
	}
	if _, err := c.sdk.GetAccessToken(ctx); err != nil {
		return fmt.Errorf("paypal access token: %w", err)
	}
	return nil
}

func (c *sdkClient) CreateOrder(ctx context.Context, amountCents int64, currency, referenceID string) (*Order, error) {
	if err := c.authorize(ctx); err != nil {
		return nil, err
	}
	defer metrics.ObserveBusinessProcess("paypal", "create_order", time.Now())

	if currency == "" {
		currency = c.currency
	}
	units := []paypalsdk.PurchaseUnitRequest{{
		ReferenceID: referenceID,
		Amount: &paypalsdk.PurchaseUnitAmount{
			Currency: currency,
			Value:    FormatCents(amountCents),
		},
	}}
	order, err := c.sdk.CreateOrder(ctx, paypalsdk.OrderIntentCapture, units, nil, &paypalsdk.ApplicationContext{
		UserAction: "PAY_NOW",
	})
	if err != nil {
		return nil, err
	}
	out := &Order{ID: order.ID, Status: order.Status, AmountCents: amountCents}
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			out.ApprovalURL = l.Href
		}
	}
	return out, nil
}

func (c *sdkClient) GetOrder(ctx context.Context, id string) (*Order, error) {
	if err := c.authorize(ctx); err != nil {
		return nil, err
	}
	defer metrics.ObserveBusinessProcess("paypal", "get_order", time.Now())

	order, err := c.sdk.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &Order{ID: order.ID, Status: order.Status}
	for _, pu := range order.PurchaseUnits {
		if pu.Amount != nil && out.AmountCents == 0 {
			out.AmountCents = ParseCents(pu.Amount.Value)
		}
		if pu.Payments != nil && len(pu.Payments.Captures) > 0 && out.CaptureID == "" {
			out.CaptureID = pu.Payments.Captures[0].ID
		}
	}
	return out, nil
}

func (c *sdkClient) CaptureOrder(ctx context.Context, id string) (*Order, error) {
	if err := c.authorize(ctx); err != nil {
		return nil, err
	}
	defer metrics.ObserveBusinessProcess("paypal", "capture_order", time.Now())

	res, err := c.sdk.CaptureOrder(ctx, id, paypalsdk.CaptureOrderRequest{})
	if err != nil {
		return nil, err
	}
	out := &Order{ID: res.ID, Status: res.Status}
	for _, pu := range res.PurchaseUnits {
		if pu.Payments != nil && len(pu.Payments.Captures) > 0 {
			out.CaptureID = pu.Payments.Captures[0].ID
			break
		}
	}
	return out, nil
}

func (c *sdkClient) RefundCapture(ctx context.Context, captureID string) (string, string, error) {
	if err := c.authorize(ctx); err != nil {
		return "", "", err
	}
	defer metrics.ObserveBusinessProcess("paypal", "refund_capture", time.Now())

	res, err := c.sdk.RefundCapture(ctx, captureID, paypalsdk.RefundCaptureRequest{})
	if err != nil {
		return "", "", err
	}
	return res.ID, res.Status, nil
}

// FormatCents renders minor units as a PayPal amount string ("12.34").
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseCents converts a PayPal amount string to minor units; malformed input yields 0.
func ParseCents(value string) int64 {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0
	}
	return d.Shift(2).Round(0).IntPart()
}

var Module = fx.Options(
	fx.Provide(New),
)
