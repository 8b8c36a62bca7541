package payment

import (
	"context"
	"fmt"

	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/paypal"
	"github.com/Talha654/overlayPix-backend/internal/platform/stripe"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

// ChargeRequest is a provider-neutral charge to create.
type ChargeRequest struct {
	AmountCents    int64
	Currency       string
	Email          string
	Reference      string
	Metadata       map[string]string
	IdempotencyKey string
}

// Charge is the provider-neutral view of a charge after any call.
type Charge struct {
	Ref          string
	Status       ProviderStatus
	AmountCents  int64
	ClientSecret string
	ApprovalURL  string
	CaptureID    string
}

type chargeAdapter interface {
	Provider() types.PaymentProvider
	Create(ctx context.Context, req ChargeRequest) (*Charge, error)
	Capture(ctx context.Context, ref, paymentMethodID string) (*Charge, error)
	Lookup(ctx context.Context, ref string) (*Charge, error)
	Refund(ctx context.Context, p *models.Payment, reason string) (string, error)
}

type stripeAdapter struct {
	client   stripe.Client
	currency string
}

func (a *stripeAdapter) Provider() types.PaymentProvider { return types.PaymentProviderStripe }

func (a *stripeAdapter) Create(ctx context.Context, req ChargeRequest) (*Charge, error) {
	currency := req.Currency
	if currency == "" {
		currency = a.currency
	}
	pi, err := a.client.CreatePaymentIntent(ctx, stripe.CreateIntentParams{
		AmountCents:    req.AmountCents,
		Currency:       currency,
		ReceiptEmail:   req.Email,
		Metadata:       req.Metadata,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return &Charge{Ref: pi.ID, Status: StripeStatus(pi.Status), AmountCents: pi.Amount, ClientSecret: pi.ClientSecret}, nil
}

// Capture confirms the intent. An intent that already left the confirmable
// states is re-fetched so repeated confirms observe the settled state.
func (a *stripeAdapter) Capture(ctx context.Context, ref, paymentMethodID string) (*Charge, error) {
	pi, err := a.client.ConfirmPaymentIntent(ctx, ref, paymentMethodID)
	if err != nil {
		if stripe.IsUnexpectedState(err) {
			return a.Lookup(ctx, ref)
		}
		return nil, err
	}
	return &Charge{Ref: pi.ID, Status: StripeStatus(pi.Status), AmountCents: pi.Amount}, nil
}

func (a *stripeAdapter) Lookup(ctx context.Context, ref string) (*Charge, error) {
	pi, err := a.client.GetPaymentIntent(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &Charge{Ref: pi.ID, Status: StripeStatus(pi.Status), AmountCents: pi.Amount}, nil
}

func (a *stripeAdapter) Refund(ctx context.Context, p *models.Payment, reason string) (string, error) {
	r, err := a.client.RefundPaymentIntent(ctx, p.ID, reason)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

type paypalAdapter struct {
	client   paypal.Client
	currency string
}

func (a *paypalAdapter) Provider() types.PaymentProvider { return types.PaymentProviderPayPal }

func (a *paypalAdapter) Create(ctx context.Context, req ChargeRequest) (*Charge, error) {
	currency := req.Currency
	if currency == "" {
		currency = a.currency
	}
	o, err := a.client.CreateOrder(ctx, req.AmountCents, currency, req.Reference)
	if err != nil {
		return nil, err
	}
	return &Charge{Ref: o.ID, Status: PayPalStatus(o.Status), AmountCents: req.AmountCents, ApprovalURL: o.ApprovalURL}, nil
}

func (a *paypalAdapter) Capture(ctx context.Context, ref, _ string) (*Charge, error) {
	o, err := a.client.CaptureOrder(ctx, ref)
	if err != nil {
		// a second capture of a completed order is rejected; report the stored state instead
		if current, lerr := a.Lookup(ctx, ref); lerr == nil && current.Status.Normalize() == models.PaymentStatusCompleted {
			return current, nil
		}
		return nil, err
	}
	return &Charge{Ref: o.ID, Status: PayPalStatus(o.Status), CaptureID: o.CaptureID}, nil
}

func (a *paypalAdapter) Lookup(ctx context.Context, ref string) (*Charge, error) {
	o, err := a.client.GetOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &Charge{Ref: o.ID, Status: PayPalStatus(o.Status), AmountCents: o.AmountCents, CaptureID: o.CaptureID}, nil
}

func (a *paypalAdapter) Refund(ctx context.Context, p *models.Payment, _ string) (string, error) {
	if p.CaptureID == "" {
		return "", fmt.Errorf("paypal order %s has no capture id", p.ID)
	}
	id, _, err := a.client.RefundCapture(ctx, p.CaptureID)
	return id, err
}
