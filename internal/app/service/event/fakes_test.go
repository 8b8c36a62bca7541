package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	stripego "github.com/stripe/stripe-go/v82"

	"github.com/Talha654/overlayPix-backend/internal/platform/paypal"
	"github.com/Talha654/overlayPix-backend/internal/platform/revenuecat"
	"github.com/Talha654/overlayPix-backend/internal/platform/stripe"
)

type fakeStripe struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*stripego.PaymentIntent
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{intents: map[string]*stripego.PaymentIntent{}}
}

func (f *fakeStripe) CreatePaymentIntent(_ context.Context, p stripe.CreateIntentParams) (*stripego.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("pi_test_%d", f.seq)
	f.intents[id] = &stripego.PaymentIntent{
		ID:           id,
		Amount:       p.AmountCents,
		Status:       stripego.PaymentIntentStatusRequiresPaymentMethod,
		ClientSecret: id + "_secret",
	}
	cp := *f.intents[id]
	return &cp, nil
}

func (f *fakeStripe) GetPaymentIntent(_ context.Context, id string) (*stripego.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pi, ok := f.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", id)
	}
	cp := *pi
	return &cp, nil
}

func (f *fakeStripe) ConfirmPaymentIntent(ctx context.Context, id, _ string) (*stripego.PaymentIntent, error) {
	f.succeed(id)
	return f.GetPaymentIntent(ctx, id)
}

func (f *fakeStripe) RefundPaymentIntent(_ context.Context, id, _ string) (*stripego.Refund, error) {
	return &stripego.Refund{ID: "re_" + id, Status: stripego.RefundStatusSucceeded}, nil
}

// succeed simulates the client completing the payment sheet.
func (f *fakeStripe) succeed(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pi, ok := f.intents[id]; ok {
		pi.Status = stripego.PaymentIntentStatusSucceeded
	}
}

var errPayPalUnused = errors.New("paypal is not used in event tests")

type fakePayPal struct{}

func (fakePayPal) CreateOrder(context.Context, int64, string, string) (*paypal.Order, error) {
	return nil, errPayPalUnused
}

func (fakePayPal) GetOrder(context.Context, string) (*paypal.Order, error) {
	return nil, errPayPalUnused
}

func (fakePayPal) CaptureOrder(context.Context, string) (*paypal.Order, error) {
	return nil, errPayPalUnused
}

func (fakePayPal) RefundCapture(context.Context, string) (string, string, error) {
	return "", "", errPayPalUnused
}

type fakeRevenueCat struct {
	mu  sync.Mutex
	sub *revenuecat.Subscriber
}

func (f *fakeRevenueCat) GetSubscriber(context.Context, string) (*revenuecat.Subscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub == nil {
		return nil, revenuecat.ErrSubscriberNotFound
	}
	return f.sub, nil
}
