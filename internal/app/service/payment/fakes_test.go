package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/revenuecat"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

type fakeAdapter struct {
	mu        sync.Mutex
	provider  types.PaymentProvider
	seq       int
	statuses  map[string]ProviderStatus
	creates   []ChargeRequest
	captureID string

	createErr  error
	captureErr error
	lookupErr  error
	lookups    int
	refunds    []string
}

func newFakeAdapter(provider types.PaymentProvider) *fakeAdapter {
	return &fakeAdapter{provider: provider, statuses: map[string]ProviderStatus{}}
}

func (f *fakeAdapter) pending() ProviderStatus {
	if f.provider == types.PaymentProviderPayPal {
		return PayPalStatus("CREATED")
	}
	return StripeStatus("requires_payment_method")
}

func (f *fakeAdapter) completed() ProviderStatus {
	if f.provider == types.PaymentProviderPayPal {
		return PayPalStatus("COMPLETED")
	}
	return StripeStatus("succeeded")
}

func (f *fakeAdapter) Provider() types.PaymentProvider { return f.provider }

func (f *fakeAdapter) Create(_ context.Context, req ChargeRequest) (*Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	ref := fmt.Sprintf("%s_ref_%d", f.provider, f.seq)
	f.statuses[ref] = f.pending()
	f.creates = append(f.creates, req)
	return &Charge{Ref: ref, Status: f.statuses[ref], AmountCents: req.AmountCents, ClientSecret: ref + "_secret", ApprovalURL: "https://approve/" + ref}, nil
}

func (f *fakeAdapter) Capture(ctx context.Context, ref, _ string) (*Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	f.statuses[ref] = f.completed()
	return &Charge{Ref: ref, Status: f.statuses[ref], CaptureID: f.captureID}, nil
}

func (f *fakeAdapter) Lookup(_ context.Context, ref string) (*Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	st, ok := f.statuses[ref]
	if !ok {
		return nil, fmt.Errorf("no such charge %s", ref)
	}
	return &Charge{Ref: ref, Status: st, CaptureID: f.captureID}, nil
}

func (f *fakeAdapter) Refund(_ context.Context, p *models.Payment, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, p.ID)
	return "re_" + p.ID, nil
}

func (f *fakeAdapter) set(ref string, st ProviderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[ref] = st
}

type fakeRevenueCat struct {
	sub *revenuecat.Subscriber
	err error
}

func (f *fakeRevenueCat) GetSubscriber(context.Context, string) (*revenuecat.Subscriber, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	logged []audit.Entry
}

func (f *fakeRecorder) Record(_ context.Context, e audit.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logged = append(f.logged, e)
}

func (f *fakeRecorder) entries() []audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audit.Entry(nil), f.logged...)
}
