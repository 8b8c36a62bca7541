// Package revenuecat reads subscriber state from the RevenueCat REST API.
package revenuecat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Talha654/overlayPix-backend/pkg/config"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
)

var (
	ErrNotConfigured      = errors.New("revenuecat secret key is not configured")
	ErrSubscriberNotFound = errors.New("revenuecat subscriber not found")
)

type Entitlement struct {
	ExpiresDate       *time.Time `json:"expires_date"`
	PurchaseDate      *time.Time `json:"purchase_date"`
	ProductIdentifier string     `json:"product_identifier"`
}

// IsActive reports whether the entitlement has no expiry or expires after now.
func (e Entitlement) IsActive(now time.Time) bool {
	return e.ExpiresDate == nil || e.ExpiresDate.After(now)
}

type NonSubscription struct {
	ID                         string    `json:"id"`
	PurchaseDate               time.Time `json:"purchase_date"`
	Store                      string    `json:"store"`
	StoreTransactionIdentifier string    `json:"store_transaction_identifier"`
	IsSandbox                  bool      `json:"is_sandbox"`
}

type Subscriber struct {
	OriginalAppUserID string                       `json:"original_app_user_id"`
	Entitlements      map[string]Entitlement       `json:"entitlements"`
	NonSubscriptions  map[string][]NonSubscription `json:"non_subscriptions"`
}

type subscriberResponse struct {
	Subscriber Subscriber `json:"subscriber"`
}

// Client fetches subscriber state.
type Client interface {
	GetSubscriber(ctx context.Context, appUserID string) (*Subscriber, error)
}

type restClient struct {
	http    *http.Client
	baseURL string
	key     string
	log     *zap.SugaredLogger
}

func New(cfg *config.Config, log *zap.SugaredLogger) Client {
	return NewWithHTTPClient(cfg.RevenueCat, &http.Client{Timeout: cfg.Payment.ProviderTimeout}, log)
}

func NewWithHTTPClient(cfg config.RevenueCatConfig, hc *http.Client, log *zap.SugaredLogger) Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.revenuecat.com/v1"
	}
	return &restClient{http: hc, baseURL: base, key: cfg.SecretKey, log: log}
}

func (c *restClient) GetSubscriber(ctx context.Context, appUserID string) (*Subscriber, error) {
	if c.key == "" {
		return nil, ErrNotConfigured
	}
	defer metrics.ObserveBusinessProcess("revenuecat", "get_subscriber", time.Now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/subscribers/"+url.PathEscape(appUserID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("revenuecat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSubscriberNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("revenuecat returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out subscriberResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode revenuecat subscriber: %w", err)
	}
	return &out.Subscriber, nil
}

// ActiveEntitlements returns the names of entitlements active at now.
func (s *Subscriber) ActiveEntitlements(now time.Time) []string {
	if s == nil {
		return nil
	}
	var names []string
	for name, e := range s.Entitlements {
		if e.IsActive(now) {
			names = append(names, name)
		}
	}
	return names
}

// LatestPurchase returns the most recent one-time purchase of productID.
func (s *Subscriber) LatestPurchase(productID string) (NonSubscription, bool) {
	if s == nil {
		return NonSubscription{}, false
	}
	purchases := s.NonSubscriptions[productID]
	if len(purchases) == 0 {
		return NonSubscription{}, false
	}
	latest := purchases[0]
	for _, p := range purchases[1:] {
		if p.PurchaseDate.After(latest.PurchaseDate) {
			latest = p
		}
	}
	return latest, true
}

var Module = fx.Options(
	fx.Provide(New),
)
