// Package qrcode renders event join links as PNG QR codes and stores them.
package qrcode

import (
	"context"
	"fmt"
	"strings"
	"time"

	goqrcode "github.com/skip2/go-qrcode"
	"go.uber.org/fx"

	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	"github.com/Talha654/overlayPix-backend/pkg/config"
)

const pngSize = 256

type Generator struct {
	store   storage.Store
	baseURL string
	now     func() time.Time
}

func New(cfg *config.Config, store storage.Store) *Generator {
	return &Generator{store: store, baseURL: strings.TrimRight(cfg.App.PublicBaseURL, "/"), now: time.Now}
}

// JoinURL is the guest-facing link encoded into the QR code.
func (g *Generator) JoinURL(shareCode string) string {
	return g.baseURL + "/join/" + shareCode
}

// ObjectKey is where the QR PNG of an event is stored.
func (g *Generator) ObjectKey(eventID string) string {
	return fmt.Sprintf("events/%s/qr-%d.png", eventID, g.now().UnixMilli())
}

// JoinQR renders the join link for shareCode and stores it under the event.
// It returns the public URL and the object key.
func (g *Generator) JoinQR(ctx context.Context, eventID, shareCode string) (string, string, error) {
	png, err := goqrcode.Encode(g.JoinURL(shareCode), goqrcode.Medium, pngSize)
	if err != nil {
		return "", "", fmt.Errorf("encode qr: %w", err)
	}
	key := g.ObjectKey(eventID)
	url, err := g.store.Put(ctx, key, png, "image/png")
	if err != nil {
		return "", "", fmt.Errorf("store qr: %w", err)
	}
	return url, key, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
