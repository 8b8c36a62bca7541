package qrcode

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	"github.com/Talha654/overlayPix-backend/pkg/config"
)

func TestJoinQR(t *testing.T) {
	store := storage.NewMemoryStore("https://cdn.example.com")
	g := New(&config.Config{App: config.AppConfig{PublicBaseURL: "https://overlaypix.com/"}}, store)
	g.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.Equal(t, "https://overlaypix.com/join/ABCD2345", g.JoinURL("ABCD2345"))

	url, key, err := g.JoinQR(context.Background(), "ev1", "ABCD2345")
	require.NoError(t, err)
	require.Equal(t, "events/ev1/qr-1700000000000.png", key)
	require.Equal(t, "https://cdn.example.com/events/ev1/qr-1700000000000.png", url)
	require.True(t, store.Has(key))
}

func TestJoinQR_IsPNG(t *testing.T) {
	store := &recordingStore{}
	g := New(&config.Config{App: config.AppConfig{PublicBaseURL: "https://x"}}, store)

	_, _, err := g.JoinQR(context.Background(), "ev1", "CODE2345")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(store.body, []byte("\x89PNG")))
	require.Equal(t, "image/png", store.contentType)
}

type recordingStore struct {
	body        []byte
	contentType string
}

func (r *recordingStore) Put(_ context.Context, key string, body []byte, ct string) (string, error) {
	r.body, r.contentType = body, ct
	return "https://x/" + key, nil
}

func (r *recordingStore) Delete(context.Context, string) error { return nil }
