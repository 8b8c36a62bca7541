package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/tool"
)

// overlayIDFromRef accepts an overlay id or its public URL. For URLs ending
// in a file name the id is the parent path segment.
func overlayIDFromRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "https://") {
		return ref
	}
	var parts []string
	for _, p := range strings.Split(strings.TrimPrefix(ref, "https://"), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return ""
	}
	last := parts[len(parts)-1]
	if strings.Contains(last, ".") {
		return parts[len(parts)-2]
	}
	return last
}

func (s *Service) lookupOverlay(ctx context.Context, ref string) (*models.Overlay, error) {
	id := overlayIDFromRef(ref)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Overlay not found")
	}
	var ov models.Overlay
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&ov).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Overlay not found")
		}
		return nil, fmt.Errorf("failed to load overlay: %w", err)
	}
	return &ov, nil
}

// uploads tracks blobs put during one request so they can be removed if the
// database write fails.
type uploads struct {
	store storage.Store
	keys  []string
}

func (u *uploads) put(ctx context.Context, key string, obj *storage.Object) (string, error) {
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	url, err := u.store.Put(ctx, key, obj.Body, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	u.keys = append(u.keys, key)
	return url, nil
}

// overlay stores an uploaded overlay image and returns the user overlay row to insert.
func (u *uploads) overlay(ctx context.Context, obj *storage.Object, name, userID string, now time.Time) (*models.Overlay, error) {
	if obj.Empty() {
		return nil, nil
	}
	id := tool.GenerateUUIDV7()
	url, err := u.put(ctx, fmt.Sprintf("useroverlays/%s/overlay-%d.png", id, now.UnixMilli()), obj)
	if err != nil {
		return nil, err
	}
	return &models.Overlay{
		ID:         id,
		Source:     models.OverlaySourceUser,
		Name:       name,
		URL:        url,
		UploadedBy: userID,
		CreatedAt:  now,
	}, nil
}

// banner stores an event picture and returns its photo row.
func (u *uploads) banner(ctx context.Context, obj *storage.Object, eventID, userID string, now time.Time) (*models.Photo, error) {
	if obj.Empty() {
		return nil, nil
	}
	key := fmt.Sprintf("events/%s/banner-%d.png", eventID, now.UnixMilli())
	url, err := u.put(ctx, key, obj)
	if err != nil {
		return nil, err
	}
	return &models.Photo{
		ID:        tool.GenerateUUIDV7(),
		EventID:   eventID,
		GuestID:   userID,
		PhotoURL:  url,
		ObjectKey: key,
		Kind:      models.PhotoKindBanner,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *uploads) cleanup(ctx context.Context, log *zap.SugaredLogger) {
	bg := context.WithoutCancel(ctx)
	for _, key := range u.keys {
		if err := u.store.Delete(bg, key); err != nil {
			log.Warnw("failed to delete orphaned upload", "key", key, "err", err)
		}
	}
	u.keys = nil
}
