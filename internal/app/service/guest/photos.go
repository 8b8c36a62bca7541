package guest

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/tool"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

const defaultPhotoContentType = "image/jpeg"

func photoKey(eventID, photoID string, now time.Time, ext string) string {
	return fmt.Sprintf("events/%s/photos/%s/photo-%d%s", eventID, photoID, now.UnixMilli(), ext)
}

// UploadPhoto stores a photo for the owner or a consenting guest. The quota
// counters are incremented conditionally in the same transaction as the
// photo row, so concurrent uploads can never overshoot a limit.
func (s *Service) UploadPhoto(ctx context.Context, actor types.Actor, eventID string, obj *storage.Object, overlayID string) (*models.Photo, error) {
	defer metrics.ObserveBusinessProcess("photo", "upload", time.Now())
	if obj.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No photo provided")
	}
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.ensureActive(ctx, ev, now); err != nil {
		return nil, err
	}
	if temporal.IsStorageExpired(ev, now) {
		return nil, storageExpired()
	}
	if ev.RemainingPhotos() <= 0 {
		return nil, quotaExceeded(limitPhotoPool, ev.PhotoCount, ev.CustomPlan.PhotoPool)
	}

	isOwner := ev.IsOwner(actor.ID)
	perGuest := ev.CustomPlan.PhotosPerGuest
	guestName := actor.DisplayEmail()
	if !isOwner {
		g, err := s.findGuest(s.db.WithContext(ctx), ev.ID, actor.ID)
		if err != nil {
			return nil, err
		}
		if g == nil || !g.TermsAccepted {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Terms not accepted")
		}
		if perGuest != nil && g.PhotosUploaded >= *perGuest {
			return nil, quotaExceeded(limitPhotosPerGuest, g.PhotosUploaded, *perGuest)
		}
		if g.Name != "" {
			guestName = g.Name
		}
	}
	if overlayID == "" {
		overlayID = ev.OverlayID
	}

	lg := logctx.FromCtx(ctx, s.log)
	now = now.UTC()
	photo := &models.Photo{
		ID:          tool.GenerateUUIDV7(),
		EventID:     ev.ID,
		GuestID:     actor.ID,
		GuestName:   guestName,
		OverlayID:   overlayID,
		Kind:        models.PhotoKindGuest,
		IsAnonymous: actor.Anonymous,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = defaultPhotoContentType
	}
	photo.ObjectKey = photoKey(ev.ID, photo.ID, now, obj.Ext())
	url, err := s.store.Put(ctx, photo.ObjectKey, obj.Body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}
	photo.PhotoURL = url

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&models.Event{}).
			Where("id = ? AND photo_count < custom_plan_photo_pool", ev.ID).
			Updates(map[string]any{"photo_count": gorm.Expr("photo_count + 1"), "updated_at": now})
		if upd.Error != nil {
			return fmt.Errorf("failed to reserve photo slot: %w", upd.Error)
		}
		if upd.RowsAffected == 0 {
			return quotaExceeded(limitPhotoPool, ev.CustomPlan.PhotoPool, ev.CustomPlan.PhotoPool)
		}
		if !isOwner {
			q := tx.Model(&models.Guest{}).Where("event_id = ? AND guest_id = ?", ev.ID, actor.ID)
			if perGuest != nil {
				q = q.Where("photos_uploaded < ?", *perGuest)
			}
			upd := q.Updates(map[string]any{"photos_uploaded": gorm.Expr("photos_uploaded + 1"), "updated_at": now})
			if upd.Error != nil {
				return fmt.Errorf("failed to count guest photo: %w", upd.Error)
			}
			if upd.RowsAffected == 0 {
				return quotaExceeded(limitPhotosPerGuest, *perGuest, *perGuest)
			}
		}
		if err := tx.Create(photo).Error; err != nil {
			return fmt.Errorf("failed to save photo: %w", err)
		}
		return nil
	})
	if err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), photo.ObjectKey); derr != nil {
			lg.Warnw("failed to remove orphaned photo", "key", photo.ObjectKey, "err", derr)
		}
		return nil, err
	}

	lg.Infow("photo uploaded", "event_id", ev.ID, "photo_id", photo.ID, "guest_id", actor.ID, "owner", isOwner)
	s.audit.Record(ctx, audit.Entry{
		Type:    models.AuditLogTypePhotoUpload, Actor: actor, EventID: ev.ID, EventName: ev.Name,
		Details: map[string]any{"photoId": photo.ID, "owner": isOwner},
	})
	return photo, nil
}

// ListPhotos pages through an event gallery, newest first.
func (s *Service) ListPhotos(ctx context.Context, actor types.Actor, eventID string, params pagination.Params) (pagination.Page[*PhotoView], error) {
	var empty pagination.Page[*PhotoView]
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return empty, err
	}
	if _, err := s.requireMember(ctx, ev, actor); err != nil {
		return empty, err
	}
	if temporal.IsStorageExpired(ev, s.now()) {
		return empty, storageExpired()
	}
	if !ev.IsOwner(actor.ID) && !ev.CustomPlan.Permissions.CanViewGallery {
		return empty, pkgerrors.New(pkgerrors.CodeForbidden, "The gallery of this event is private")
	}

	q, err := pagination.Apply(s.db.WithContext(ctx).Model(&models.Photo{}).
		Where("event_id = ? AND kind = ?", ev.ID, models.PhotoKindGuest), params, "")
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var rows []*models.Photo
	if err := q.Find(&rows).Error; err != nil {
		return empty, fmt.Errorf("failed to list photos: %w", err)
	}
	page := pagination.BuildPage(rows, params.Limit, func(p *models.Photo) (time.Time, string) {
		return p.CreatedAt, p.ID
	})

	views, err := s.withLikes(ctx, actor.ID, page.Items)
	if err != nil {
		return empty, err
	}
	return pagination.Page[*PhotoView]{Items: views, NextCursor: page.NextCursor}, nil
}

// withLikes marks the photos viewerID has liked.
func (s *Service) withLikes(ctx context.Context, viewerID string, photos []*models.Photo) ([]*PhotoView, error) {
	ids := make([]string, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
	}
	liked := map[string]bool{}
	if len(ids) > 0 {
		var likedIDs []string
		if err := s.db.WithContext(ctx).Model(&models.PhotoLike{}).
			Where("guest_id = ? AND photo_id IN ?", viewerID, ids).
			Pluck("photo_id", &likedIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to load likes: %w", err)
		}
		for _, id := range likedIDs {
			liked[id] = true
		}
	}
	out := make([]*PhotoView, 0, len(photos))
	for _, p := range photos {
		out = append(out, &PhotoView{Photo: p, IsLiked: liked[p.ID]})
	}
	return out, nil
}

// GuestPhotos returns the caller's own uploads and what is left of their allowance.
func (s *Service) GuestPhotos(ctx context.Context, actor types.Actor, eventID string) (*MyPhotos, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	g, err := s.requireMember(ctx, ev, actor)
	if err != nil {
		return nil, err
	}
	if temporal.IsStorageExpired(ev, s.now()) {
		return nil, storageExpired()
	}

	var photos []*models.Photo
	if err := s.db.WithContext(ctx).
		Where("event_id = ? AND guest_id = ? AND kind = ?", ev.ID, actor.ID, models.PhotoKindGuest).
		Order("created_at DESC").Order("id DESC").
		Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}

	out := &MyPhotos{Photos: photos, PhotosUploaded: len(photos), Remaining: ev.RemainingPhotos()}
	if g != nil {
		out.PhotosUploaded = g.PhotosUploaded
		if per := ev.CustomPlan.PhotosPerGuest; per != nil {
			out.PhotosPerGuest = per
			out.Remaining = min(out.Remaining, max(0, *per-g.PhotosUploaded))
		}
	}
	return out, nil
}
