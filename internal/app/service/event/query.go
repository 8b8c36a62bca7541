package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

// refreshStatus flips ev to expired when its window has passed. Failures are
// logged; the in-memory status is still corrected.
func (s *Service) refreshStatus(ctx context.Context, ev *models.Event, now time.Time) {
	if _, err := s.expiry.MarkIfEnded(ctx, ev, now); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("failed to mark event expired", "event_id", ev.ID, "err", err)
		if !temporal.IsEventActive(ev, now) {
			ev.Status = models.EventStatusExpired
		}
	}
}

func (s *Service) Get(ctx context.Context, actor types.Actor, eventID string) (*View, error) {
	ev, err := s.loadOwned(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	s.refreshStatus(ctx, ev, now)
	view := &View{
		Event:          ev,
		IsActive:       temporal.IsEventActive(ev, now),
		StorageExpired: temporal.IsStorageExpired(ev, now),
	}
	if exp, err := temporal.StorageExpiry(ev); err == nil {
		view.StorageExpiresAt = &exp
	}
	return view, nil
}

// GetByShareCode is the guest entry point. Any authenticated caller holding
// the code may read it.
func (s *Service) GetByShareCode(ctx context.Context, actor types.Actor, shareCode string) (*GuestView, error) {
	var ev models.Event
	code := strings.ToUpper(strings.TrimSpace(shareCode))
	if err := s.db.WithContext(ctx).Where("share_code = ?", code).First(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	now := s.now()
	s.refreshStatus(ctx, &ev, now)

	view := &GuestView{
		EventID:         ev.ID,
		Name:            ev.Name,
		Type:            ev.Type,
		EventDate:       ev.EventDate,
		EventStartTime:  ev.EventStartTime,
		EventEndTime:    ev.EventEndTime,
		EventEndDate:    ev.EventEndDate,
		TimeZone:        ev.TimeZone,
		BrandColor:      ev.BrandColor,
		Typography:      ev.Typography,
		FontStyle:       ev.FontStyle,
		FontSize:        ev.FontSize,
		EventPictureURL: ev.EventPictureURL,
		OverlayID:       ev.OverlayID,
		OverlayURL:      ev.OverlayURL,
		Status:          ev.Status,
		IsActive:        temporal.IsEventActive(&ev, now),
		StorageExpired:  temporal.IsStorageExpired(&ev, now),
		GuestLimit:      ev.CustomPlan.GuestLimit,
		GuestCount:      ev.GuestCount,
		PhotosPerGuest:  ev.CustomPlan.PhotosPerGuest,
		Permissions:     ev.CustomPlan.Permissions,
		IsOwner:         ev.IsOwner(actor.ID),
	}
	if view.IsOwner {
		view.Consented = true
		return view, nil
	}

	remaining := ev.RemainingPhotos()
	var guest models.Guest
	err := s.db.WithContext(ctx).Where("event_id = ? AND guest_id = ?", ev.ID, actor.ID).First(&guest).Error
	switch {
	case err == nil:
		view.Consented = guest.TermsAccepted
		if per := ev.CustomPlan.PhotosPerGuest; per != nil {
			remaining = min(remaining, max(0, *per-guest.PhotosUploaded))
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if per := ev.CustomPlan.PhotosPerGuest; per != nil {
			remaining = min(remaining, *per)
		}
	default:
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}
	view.RemainingPhotos = &remaining
	return view, nil
}

// ListOwned pages through the caller's events, newest first.
func (s *Service) ListOwned(ctx context.Context, actor types.Actor, params pagination.Params) (pagination.Page[*models.Event], error) {
	q, err := pagination.Apply(s.db.WithContext(ctx).Model(&models.Event{}).Where("user_id = ?", actor.ID), params, "")
	if err != nil {
		return pagination.Page[*models.Event]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var rows []*models.Event
	if err := q.Find(&rows).Error; err != nil {
		return pagination.Page[*models.Event]{}, fmt.Errorf("failed to list events: %w", err)
	}
	return pagination.BuildPage(rows, params.Limit, func(e *models.Event) (time.Time, string) {
		return e.CreatedAt, e.ID
	}), nil
}
