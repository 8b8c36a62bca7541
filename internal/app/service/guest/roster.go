package guest

import (
	"context"
	"fmt"
	"time"

	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

const ownerDisplayName = "Event Owner"

func guestKey(g *models.Guest) (time.Time, string) {
	return g.CreatedAt, g.ID
}

// ListGuests pages through the guests of an event, newest first. Owner only.
func (s *Service) ListGuests(ctx context.Context, actor types.Actor, eventID string, params pagination.Params) (pagination.Page[*models.Guest], error) {
	var empty pagination.Page[*models.Guest]
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return empty, err
	}
	if !ev.IsOwner(actor.ID) {
		return empty, pkgerrors.New(pkgerrors.CodeForbidden, "Only the event owner can list guests")
	}
	q, err := pagination.Apply(s.db.WithContext(ctx).Model(&models.Guest{}).Where("event_id = ?", ev.ID), params, "")
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var rows []*models.Guest
	if err := q.Find(&rows).Error; err != nil {
		return empty, fmt.Errorf("failed to list guests: %w", err)
	}
	return pagination.BuildPage(rows, params.Limit, guestKey), nil
}

// JoinedEvents pages through the events the caller joined as a guest,
// most recently joined first. Ended events are flipped to expired on the way.
func (s *Service) JoinedEvents(ctx context.Context, actor types.Actor, params pagination.Params) (pagination.Page[*JoinedEvent], error) {
	var empty pagination.Page[*JoinedEvent]
	q, err := pagination.Apply(s.db.WithContext(ctx).Model(&models.Guest{}).Where("guest_id = ?", actor.ID), params, "")
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var rows []*models.Guest
	if err := q.Find(&rows).Error; err != nil {
		return empty, fmt.Errorf("failed to list joined events: %w", err)
	}
	page := pagination.BuildPage(rows, params.Limit, guestKey)

	ids := make([]string, 0, len(page.Items))
	for _, g := range page.Items {
		ids = append(ids, g.EventID)
	}
	byID := make(map[string]*models.Event, len(ids))
	if len(ids) > 0 {
		var events []*models.Event
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&events).Error; err != nil {
			return empty, fmt.Errorf("failed to load joined events: %w", err)
		}
		for _, ev := range events {
			byID[ev.ID] = ev
		}
	}

	lg := logctx.FromCtx(ctx, s.log)
	now := s.now()
	out := pagination.Page[*JoinedEvent]{NextCursor: page.NextCursor, Items: make([]*JoinedEvent, 0, len(page.Items))}
	for _, g := range page.Items {
		ev, ok := byID[g.EventID]
		if !ok {
			continue
		}
		if ev.Status == models.EventStatusActive && !temporal.IsEventActive(ev, now) {
			if _, err := s.expiry.MarkIfEnded(ctx, ev, now); err != nil {
				lg.Warnw("failed to mark event expired", "event_id", ev.ID, "err", err)
				ev.Status = models.EventStatusExpired
			}
		}
		out.Items = append(out.Items, &JoinedEvent{
			EventID:         ev.ID,
			Name:            ev.Name,
			ShareCode:       ev.ShareCode,
			EventDate:       ev.EventDate,
			EventEndDate:    ev.EventEndDate,
			TimeZone:        ev.TimeZone,
			EventPictureURL: ev.EventPictureURL,
			Status:          ev.Status,
			StorageExpired:  temporal.IsStorageExpired(ev, now),
			PhotosUploaded:  g.PhotosUploaded,
			TermsAccepted:   g.TermsAccepted,
			JoinedAt:        g.CreatedAt,
		})
	}
	return out, nil
}

// Consent reports whether the caller has accepted the terms of an event.
// Owners never need to.
func (s *Service) Consent(ctx context.Context, actor types.Actor, eventID string) (*ConsentStatus, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.IsOwner(actor.ID) {
		return &ConsentStatus{EventID: ev.ID, Consented: true, IsOwner: true}, nil
	}
	g, err := s.findGuest(s.db.WithContext(ctx), ev.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return &ConsentStatus{EventID: ev.ID}, nil
	}
	return &ConsentStatus{EventID: ev.ID, Consented: g.TermsAccepted, Guest: g}, nil
}

// PhotosByGuest returns every photo guestID uploaded to an event together
// with their allowance. An empty guestID means the caller.
func (s *Service) PhotosByGuest(ctx context.Context, actor types.Actor, eventID, guestID string) (*UploaderPhotos, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, ev, actor); err != nil {
		return nil, err
	}
	if temporal.IsStorageExpired(ev, s.now()) {
		return nil, storageExpired()
	}
	if guestID == "" {
		guestID = actor.ID
	}
	if !ev.IsOwner(actor.ID) && guestID != actor.ID && !ev.CustomPlan.Permissions.CanViewGallery {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "The gallery of this event is private")
	}

	var info *UploaderInfo
	if ev.IsOwner(guestID) {
		info = &UploaderInfo{GuestID: guestID, Name: ownerDisplayName, IsOwner: true}
	} else {
		g, err := s.findGuest(s.db.WithContext(ctx), ev.ID, guestID)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Guest not found")
		}
		if !g.TermsAccepted {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Consent not accepted")
		}
		info = &UploaderInfo{GuestID: guestID, Name: g.Name, PhotosUploaded: g.PhotosUploaded}
		if per := ev.CustomPlan.PhotosPerGuest; per != nil {
			remaining := max(0, *per-g.PhotosUploaded)
			info.PhotosPerGuest, info.Remaining = per, &remaining
		}
	}

	var photos []*models.Photo
	if err := s.db.WithContext(ctx).
		Where("event_id = ? AND guest_id = ? AND kind = ?", ev.ID, guestID, models.PhotoKindGuest).
		Order("created_at DESC").Order("id DESC").
		Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	if info.IsOwner {
		info.PhotosUploaded = len(photos)
	}
	views, err := s.withLikes(ctx, actor.ID, photos)
	if err != nil {
		return nil, err
	}
	return &UploaderPhotos{Photos: views, Guest: info}, nil
}
