package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/types"
	"github.com/Talha654/overlayPix-backend/pkg/validate"
)

// RestrictedFields can only change through checkout or the upgrade flow.
var RestrictedFields = []string{
	"planId", "finalPrice", "basePlanName", "payment", "qrCodeUrl", "shareCode", "status", "userId",
	"createdAt", "stripeCustomerId", "stripePaymentIntentId", "customPlan", "originalPrice",
	"discountCode", "discountAmount", "guestCount", "photoCount", "eventEndDate",
}

var AllowedFields = []string{
	"name", "type", "eventDate", "eventStartTime", "eventEndTime", "timeZone", "brandColor",
	"typography", "fontStyle", "fontSize", "eventPictureUrl", "overlay", "overlayId", "overlayUrl", "overlayName",
}

// stringColumns maps plain string patch keys to their columns.
var stringColumns = map[string]string{
	"type":            "type",
	"brandColor":      "brand_color",
	"typography":      "typography",
	"fontStyle":       "font_style",
	"eventPictureUrl": "event_picture_url",
	"overlayUrl":      "overlay_url",
	"overlayName":     "overlay_name",
}

func (s *Service) loadOwned(ctx context.Context, actor types.Actor, eventID string) (*models.Event, error) {
	var ev models.Event
	if err := s.db.WithContext(ctx).Where("id = ?", eventID).First(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if !ev.IsOwner(actor.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Access denied. You can only manage your own events.")
	}
	return &ev, nil
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: msg})
}

func patchString(patch map[string]any, key string) (string, error) {
	s, ok := patch[key].(string)
	if !ok {
		return "", fieldError(key, "must be a string")
	}
	return s, nil
}

func patchInt(patch map[string]any, key string) (int, error) {
	switch v := patch[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fieldError(key, "must be an integer")
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fieldError(key, "must be an integer")
		}
		return int(n), nil
	}
	return 0, fieldError(key, "must be a number")
}

// Update applies an owner patch. Restricted keys reject the whole patch.
func (s *Service) Update(ctx context.Context, actor types.Actor, eventID string, in UpdateInput) (*models.Event, error) {
	ev, err := s.loadOwned(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	lg := logctx.FromCtx(ctx, s.log)
	patch := in.Patch

	keys := lo.Keys(patch)
	sort.Strings(keys)
	if restricted := lo.Filter(keys, func(k string, _ int) bool { return slices.Contains(RestrictedFields, k) }); len(restricted) > 0 {
		lg.Warnw("restricted event fields rejected", "event_id", ev.ID, "fields", restricted)
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Cannot update plan-related fields through this endpoint").WithDetails(map[string]any{
			"restrictedFields": restricted,
			"allowedFields":    AllowedFields,
			"message":          "Use the upgrade endpoint for plan changes",
		})
	}
	if unknown := lo.Without(keys, AllowedFields...); len(unknown) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Unknown fields in update").WithDetails(map[string]any{
			"unknownFields": unknown,
			"allowedFields": AllowedFields,
		})
	}
	if len(patch) == 0 && in.Overlay.Empty() && in.Picture.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No update data provided")
	}

	updates := map[string]any{}
	if _, ok := patch["name"]; ok {
		name, err := patchString(patch, "name")
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if len(name) < 3 || len(name) > 100 {
			return nil, fieldError("name", "must be between 3 and 100 characters")
		}
		updates["name"] = name
	}
	for key, col := range stringColumns {
		if _, ok := patch[key]; !ok {
			continue
		}
		v, err := patchString(patch, key)
		if err != nil {
			return nil, err
		}
		updates[col] = v
	}
	if _, ok := patch["fontSize"]; ok {
		size, err := patchInt(patch, "fontSize")
		if err != nil {
			return nil, err
		}
		if size < 8 || size > 72 {
			return nil, fieldError("fontSize", "must be between 8 and 72")
		}
		updates["font_size"] = size
	}

	// time fields are re-validated together and the stored instants recomputed
	date, start, end, tz := ev.EventDate, ev.EventStartTime, ev.EventEndTime, ev.TimeZone
	timeChanged := false
	if raw, ok := patch["eventDate"]; ok {
		t, err := temporal.NormalizeInstant(raw)
		if err != nil {
			return nil, fieldError("eventDate", "must be a valid date")
		}
		date, timeChanged = t, true
	}
	for key, dst := range map[string]*string{"eventStartTime": &start, "eventEndTime": &end} {
		if _, ok := patch[key]; !ok {
			continue
		}
		v, err := patchString(patch, key)
		if err != nil {
			return nil, err
		}
		if !validate.IsClock(v) {
			return nil, fieldError(key, "must be a time of day in HH:MM format")
		}
		*dst, timeChanged = v, true
	}
	if _, ok := patch["timeZone"]; ok {
		v, err := patchString(patch, "timeZone")
		if err != nil {
			return nil, err
		}
		if _, err := temporal.LoadZone(v); err != nil {
			return nil, fieldError("timeZone", "must be a valid IANA time zone")
		}
		tz, timeChanged = v, true
	}
	if timeChanged {
		w, err := temporal.ComposeWindow(date, start, end, tz)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		updates["event_date"] = date.UTC()
		updates["event_start_time"] = start
		updates["event_end_time"] = end
		updates["time_zone"] = tz
		updates["event_end_date"] = w.End
	}

	for _, key := range []string{"overlay", "overlayId"} {
		if _, ok := patch[key]; !ok || !in.Overlay.Empty() {
			continue
		}
		ref, err := patchString(patch, key)
		if err != nil {
			return nil, err
		}
		ov, err := s.lookupOverlay(ctx, ref)
		if err != nil {
			return nil, err
		}
		updates["overlay_id"] = ov.ID
		updates["overlay_url"] = ov.URL
	}

	now := s.now().UTC()
	up := &uploads{store: s.store}
	overlayName, _ := patch["overlayName"].(string)
	newOverlay, err := up.overlay(ctx, in.Overlay, overlayName, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if newOverlay != nil {
		updates["overlay_id"] = newOverlay.ID
		updates["overlay_url"] = newOverlay.URL
	}
	banner, err := up.banner(ctx, in.Picture, ev.ID, actor.ID, now)
	if err != nil {
		up.cleanup(ctx, lg)
		return nil, err
	}
	if banner != nil {
		updates["event_picture_url"] = banner.PhotoURL
	}
	updates["updated_at"] = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newOverlay != nil {
			if err := tx.Create(newOverlay).Error; err != nil {
				return fmt.Errorf("failed to save overlay: %w", err)
			}
		}
		if banner != nil {
			if err := tx.Create(banner).Error; err != nil {
				return fmt.Errorf("failed to save event picture: %w", err)
			}
		}
		if err := tx.Model(&models.Event{}).Where("id = ?", ev.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update event: %w", err)
		}
		return tx.Where("id = ?", ev.ID).First(ev).Error
	})
	if err != nil {
		up.cleanup(ctx, lg)
		return nil, err
	}

	fields := lo.Keys(updates)
	sort.Strings(fields)
	lg.Infow("event updated", "event_id", ev.ID, "fields", fields)
	s.audit.Record(ctx, audit.Entry{
		Type:    models.AuditLogTypeEventUpdate, Actor: actor, EventID: ev.ID, EventName: ev.Name,
		Details: map[string]any{"updatedFields": fields},
	})
	return ev, nil
}
