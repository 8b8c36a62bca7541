// Package guest enforces the per-event guest and photo quotas and serves the
// shared gallery.
package guest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/expiry"
	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
	"github.com/Talha654/overlayPix-backend/pkg/tool"
	"github.com/Talha654/overlayPix-backend/pkg/types"
	"github.com/Talha654/overlayPix-backend/pkg/validate"
)

const (
	limitGuest          = "guest"
	limitPhotoPool      = "photo_pool"
	limitPhotosPerGuest = "photos_per_guest"
)

type Service struct {
	db     *gorm.DB
	log    *zap.SugaredLogger
	store  storage.Store
	audit  audit.Recorder
	expiry *expiry.Service
	now    func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, store storage.Store, rec audit.Recorder, exp *expiry.Service) *Service {
	return &Service{db: db, log: log, store: store, audit: rec, expiry: exp, now: time.Now}
}

func quotaExceeded(limit string, current, allowed int) error {
	metrics.IncQuotaRejection(limit)
	msg := map[string]string{
		limitGuest:          "This event has reached its guest limit",
		limitPhotoPool:      "This event has reached its photo limit",
		limitPhotosPerGuest: "You have reached your photo limit for this event",
	}[limit]
	return pkgerrors.New(pkgerrors.CodeQuotaExceeded, msg).WithDetails(map[string]any{
		"limit":   limit,
		"current": current,
		"allowed": allowed,
	})
}

func eventEnded() error {
	return pkgerrors.New(pkgerrors.CodeTemporal, "Event has ended").WithDetails(map[string]any{"reason": "event_ended"})
}

func storageExpired() error {
	return pkgerrors.New(pkgerrors.CodeTemporal, "Event storage has expired").WithDetails(map[string]any{"reason": "storage_expired"})
}

func (s *Service) loadEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var ev models.Event
	if err := s.db.WithContext(ctx).Where("id = ?", eventID).First(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return &ev, nil
}

func (s *Service) eventByShareCode(ctx context.Context, shareCode string) (*models.Event, error) {
	var ev models.Event
	code := strings.ToUpper(strings.TrimSpace(shareCode))
	if err := s.db.WithContext(ctx).Where("share_code = ?", code).First(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Event not found")
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return &ev, nil
}

// ensureActive returns TEMPORAL for an ended event and flips its status.
func (s *Service) ensureActive(ctx context.Context, ev *models.Event, now time.Time) error {
	if temporal.IsEventActive(ev, now) {
		return nil
	}
	if _, err := s.expiry.MarkIfEnded(ctx, ev, now); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("failed to mark event expired", "event_id", ev.ID, "err", err)
	}
	return eventEnded()
}

// findGuest returns the guest row of actor in ev, or nil when they never joined.
func (s *Service) findGuest(db *gorm.DB, eventID, guestID string) (*models.Guest, error) {
	var g models.Guest
	err := db.Where("event_id = ? AND guest_id = ?", eventID, guestID).First(&g).Error
	if err == nil {
		return &g, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to load guest: %w", err)
}

// requireMember lets the owner and joined guests through.
func (s *Service) requireMember(ctx context.Context, ev *models.Event, actor types.Actor) (*models.Guest, error) {
	if ev.IsOwner(actor.ID) {
		return nil, nil
	}
	g, err := s.findGuest(s.db.WithContext(ctx), ev.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Join the event before accessing it")
	}
	return g, nil
}

func consent(tx *gorm.DB, eventID string, actor types.Actor, now time.Time) error {
	err := tx.Model(&models.Guest{}).
		Where("event_id = ? AND guest_id = ?", eventID, actor.ID).
		Updates(map[string]any{"terms_accepted": true, "is_anonymous": actor.Anonymous, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("failed to record consent: %w", err)
	}
	return nil
}

// Join admits actor to the event behind shareCode. Joining again only
// refreshes consent and never counts twice.
func (s *Service) Join(ctx context.Context, actor types.Actor, shareCode string, req JoinRequest) (*JoinResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	ev, err := s.eventByShareCode(ctx, shareCode)
	if err != nil {
		return nil, err
	}
	res := &JoinResult{EventID: ev.ID, GuestCount: ev.GuestCount, GuestLimit: ev.CustomPlan.GuestLimit}
	if ev.IsOwner(actor.ID) {
		res.IsOwner = true
		return res, nil
	}
	now := s.now()
	if err := s.ensureActive(ctx, ev, now); err != nil {
		return nil, err
	}
	lg := logctx.FromCtx(ctx, s.log)
	now = now.UTC()

	name := strings.TrimSpace(req.Name)
	if name == "" && actor.Anonymous {
		name = "Anonymous"
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findGuest(tx, ev.ID, actor.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return consent(tx, ev.ID, actor, now)
		}
		upd := tx.Model(&models.Event{}).
			Where("id = ? AND guest_count < custom_plan_guest_limit", ev.ID).
			Updates(map[string]any{"guest_count": gorm.Expr("guest_count + 1"), "updated_at": now})
		if upd.Error != nil {
			return fmt.Errorf("failed to reserve guest slot: %w", upd.Error)
		}
		if upd.RowsAffected == 0 {
			var current int
			if err := tx.Model(&models.Event{}).Where("id = ?", ev.ID).Pluck("guest_count", &current).Error; err != nil {
				return fmt.Errorf("failed to read guest count: %w", err)
			}
			return quotaExceeded(limitGuest, current, ev.CustomPlan.GuestLimit)
		}
		g := &models.Guest{
			ID:            tool.GenerateUUIDV7(),
			EventID:       ev.ID,
			GuestID:       actor.ID,
			Name:          name,
			TermsAccepted: true,
			IsAnonymous:   actor.Anonymous,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Create(g).Error; err != nil {
			return fmt.Errorf("failed to save guest: %w", err)
		}
		res.Joined = true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent join of the same user won; its slot reservation stands
		res.Joined = false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return consent(tx, ev.ID, actor, now)
		})
	}
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeQuotaExceeded) {
			lg.Infow("guest join rejected", "event_id", ev.ID, "guest_id", actor.ID, "limit", ev.CustomPlan.GuestLimit)
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", ev.ID).Pluck("guest_count", &res.GuestCount).Error; err != nil {
		lg.Warnw("failed to reload guest count", "event_id", ev.ID, "err", err)
	}
	lg.Infow("guest joined", "event_id", ev.ID, "guest_id", actor.ID, "new", res.Joined, "guest_count", res.GuestCount)
	s.audit.Record(ctx, audit.Entry{
		Type:    models.AuditLogTypeGuestJoin, Actor: actor, EventID: ev.ID, EventName: ev.Name,
		Details: map[string]any{"new": res.Joined, "guestCount": res.GuestCount, "anonymous": actor.Anonymous},
	})
	return res, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
