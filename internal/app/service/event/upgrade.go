package event

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/pricing"
	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/types"
	"github.com/Talha654/overlayPix-backend/pkg/validate"
)

func customPlanColumns(cp models.CustomPlan) map[string]any {
	return map[string]any{
		"custom_plan_guest_limit":      cp.GuestLimit,
		"custom_plan_photo_pool":       cp.PhotoPool,
		"custom_plan_photos_per_guest": cp.PhotosPerGuest,
		"custom_plan_storage_days":     cp.StorageDays,
		"custom_plan_can_view_gallery": cp.Permissions.CanViewGallery,
		"custom_plan_can_share_photos": cp.Permissions.CanSharePhotos,
		"custom_plan_can_download":     cp.Permissions.CanDownload,
	}
}

// Upgrade moves an active event to a new plan. Guest and photo counters are kept.
func (s *Service) Upgrade(ctx context.Context, actor types.Actor, eventID string, req *UpgradeRequest) (*models.Event, error) {
	if req == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No upgrade data provided")
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.FinalPrice.IsNegative() {
		return nil, fieldError("finalPrice", "must be at least 0")
	}
	ev, err := s.loadOwned(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	lg := logctx.FromCtx(ctx, s.log)

	now := s.now()
	if !temporal.IsEventActive(ev, now) {
		if _, err := s.expiry.MarkIfEnded(ctx, ev, now); err != nil {
			lg.Warnw("failed to mark event expired", "event_id", ev.ID, "err", err)
		}
		return nil, pkgerrors.New(pkgerrors.CodeTemporal, "Event has ended").WithDetails(map[string]any{"reason": "event_ended"})
	}

	newCents := pricing.ToCents(req.FinalPrice)
	if newCents < ev.FinalPriceCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "downgrades are not supported").
			WithDetails(map[string]any{"currentPriceCents": ev.FinalPriceCents, "finalPriceCents": newCents})
	}
	provider, ref := req.Payment.Provider(), req.Payment.Ref()
	var paid *models.Payment
	if ref != "" {
		paid, err = s.payments.VerifyUpgrade(ctx, provider, ref, actor.ID, ev.ID)
		if err != nil {
			return nil, err
		}
	} else if newCents > ev.FinalPriceCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "A payment is required for this upgrade")
	}
	lg.Warnw("event upgrade applied without plan bound validation", "event_id", ev.ID, "plan_id", req.PlanID,
		"previous_price_cents", ev.FinalPriceCents, "final_price_cents", newCents, "price_validated", false)

	basePlanName := req.PlanID
	var plan models.Plan
	if err := s.db.WithContext(ctx).Where("id = ?", req.PlanID).First(&plan).Error; err == nil {
		basePlanName = plan.Name
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	updates := customPlanColumns(req.CustomPlan)
	updates["plan_id"] = req.PlanID
	updates["base_plan_name"] = basePlanName
	updates["final_price_cents"] = newCents
	updates["updated_at"] = now.UTC()
	previous := ev.FinalPriceCents

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Event{}).Where("id = ?", ev.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to upgrade event: %w", err)
		}
		if paid != nil {
			if err := s.payments.MarkUsedTx(tx, paid.ID, ev.ID); err != nil {
				return err
			}
		}
		return tx.Where("id = ?", ev.ID).First(ev).Error
	})
	if err != nil {
		return nil, err
	}

	details := map[string]any{"planId": req.PlanID, "previousPriceCents": previous, "finalPriceCents": newCents}
	if paid != nil {
		details["provider"] = paid.Provider
		details["ref"] = paid.ID
		details["upgradeDeltaCents"] = paid.UpgradeDeltaCents
	}
	lg.Infow("event upgraded", "event_id", ev.ID, "plan_id", req.PlanID, "final_price_cents", newCents)
	s.audit.Record(ctx, audit.Entry{Type: models.AuditLogTypeEventUpgrade, Actor: actor, EventID: ev.ID, EventName: ev.Name, Details: details})
	if paid != nil {
		s.audit.Record(ctx, audit.Entry{Type: models.AuditLogTypePaymentUpgrade, Actor: actor, EventID: ev.ID, EventName: ev.Name, Details: details})
	}
	return ev, nil
}
