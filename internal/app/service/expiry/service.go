// Package expiry flips events whose window has ended to the expired status.
// Discovery is lazy on read; the sweeper only catches events nobody touches.
package expiry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/app/service/temporal"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/pkg/config"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/metrics"
)

const defaultBatchSize = 200

type Service struct {
	db        *gorm.DB
	log       *zap.SugaredLogger
	batchSize int
	now       func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config) *Service {
	batch := cfg.Expiry.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Service{db: db, log: log, batchSize: batch, now: time.Now}
}

// MarkIfEnded expires ev when it has ended at now. It reports whether ev is
// expired afterwards and updates ev.Status in place.
func (s *Service) MarkIfEnded(ctx context.Context, ev *models.Event, now time.Time) (bool, error) {
	if ev == nil {
		return false, nil
	}
	if ev.Status == models.EventStatusExpired {
		return true, nil
	}
	if temporal.IsEventActive(ev, now) {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND status = ?", ev.ID, models.EventStatusActive).
		Updates(map[string]any{"status": models.EventStatusExpired, "updated_at": now.UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to expire event: %w", res.Error)
	}
	ev.Status = models.EventStatusExpired
	if res.RowsAffected > 0 {
		logctx.FromCtx(ctx, s.log).Infow("event expired", "event_id", ev.ID)
	}
	return true, nil
}

// Sweep expires active events whose stored end is in the past and returns
// how many were flipped.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	defer metrics.ObserveBusinessProcess("expiry", "sweep", time.Now())
	now := s.now().UTC()
	total := 0
	for {
		var ids []string
		if err := s.db.WithContext(ctx).Model(&models.Event{}).
			Where("status = ? AND event_end_date IS NOT NULL AND event_end_date < ?", models.EventStatusActive, now).
			Order("event_end_date ASC").
			Limit(s.batchSize).
			Pluck("id", &ids).Error; err != nil {
			return total, fmt.Errorf("failed to scan ended events: %w", err)
		}
		if len(ids) == 0 {
			return total, nil
		}
		res := s.db.WithContext(ctx).Model(&models.Event{}).
			Where("id IN ? AND status = ?", ids, models.EventStatusActive).
			Updates(map[string]any{"status": models.EventStatusExpired, "updated_at": now})
		if res.Error != nil {
			return total, fmt.Errorf("failed to expire events: %w", res.Error)
		}
		total += int(res.RowsAffected)
		if len(ids) < s.batchSize {
			return total, nil
		}
	}
}

func runSweeper(lc fx.Lifecycle, s *Service, cfg *config.Config, log *zap.SugaredLogger) {
	interval := cfg.Expiry.SweepInterval
	if interval <= 0 {
		log.Infow("expiry sweeper disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Infow("starting expiry sweeper", "interval", interval)
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						n, err := s.Sweep(ctx)
						if err != nil {
							log.Errorw("expiry sweep failed", "err", err)
							continue
						}
						if n > 0 {
							log.Infow("expiry sweep finished", "expired", n)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Infow("stopping expiry sweeper")
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(runSweeper),
)
