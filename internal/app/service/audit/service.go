// Package audit records business events (event creation, payments, guest
// activity) to the audit_log table.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/tool"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

// Entry is one audit record to write.
type Entry struct {
	Type      models.AuditLogType
	Actor     types.Actor
	EventID   string
	EventName string
	Status    models.AuditLogStatus
	Details   map[string]any
}

// Recorder is the audit sink used by services. Record never fails the caller.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type ListFilter struct {
	Type    models.AuditLogType `form:"type"`
	EventID string              `form:"eventId"`
	ActorID string              `form:"actorId"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	wg  sync.WaitGroup
	now func() time.Time
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// Record asynchronously persists e. Failures are logged with the request logger.
func (s *Service) Record(ctx context.Context, e Entry) {
	row := &models.AuditLog{
		ID:         tool.GenerateUUIDV7(),
		Type:       e.Type,
		ActorID:    e.Actor.ID,
		ActorEmail: e.Actor.DisplayEmail(),
		EventID:    e.EventID,
		EventName:  e.EventName,
		Status:     e.Status,
		Details:    e.Details,
		TraceID:    logctx.TraceID(ctx),
		CreatedAt:  s.now().UTC(),
	}
	if row.Status == "" {
		row.Status = models.AuditLogStatusSuccess
	}
	// the request may finish before the write does
	bg := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.db.WithContext(bg).Create(row).Error; err != nil {
			logctx.FromCtx(bg, s.log).Errorw("failed to save audit log", "type", row.Type, "event_id", row.EventID, "err", err)
		}
	}()
}

// Wait blocks until every pending Record has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// List returns audit rows newest first.
func (s *Service) List(ctx context.Context, params pagination.Params, filter ListFilter) (pagination.Page[*models.AuditLog], error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.EventID != "" {
		q = q.Where("event_id = ?", filter.EventID)
	}
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	q, err := pagination.Apply(q, params, "")
	if err != nil {
		return pagination.Page[*models.AuditLog]{}, fmt.Errorf("invalid cursor: %w", err)
	}
	var rows []*models.AuditLog
	if err := q.Find(&rows).Error; err != nil {
		return pagination.Page[*models.AuditLog]{}, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return pagination.BuildPage(rows, params.Limit, func(r *models.AuditLog) (time.Time, string) {
		return r.CreatedAt, r.ID
	}), nil
}

func drainOnStop(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				s.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

var Module = fx.Options(
	fx.Provide(
		New,
		func(s *Service) Recorder { return s },
	),
	fx.Invoke(drainOnStop),
)
