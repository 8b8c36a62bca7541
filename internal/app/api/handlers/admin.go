package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/payment"
	"github.com/Talha654/overlayPix-backend/internal/models"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
)

// AuditLister reads audit history for admins.
type AuditLister interface {
	List(ctx context.Context, params pagination.Params, filter audit.ListFilter) (pagination.Page[*models.AuditLog], error)
}

// Sweeper flips ended events to expired.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// @Summary      List Payments (Admin)
// @Description  Retrieves a paginated and filterable list of payment records.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.ScanPaymentsRequest true "Filters, paging and sort"
// @Success      200  {object}  handlers.RespPaymentList
// @Router       /api/v1/admin/payments/list [post]
func ApiAdminListPayments(mgr payment.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payment.ScanPaymentsRequest
		if !bindJSON(c, &req) {
			return
		}
		res, err := mgr.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

type auditLogQuery struct {
	pagination.Params
	audit.ListFilter
}

// @Summary      List Audit Logs (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        limit    query  int     false  "Page size"
// @Param        cursor   query  string  false  "Opaque cursor"
// @Param        type     query  string  false  "Audit type"
// @Param        eventId  query  string  false  "Event ID"
// @Param        actorId  query  string  false  "Actor ID"
// @Success      200  {object}  handlers.RespAuditPage
// @Router       /api/v1/admin/audit-logs [get]
func ApiAdminListAuditLogs(svc AuditLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q auditLogQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			writeError(c, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid query"))
			return
		}
		page, err := svc.List(c.Request.Context(), q.Params, q.ListFilter)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, page)
	}
}

type sweepResp struct {
	Expired int `json:"expired"`
}

// @Summary      Expire ended events (Admin)
// @Description  Runs the expiry sweep immediately instead of waiting for the next tick.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSweep
// @Router       /api/v1/admin/events/sweep [post]
func ApiAdminSweepEvents(svc Sweeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.Sweep(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		logctx.FromGin(c, nopLog).Infow("manual expiry sweep", "expired", n)
		respondOK(c, http.StatusOK, sweepResp{Expired: n})
	}
}

func RegisterAdminRoutes(r gin.IRouter, mgr payment.Manager, audits AuditLister, sweeper Sweeper) {
	r.POST("/payments/list", ApiAdminListPayments(mgr))
	r.GET("/audit-logs", ApiAdminListAuditLogs(audits))
	r.POST("/events/sweep", ApiAdminSweepEvents(sweeper))
}
