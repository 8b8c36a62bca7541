package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Talha654/overlayPix-backend/internal/app/service/event"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

// EventService is the part of event.Service the HTTP layer calls.
type EventService interface {
	Create(ctx context.Context, actor types.Actor, in event.CreateEventInput) (*models.Event, error)
	Get(ctx context.Context, actor types.Actor, eventID string) (*event.View, error)
	GetByShareCode(ctx context.Context, actor types.Actor, shareCode string) (*event.GuestView, error)
	ListOwned(ctx context.Context, actor types.Actor, params pagination.Params) (pagination.Page[*models.Event], error)
	Update(ctx context.Context, actor types.Actor, eventID string, in event.UpdateInput) (*models.Event, error)
	Upgrade(ctx context.Context, actor types.Actor, eventID string, req *event.UpgradeRequest) (*models.Event, error)
}

// multipart fields that carry numbers
var eventNumericFields = []string{"finalPrice", "fontSize"}

// eventUploads reads the optional overlay and banner files.
func eventUploads(c *gin.Context) (overlay, picture *storage.Object, err error) {
	if overlay, err = formFile(c, "overlay"); err != nil {
		return nil, nil, err
	}
	if picture, err = formFile(c, "eventPicture"); err != nil {
		return nil, nil, err
	}
	return overlay, picture, nil
}

// @Summary      Create event
// @Description  Creates an event after price reconciliation and payment verification. Accepts JSON or multipart/form-data with optional "overlay" and "eventPicture" files; nested objects are sent as JSON strings.
// @Tags         Events
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        request body event.CreateEventRequest true "Event"
// @Success      201  {object}  handlers.RespEvent
// @Failure      400  {object}  handlers.RespError
// @Failure      409  {object}  handlers.RespError
// @Router       /api/v1/events [post]
func ApiCreateEvent(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		req := &event.CreateEventRequest{}
		in := event.CreateEventInput{Request: req}
		if isMultipart(c) {
			if err := decodeForm(c, req, eventNumericFields...); err != nil {
				writeError(c, err)
				return
			}
			var err error
			if in.Overlay, in.Picture, err = eventUploads(c); err != nil {
				writeError(c, err)
				return
			}
		} else if err := c.ShouldBindJSON(req); err != nil {
			writeError(c, bindError(err))
			return
		}

		ev, err := svc.Create(c.Request.Context(), actor, in)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusCreated, ev)
	}
}

// @Summary      List my events
// @Tags         Events
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int     false  "Page size"
// @Param        cursor  query  string  false  "Opaque cursor"
// @Success      200  {object}  handlers.RespEventPage
// @Router       /api/v1/events [get]
func ApiListEvents(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		var params pagination.Params
		if err := c.ShouldBindQuery(&params); err != nil {
			writeError(c, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid query"))
			return
		}
		page, err := svc.ListOwned(c.Request.Context(), actor, params)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, page)
	}
}

// @Summary      Get event
// @Tags         Events
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Event ID"
// @Success      200  {object}  handlers.RespEventView
// @Failure      404  {object}  handlers.RespError
// @Router       /api/v1/events/{id} [get]
func ApiGetEvent(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		view, err := svc.Get(c.Request.Context(), actor, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, view)
	}
}

// @Summary      Update event
// @Description  Partially updates cosmetic and schedule fields. Plan related fields are rejected with 403.
// @Tags         Events
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string          true  "Event ID"
// @Param        request  body  map[string]any  true  "Patch"
// @Success      200  {object}  handlers.RespEvent
// @Failure      403  {object}  handlers.RespError
// @Router       /api/v1/events/{id} [patch]
func ApiUpdateEvent(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		in := event.UpdateInput{}
		if isMultipart(c) {
			var err error
			if in.Patch, err = formValues(c, "fontSize"); err != nil {
				writeError(c, err)
				return
			}
			if in.Overlay, in.Picture, err = eventUploads(c); err != nil {
				writeError(c, err)
				return
			}
		} else if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&in.Patch); err != nil {
				writeError(c, bindError(err))
				return
			}
		}
		if in.Patch == nil {
			in.Patch = map[string]any{}
		}

		ev, err := svc.Update(c.Request.Context(), actor, c.Param("id"), in)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, ev)
	}
}

// @Summary      Upgrade event plan
// @Description  Moves an event to a new plan. Guest and photo counters are kept.
// @Tags         Events
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                true  "Event ID"
// @Param        request  body  event.UpgradeRequest  true  "Upgrade"
// @Success      200  {object}  handlers.RespEvent
// @Failure      410  {object}  handlers.RespError
// @Router       /api/v1/events/{id}/upgrade [post]
func ApiUpgradeEvent(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		req := &event.UpgradeRequest{}
		if isMultipart(c) {
			if err := decodeForm(c, req, "finalPrice"); err != nil {
				writeError(c, err)
				return
			}
		} else if err := c.ShouldBindJSON(req); err != nil {
			writeError(c, bindError(err))
			return
		}
		ev, err := svc.Upgrade(c.Request.Context(), actor, c.Param("id"), req)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, ev)
	}
}

// @Summary      Get event by share code
// @Description  Guest facing view, including the caller's remaining photo allowance.
// @Tags         Guests
// @Produce      json
// @Security     BearerAuth
// @Param        shareCode  path  string  true  "Share code"
// @Success      200  {object}  handlers.RespGuestView
// @Failure      404  {object}  handlers.RespError
// @Router       /api/v1/guest/events/{shareCode} [get]
func ApiGetEventByShareCode(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		view, err := svc.GetByShareCode(c.Request.Context(), actor, c.Param("shareCode"))
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, view)
	}
}

func RegisterEventRoutes(r gin.IRouter, svc EventService) {
	r.POST("/events", ApiCreateEvent(svc))
	r.GET("/events", ApiListEvents(svc))
	r.GET("/events/:id", ApiGetEvent(svc))
	r.PATCH("/events/:id", ApiUpdateEvent(svc))
	r.POST("/events/:id/upgrade", ApiUpgradeEvent(svc))
	r.GET("/guest/events/:shareCode", ApiGetEventByShareCode(svc))
}
