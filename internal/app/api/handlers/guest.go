package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Talha654/overlayPix-backend/internal/app/service/guest"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

// GuestService is the part of guest.Service the HTTP layer calls.
type GuestService interface {
	Join(ctx context.Context, actor types.Actor, shareCode string, req guest.JoinRequest) (*guest.JoinResult, error)
	UploadPhoto(ctx context.Context, actor types.Actor, eventID string, obj *storage.Object, overlayID string) (*models.Photo, error)
	ListPhotos(ctx context.Context, actor types.Actor, eventID string, params pagination.Params) (pagination.Page[*guest.PhotoView], error)
	GuestPhotos(ctx context.Context, actor types.Actor, eventID string) (*guest.MyPhotos, error)
	Like(ctx context.Context, actor types.Actor, photoID string) (*guest.LikeResult, error)
	Unlike(ctx context.Context, actor types.Actor, photoID string) (*guest.LikeResult, error)
	Toggle(ctx context.Context, actor types.Actor, photoID string) (*guest.LikeResult, error)
	ListGuests(ctx context.Context, actor types.Actor, eventID string, params pagination.Params) (pagination.Page[*models.Guest], error)
	JoinedEvents(ctx context.Context, actor types.Actor, params pagination.Params) (pagination.Page[*guest.JoinedEvent], error)
	Consent(ctx context.Context, actor types.Actor, eventID string) (*guest.ConsentStatus, error)
	PhotosByGuest(ctx context.Context, actor types.Actor, eventID, guestID string) (*guest.UploaderPhotos, error)
}

func bindPage(c *gin.Context) (pagination.Params, bool) {
	var params pagination.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		writeError(c, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid query"))
		return params, false
	}
	return params, true
}

// @Summary      Join event
// @Description  Accepts the event terms and joins as a guest. The owner is never counted.
// @Tags         Guests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        shareCode  path  string             true   "Share code"
// @Param        request    body  guest.JoinRequest  false  "Display name"
// @Success      200  {object}  handlers.RespJoin
// @Failure      429  {object}  handlers.RespError
// @Router       /api/v1/guest/events/{shareCode}/consent [post]
func ApiJoinEvent(svc GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		var req guest.JoinRequest
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}
		res, err := svc.Join(c.Request.Context(), actor, c.Param("shareCode"), req)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

// @Summary      Upload photo
// @Description  Uploads one photo as multipart field "photo". Both the event pool and the per-guest cap are enforced.
// @Tags         Photos
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string  true   "Event ID"
// @Param        photo      formData  file    true   "Photo"
// @Param        overlayId  formData  string  false  "Overlay applied on the client"
// @Success      201  {object}  handlers.RespPhoto
// @Failure      403  {object}  handlers.RespError
// @Failure      410  {object}  handlers.RespError
// @Failure      429  {object}  handlers.RespError
// @Router       /api/v1/events/{id}/photos [post]
func ApiUploadPhoto(svc GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		if !isMultipart(c) {
			writeError(c, pkgerrors.New(pkgerrors.CodeValidation, "multipart/form-data with a photo file is required"))
			return
		}
		obj, err := formFile(c, "photo")
		if err != nil {
			writeError(c, err)
			return
		}
		photo, err := svc.UploadPhoto(c.Request.Context(), actor, c.Param("id"), obj, c.PostForm("overlayId"))
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusCreated, photo)
	}
}

// @Summary      List event photos
// @Tags         Photos
// @Produce      json
// @Security     BearerAuth
// @Param        id      path   string  true   "Event ID"
// @Param        limit   query  int     false  "Page size"
// @Param        cursor  query  string  false  "Opaque cursor"
// @Success      200  {object}  handlers.RespPhotoPage
// @Router       /api/v1/events/{id}/photos [get]
func ApiListPhotos(svc GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		params, valid := bindPage(c)
		if !valid {
			return
		}
		page, err := svc.ListPhotos(c.Request.Context(), actor, c.Param("id"), params)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, page)
	}
}

// @Summary      My photos
// @Description  The caller's own uploads with the remaining allowance.
// @Tags         Photos
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Event ID"
// @Success      200  {object}  handlers.RespMyPhotos
// @Router       /api/v1/events/{id}/my-photos [get]
func ApiMyPhotos(svc GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		res, err := svc.GuestPhotos(c.Request.Context(), actor, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

// @Summary      List event guests
// @Description  The owner's guest roster with each guest's upload count.
// @Tags         Guests
// @Produce      json
// @Security     BearerAuth
// @Param        id      path   string  true   "Event ID"
// @Param        limit   query  int     false  "Page size"
// @Param        cursor  query  string  false  "Opaque cursor"
// @Success      200  {object}  handlers.RespGuestPage
// @Failure      403  {object}  handlers.RespError
// @Router       /api/v1/events/{id}/guests [get]
func ApiListGuests(svc GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		params, valid := bindPage(c)
		if !valid {
			return
		}
		page, err := svc.ListGuests(c.Request.Context(), actor, c.Param("id"), params)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, page)
	}
}

// @Summary      Joined events
// @Description  Events the caller joined as a guest, most recent first.
// @Tags         Guests
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int     false  "Page size"
// @Param        cursor  query  string  false  "Opaque cursor"
// @Success      200  {object}  handlers.RespJoinedEventPage
// @Router       /api/v1/guest/events [get]
func ApiJoinedEvents(svc GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		params, valid := bindPage(c)
		if !valid {
			return
		}
		page, err := svc.JoinedEvents(c.Request.Context(), actor, params)
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, page)
	}
}

// @Summary      Consent status
// @Tags         Guests
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Event ID"
// @Success      200  {object}  handlers.RespConsent
// @Failure      404  {object}  handlers.RespError
// @Router       /api/v1/events/{id}/consent [get]
func ApiConsent(svc GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		res, err := svc.Consent(c.Request.Context(), actor, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

// @Summary      Photos by guest
// @Description  Every photo one guest uploaded, with their remaining allowance.
// @Tags         Photos
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string  true  "Event ID"
// @Param        guestId  path  string  true  "Guest user ID"
// @Success      200  {object}  handlers.RespUploaderPhotos
// @Failure      403  {object}  handlers.RespError
// @Failure      404  {object}  handlers.RespError
// @Failure      410  {object}  handlers.RespError
// @Router       /api/v1/events/{id}/guests/{guestId}/photos [get]
func ApiPhotosByGuest(svc GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		res, err := svc.PhotosByGuest(c.Request.Context(), actor, c.Param("id"), c.Param("guestId"))
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

type likeFunc func(ctx context.Context, actor types.Actor, photoID string) (*guest.LikeResult, error)

// @Summary      Like, unlike or toggle a photo like
// @Tags         Photos
// @Produce      json
// @Security     BearerAuth
// @Param        photoId  path  string  true  "Photo ID"
// @Success      200  {object}  handlers.RespLike
// @Failure      409  {object}  handlers.RespError
// @Router       /api/v1/photos/{photoId}/like [post]
// @Router       /api/v1/photos/{photoId}/like [delete]
// @Router       /api/v1/photos/{photoId}/like/toggle [post]
func ApiLike(fn likeFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, authed := actorOf(c)
		if !authed {
			return
		}
		res, err := fn(c.Request.Context(), actor, c.Param("photoId"))
		if err != nil {
			writeError(c, err)
			return
		}
		respondOK(c, http.StatusOK, res)
	}
}

func RegisterGuestRoutes(r gin.IRouter, svc GuestService) {
	r.POST("/guest/events/:shareCode/consent", ApiJoinEvent(svc))
	r.GET("/guest/events", ApiJoinedEvents(svc))
	r.GET("/events/:id/consent", ApiConsent(svc))
	r.GET("/events/:id/guests", ApiListGuests(svc))
	r.GET("/events/:id/guests/:guestId/photos", ApiPhotosByGuest(svc))
	r.GET("/events/:id/photos", ApiListPhotos(svc))
	r.GET("/events/:id/my-photos", ApiMyPhotos(svc))
	r.POST("/events/:id/photos", ApiUploadPhoto(svc))
	r.POST("/photos/:photoId/like", ApiLike(svc.Like))
	r.DELETE("/photos/:photoId/like", ApiLike(svc.Unlike))
	r.POST("/photos/:photoId/like/toggle", ApiLike(svc.Toggle))
}
