package handlers

import (
	"github.com/Talha654/overlayPix-backend/internal/app/service/discount"
	"github.com/Talha654/overlayPix-backend/internal/app/service/event"
	"github.com/Talha654/overlayPix-backend/internal/app/service/guest"
	"github.com/Talha654/overlayPix-backend/internal/app/service/payment"
	"github.com/Talha654/overlayPix-backend/internal/models"
	"github.com/Talha654/overlayPix-backend/pkg/pagination"
	"github.com/Talha654/overlayPix-backend/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespError is the envelope of every failed request.
type RespError struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    response.ErrorBody       `json:"data"`
}

type RespEvent struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Event             `json:"data"`
}

type RespEventView struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    event.View               `json:"data"`
}

type RespEventPage struct {
	Code    response.APIResponseCode       `json:"code"`
	Message string                         `json:"message"`
	Data    pagination.Page[*models.Event] `json:"data"`
}

type RespGuestView struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    event.GuestView          `json:"data"`
}

type RespJoin struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    guest.JoinResult         `json:"data"`
}

type RespPhoto struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Photo             `json:"data"`
}

type RespPhotoPage struct {
	Code    response.APIResponseCode          `json:"code"`
	Message string                            `json:"message"`
	Data    pagination.Page[*guest.PhotoView] `json:"data"`
}

type RespMyPhotos struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    guest.MyPhotos           `json:"data"`
}

type RespLike struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    guest.LikeResult         `json:"data"`
}

type RespIntent struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    payment.IntentResult     `json:"data"`
}

type RespPayment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Payment           `json:"data"`
}

type RespPaymentStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    payment.StatusResult     `json:"data"`
}

type RespSubscription struct {
	Code    response.APIResponseCode         `json:"code"`
	Message string                           `json:"message"`
	Data    payment.SubscriptionVerification `json:"data"`
}

type RespDiscountValidation struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    discount.Validation      `json:"data"`
}

type RespPaymentList struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    payment.ScanPaymentsResponse `json:"data"`
}

type RespAuditPage struct {
	Code    response.APIResponseCode          `json:"code"`
	Message string                            `json:"message"`
	Data    pagination.Page[*models.AuditLog] `json:"data"`
}

type RespSweep struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    sweepResp                `json:"data"`
}

type RespGuestPage struct {
	Code    response.APIResponseCode       `json:"code"`
	Message string                         `json:"message"`
	Data    pagination.Page[*models.Guest] `json:"data"`
}

type RespJoinedEventPage struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    pagination.Page[*guest.JoinedEvent] `json:"data"`
}

type RespConsent struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    guest.ConsentStatus      `json:"data"`
}

type RespUploaderPhotos struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    guest.UploaderPhotos     `json:"data"`
}
