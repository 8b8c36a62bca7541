package guest

import (
	"time"

	"github.com/Talha654/overlayPix-backend/internal/models"
)

type JoinRequest struct {
	Name string `json:"name" validate:"max=128"`
}

type JoinResult struct {
	EventID    string `json:"eventId"`
	IsOwner    bool   `json:"isOwner"`
	Joined     bool   `json:"joined"`
	GuestCount int    `json:"guestCount"`
	GuestLimit int    `json:"guestLimit"`
}

type LikeResult struct {
	PhotoID   string `json:"photoId"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"likeCount"`
}

// PhotoView is a gallery photo as seen by one viewer.
type PhotoView struct {
	*models.Photo
	IsLiked bool `json:"isLiked"`
}

type MyPhotos struct {
	Photos         []*models.Photo `json:"photos"`
	PhotosUploaded int             `json:"photosUploaded"`
	PhotosPerGuest *int            `json:"photosPerGuest,omitempty"`
	Remaining      int             `json:"remaining"`
}

// ConsentStatus reports whether the caller may upload to an event.
type ConsentStatus struct {
	EventID   string        `json:"eventId"`
	Consented bool          `json:"consented"`
	IsOwner   bool          `json:"isOwner"`
	Guest     *models.Guest `json:"guest,omitempty"`
}

// JoinedEvent is one event on a guest's "joined" list.
type JoinedEvent struct {
	EventID         string             `json:"eventId"`
	Name            string             `json:"name"`
	ShareCode       string             `json:"shareCode"`
	EventDate       time.Time          `json:"eventDate"`
	EventEndDate    *time.Time         `json:"eventEndDate,omitempty"`
	TimeZone        string             `json:"timeZone"`
	EventPictureURL string             `json:"eventPictureUrl,omitempty"`
	Status          models.EventStatus `json:"status"`
	StorageExpired  bool               `json:"storageExpired"`
	PhotosUploaded  int                `json:"photosUploaded"`
	TermsAccepted   bool               `json:"termsAccepted"`
	JoinedAt        time.Time          `json:"joinedAt"`
}

// UploaderInfo summarizes one uploader's allowance within an event.
type UploaderInfo struct {
	GuestID        string `json:"guestId"`
	Name           string `json:"name"`
	IsOwner        bool   `json:"isOwner"`
	PhotosUploaded int    `json:"photosUploaded"`
	PhotosPerGuest *int   `json:"photosPerGuest,omitempty"`
	Remaining      *int   `json:"remaining,omitempty"`
}

// UploaderPhotos is every photo one guest uploaded to an event.
type UploaderPhotos struct {
	Photos []*PhotoView  `json:"photos"`
	Guest  *UploaderInfo `json:"guest"`
}
