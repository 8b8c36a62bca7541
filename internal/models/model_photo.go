package models

import "time"

type PhotoKind string

const (
	PhotoKindGuest  PhotoKind = "guest"
	PhotoKindBanner PhotoKind = "banner"
)

type Photo struct {
	ID          string    `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	EventID     string    `gorm:"column:event_id;type:varchar(64);not null;index:idx_photo_event_created,priority:1" json:"eventId"`
	GuestID     string    `gorm:"column:guest_id;type:varchar(128);index" json:"guestId"`
	GuestName   string    `gorm:"column:guest_name;type:varchar(128)" json:"guestName"`
	PhotoURL    string    `gorm:"column:photo_url;type:text;not null" json:"url"`
	ObjectKey   string    `gorm:"column:object_key;type:text" json:"-"`
	OverlayID   string    `gorm:"column:overlay_id;type:varchar(64)" json:"overlayId,omitempty"`
	Kind        PhotoKind `gorm:"column:kind;type:varchar(16);not null;default:guest" json:"kind"`
	IsAnonymous bool      `gorm:"column:is_anonymous;not null;default:false" json:"isAnonymous"`
	LikeCount   int       `gorm:"column:like_count;not null;default:0" json:"likeCount"`
	CreatedAt   time.Time `gorm:"index:idx_photo_event_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Photo) TableName() string { return "photo" }

// PhotoLike rows are the likes set of a photo; Photo.LikeCount mirrors their count.
type PhotoLike struct {
	PhotoID   string    `gorm:"column:photo_id;type:varchar(64);primaryKey" json:"photoId"`
	GuestID   string    `gorm:"column:guest_id;type:varchar(128);primaryKey" json:"guestId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (PhotoLike) TableName() string { return "photo_like" }
