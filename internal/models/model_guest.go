package models

import "time"

// Guest is a joined participant of one event. Owners never get a row.
type Guest struct {
	ID             string    `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	EventID        string    `gorm:"column:event_id;type:varchar(64);not null;uniqueIndex:uniq_guest_event_guest,priority:1" json:"eventId"`
	GuestID        string    `gorm:"column:guest_id;type:varchar(128);not null;uniqueIndex:uniq_guest_event_guest,priority:2" json:"guestId"`
	Name           string    `gorm:"column:name;type:varchar(128)" json:"name"`
	TermsAccepted  bool      `gorm:"column:terms_accepted;not null;default:false" json:"termsAccepted"`
	PhotosUploaded int       `gorm:"column:photos_uploaded;not null;default:0" json:"photosUploaded"`
	IsAnonymous    bool      `gorm:"column:is_anonymous;not null;default:false" json:"isAnonymous"`
	CreatedAt      time.Time `json:"joinedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Guest) TableName() string { return "guest" }
