package models

import "time"

type OverlaySource string

const (
	OverlaySourceAdmin OverlaySource = "admin"
	OverlaySourceUser  OverlaySource = "user"
)

// Overlay is a frame image applied to photos. Admin and user overlays share the table.
type Overlay struct {
	ID         string        `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Source     OverlaySource `gorm:"column:source;type:varchar(16);not null" json:"source"`
	Name       string        `gorm:"column:name;type:varchar(128)" json:"name"`
	URL        string        `gorm:"column:url;type:text;not null" json:"url"`
	UploadedBy string        `gorm:"column:uploaded_by;type:varchar(128)" json:"uploadedBy,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func (Overlay) TableName() string { return "overlay" }
