package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type StorageOption struct {
	Days  int             `json:"days"`
	Price decimal.Decimal `json:"price"`
}

// Plan is a priced base package. Prices are in major currency units.
type Plan struct {
	ID                                  string                              `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Name                                string                              `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Price                               decimal.Decimal                     `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	GuestLimit                          int                                 `gorm:"column:guest_limit;not null" json:"guestLimit"`
	PhotoPool                           int                                 `gorm:"column:photo_pool;not null" json:"photoPool"`
	GuestLimitIncreasePricePerGuest     decimal.Decimal                     `gorm:"column:guest_limit_increase_price_per_guest;type:numeric(12,2);not null" json:"guestLimitIncreasePricePerGuest"`
	PhotoPoolLimitIncreasePricePerPhoto decimal.Decimal                     `gorm:"column:photo_pool_limit_increase_price_per_photo;type:numeric(12,2);not null" json:"photoPoolLimitIncreasePricePerPhoto"`
	DefaultStorageDays                  int                                 `gorm:"column:default_storage_days;not null" json:"defaultStorageDays"`
	StorageOptions                      datatypes.JSONType[[]StorageOption] `gorm:"column:storage_options;type:jsonb" json:"storageOptions"`
	Permissions                         Permissions                         `gorm:"embedded" json:"permissions"`
	IsActive                            bool                                `gorm:"column:is_active;not null" json:"isActive"`
	CreatedAt                           time.Time                           `json:"createdAt"`
	UpdatedAt                           time.Time                           `json:"updatedAt"`
}

func (Plan) TableName() string {
	return "plan"
}

// StorageOption returns the option matching days, if the plan offers one.
func (p *Plan) StorageOption(days int) (StorageOption, bool) {
	if p == nil {
		return StorageOption{}, false
	}
	for _, opt := range p.StorageOptions.Data() {
		if opt.Days == days {
			return opt, true
		}
	}
	return StorageOption{}, false
}

// Permissions are gallery capabilities granted to guests.
type Permissions struct {
	CanViewGallery bool `gorm:"column:can_view_gallery;not null" json:"canViewGallery"`
	CanSharePhotos bool `gorm:"column:can_share_photos;not null" json:"canSharePhotos"`
	CanDownload    bool `gorm:"column:can_download;not null" json:"canDownload"`
}

// CustomPlan is the per-event quota configuration. It is embedded into Event
// with the custom_plan_ column prefix and snapshotted as JSON on Payment.
type CustomPlan struct {
	GuestLimit     int         `gorm:"column:guest_limit;not null" json:"guestLimit" validate:"required,min=1,max=10000"`
	PhotoPool      int         `gorm:"column:photo_pool;not null" json:"photoPool" validate:"required,min=1,max=100000"`
	PhotosPerGuest *int        `gorm:"column:photos_per_guest" json:"photosPerGuest,omitempty" validate:"omitempty,min=1,max=1000"`
	StorageDays    int         `gorm:"column:storage_days;not null" json:"storageDays" validate:"required,min=1,max=3650"`
	Permissions    Permissions `gorm:"embedded" json:"permissions"`
}
