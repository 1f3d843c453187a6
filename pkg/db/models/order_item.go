package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem freezes what the buyer actually purchased: title/image/sku are
// snapshots of the product at sale time and UnitPriceCents is the checkout
// line price, so later product edits never rewrite order history.
type OrderItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	ProductID *uuid.UUID `gorm:"column:product_id;type:uuid"`
	VendorID  *uuid.UUID `gorm:"column:vendor_id;type:uuid"`

	Title          string `gorm:"column:title;not null"`
	ImageURL       string `gorm:"column:image_url"`
	SKU            string `gorm:"column:sku"`
	UnitPriceCents int64  `gorm:"column:unit_price_cents;not null"`
	Qty            int    `gorm:"column:qty;not null"`
	TotalCents     int64  `gorm:"column:total_cents;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
