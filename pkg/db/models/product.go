package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the vendor listing mutated in place by settlement. StockQty and
// ReservedQty are both decremented by the purchased quantity.
type Product struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID *uuid.UUID `gorm:"column:vendor_id;type:uuid"`

	SKU        string `gorm:"column:sku;not null"`
	Title      string `gorm:"column:title;not null"`
	ImageURL   string `gorm:"column:image_url"`
	PriceCents int64  `gorm:"column:price_cents;not null"`

	StockQty    int  `gorm:"column:stock_qty;not null;default:0"`
	ReservedQty int  `gorm:"column:reserved_qty;not null;default:0"`
	IsActive    bool `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
