package models

import (
	"time"

	"github.com/google/uuid"
)

// Sale attributes one order line's revenue to its vendor. Rows are append-only
// and double as the commission ledger: gross = commission + net always holds.
type Sale struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VendorID  uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`

	GrossCents      int64 `gorm:"column:gross_cents;not null"`
	CommissionCents int64 `gorm:"column:commission_cents;not null"`
	NetCents        int64 `gorm:"column:net_cents;not null"`

	ProductTitle   string `gorm:"column:product_title;not null"`
	ProductImage   string `gorm:"column:product_image"`
	UnitPriceCents int64  `gorm:"column:unit_price_cents;not null"`
	Qty            int    `gorm:"column:qty;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
