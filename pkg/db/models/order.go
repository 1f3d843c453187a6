package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/martinolivares/vendora-backend/pkg/enums"
)

// Order is the settled record of one completed checkout session. TransactionID
// holds the gateway session id and is unique, which makes it the idempotency
// key for the whole settlement: at most one order can ever exist per session.
type Order struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   string    `gorm:"column:order_number;not null;uniqueIndex"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	TransactionID string    `gorm:"column:transaction_id;not null;uniqueIndex"`

	ShippingName       string `gorm:"column:shipping_name;not null"`
	ShippingAddress    string `gorm:"column:shipping_address;not null"`
	ShippingCity       string `gorm:"column:shipping_city;not null"`
	ShippingState      string `gorm:"column:shipping_state"`
	ShippingCountry    string `gorm:"column:shipping_country;not null"`
	ShippingPostalCode string `gorm:"column:shipping_postal_code"`
	ShippingContact    string `gorm:"column:shipping_contact"`
	ShippingMethod     string `gorm:"column:shipping_method"`
	ShippingFeeCents   int64  `gorm:"column:shipping_fee_cents;not null;default:0"`

	AmountTotalCents int64               `gorm:"column:amount_total_cents;not null"`
	PaymentMethod    string              `gorm:"column:payment_method;not null;default:'card'"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'processing'"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Sales []Sale      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
