package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the shared identity row. Vendors carry their running balance and
// commission totals directly; both counters are only ever moved by single
// atomic increments inside a settlement transaction.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	FirstName string    `gorm:"column:first_name;not null"`
	LastName  string    `gorm:"column:last_name;not null"`
	IsVendor  bool      `gorm:"column:is_vendor;not null;default:false"`

	BalanceCents    int64 `gorm:"column:balance_cents;not null;default:0"`
	CommissionCents int64 `gorm:"column:commission_cents;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
