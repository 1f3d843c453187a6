package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martinolivares/vendora-backend/pkg/db/models"
)

// Repository is the persistence surface used by the settlement service. All
// writes happen through a WithTx clone so the whole settlement commits or
// rolls back as one unit.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOrderByTransactionID(ctx context.Context, transactionID string) (*models.Order, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error)
	CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)

	DecrementProductStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	CreditVendor(ctx context.Context, vendorID uuid.UUID, netCents, commissionCents int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("transaction_id = ?", transactionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

// DecrementProductStock atomically reduces stock_qty (and reserved_qty) by the
// purchased quantity. When stock is insufficient the counters clamp to zero
// instead of going negative, and the oversell is reported to the caller. The
// payment is already captured by the time this runs, so oversell is never
// fatal here.
func (r *repository) DecrementProductStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_qty = stock_qty - ?,
		    reserved_qty = CASE WHEN reserved_qty >= ? THEN reserved_qty - ? ELSE 0 END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_qty >= ?`,
		qty, qty, qty, productID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	clamp := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock_qty = 0,
		    reserved_qty = 0,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		productID)
	if clamp.Error != nil {
		return false, clamp.Error
	}
	if clamp.RowsAffected == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return true, nil
}

// CreditVendor atomically adds the net payout and commission amounts to the
// vendor's running counters.
func (r *repository) CreditVendor(ctx context.Context, vendorID uuid.UUID, netCents, commissionCents int64) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET balance_cents = balance_cents + ?,
		    commission_cents = commission_cents + ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_vendor = ?`,
		netCents, commissionCents, vendorID, true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
