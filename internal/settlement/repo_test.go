package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/martinolivares/vendora-backend/pkg/db"
	"github.com/martinolivares/vendora-backend/pkg/db/models"
	pkgerrors "github.com/martinolivares/vendora-backend/pkg/errors"
)

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:settlement_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  is_vendor INTEGER NOT NULL DEFAULT 0,
  balance_cents INTEGER NOT NULL DEFAULT 0,
  commission_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT,
  sku TEXT NOT NULL,
  title TEXT NOT NULL,
  image_url TEXT,
  price_cents INTEGER NOT NULL,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  transaction_id TEXT NOT NULL UNIQUE,
  shipping_name TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  shipping_city TEXT NOT NULL,
  shipping_state TEXT,
  shipping_country TEXT NOT NULL,
  shipping_postal_code TEXT,
  shipping_contact TEXT,
  shipping_method TEXT,
  shipping_fee_cents INTEGER NOT NULL DEFAULT 0,
  amount_total_cents INTEGER NOT NULL,
  payment_method TEXT NOT NULL DEFAULT 'card',
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  status TEXT NOT NULL DEFAULT 'processing',
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  vendor_id TEXT,
  title TEXT NOT NULL,
  image_url TEXT,
  sku TEXT,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	sales := `
CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  gross_cents INTEGER NOT NULL,
  commission_cents INTEGER NOT NULL,
  net_cents INTEGER NOT NULL,
  product_title TEXT NOT NULL,
  product_image TEXT,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  created_at DATETIME
);`
	for _, ddl := range []string{users, products, orders, orderItems, sales} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func seedVendor(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	vendor := &models.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@vendora.dev",
		FirstName: "Vera",
		LastName:  "Vendor",
		IsVendor:  true,
	}
	require.NoError(t, db.Create(vendor).Error)
	return vendor
}

func seedProduct(t *testing.T, db *gorm.DB, vendorID *uuid.UUID, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		VendorID:   vendorID,
		SKU:        "SKU-" + uuid.NewString()[:8],
		Title:      "Ceramic Mug",
		PriceCents: 7500,
		StockQty:   stock,
		IsActive:   true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func newOrder(userID uuid.UUID, transactionID string) *models.Order {
	return &models.Order{
		OrderNumber:      "VN-" + uuid.NewString()[:8],
		UserID:           userID,
		TransactionID:    transactionID,
		ShippingName:     "Dana Fox",
		ShippingAddress:  "12 Pier Ave",
		ShippingCity:     "Portland",
		ShippingCountry:  "US",
		AmountTotalCents: 15000,
	}
}

func TestRepositoryOrderRoundTrip(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.FindOrderByTransactionID(ctx, "cs_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	created, err := repo.CreateOrder(ctx, newOrder(uuid.New(), "cs_test_123"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	found, err := repo.FindOrderByTransactionID(ctx, "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, created.OrderNumber, found.OrderNumber)
}

func TestRepositoryDuplicateTransactionIDIsUniqueViolation(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.CreateOrder(ctx, newOrder(uuid.New(), "cs_test_dup"))
	require.NoError(t, err)

	_, err = repo.CreateOrder(ctx, newOrder(uuid.New(), "cs_test_dup"))
	require.Error(t, err)
	assert.True(t, pkgdb.IsUniqueViolation(err, "orders_transaction_id_key"),
		"duplicate insert must be recognized as the idempotency conflict: %v", err)
}

func TestRepositoryDecrementProductStock(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, nil, 10)
	require.NoError(t, db.Model(product).Update("reserved_qty", 4).Error)

	oversold, err := repo.DecrementProductStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.False(t, oversold)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 7, reloaded.StockQty)
	assert.Equal(t, 1, reloaded.ReservedQty)
}

func TestRepositoryDecrementProductStockToExactlyZero(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, nil, 3)

	oversold, err := repo.DecrementProductStock(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.False(t, oversold)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 0, reloaded.StockQty)
}

func TestRepositoryDecrementProductStockClampsOversell(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	product := seedProduct(t, db, nil, 1)

	oversold, err := repo.DecrementProductStock(ctx, product.ID, 5)
	require.NoError(t, err)
	assert.True(t, oversold)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 0, reloaded.StockQty, "stock never goes negative")
	assert.Equal(t, 0, reloaded.ReservedQty)
}

func TestRepositoryDecrementProductStockMissingProduct(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)

	_, err := repo.DecrementProductStock(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryCreditVendor(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	vendor := seedVendor(t, db)

	require.NoError(t, repo.CreditVendor(ctx, vendor.ID, 13500, 1500))
	require.NoError(t, repo.CreditVendor(ctx, vendor.ID, 500, 50))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", vendor.ID).Error)
	assert.Equal(t, int64(14000), reloaded.BalanceCents)
	assert.Equal(t, int64(1550), reloaded.CommissionCents)
}

func TestRepositoryCreditVendorRejectsNonVendor(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	buyer := &models.User{
		ID:        uuid.New(),
		Email:     "buyer@vendora.dev",
		FirstName: "Dana",
		LastName:  "Fox",
		IsVendor:  false,
	}
	require.NoError(t, db.Create(buyer).Error)

	err := repo.CreditVendor(ctx, buyer.ID, 100, 10)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

// The whole settlement stands or falls as one transaction: a failure after
// some rows were written must leave no trace.
func TestSettlementTransactionRollsBackCompletely(t *testing.T) {
	db := setupSettlementTestDB(t)
	client := pkgdb.FromGorm(db)
	repo := NewRepository(db)
	ctx := context.Background()

	vendor := seedVendor(t, db)
	product := seedProduct(t, db, &vendor.ID, 10)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)

		order, err := txRepo.CreateOrder(ctx, newOrder(uuid.New(), "cs_test_atomic"))
		require.NoError(t, err)

		_, err = txRepo.CreateOrderItem(ctx, &models.OrderItem{
			OrderID:        order.ID,
			ProductID:      &product.ID,
			VendorID:       &vendor.ID,
			Title:          product.Title,
			UnitPriceCents: 7500,
			Qty:            2,
			TotalCents:     15000,
		})
		require.NoError(t, err)

		_, err = txRepo.DecrementProductStock(ctx, product.ID, 2)
		require.NoError(t, err)

		return pkgerrors.New(pkgerrors.CodeDependency, "simulated failure before sale insert")
	})
	require.Error(t, err)

	var orderCount, itemCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	assert.Zero(t, orderCount)
	assert.Zero(t, itemCount)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 10, reloaded.StockQty, "stock decrement must roll back")
}
