package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	orderspkg "github.com/backstagehn/storefront-backend/internal/orders"
	product "github.com/backstagehn/storefront-backend/internal/products"
	"github.com/backstagehn/storefront-backend/pkg/db"
	"github.com/backstagehn/storefront-backend/pkg/db/models"
	"github.com/backstagehn/storefront-backend/pkg/enums"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/logger"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.Exec("PRAGMA foreign_keys = ON").Error)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  brand TEXT NOT NULL,
  category TEXT NOT NULL,
  price NUMERIC NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  description TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  search_name TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users (id),
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_session_id TEXT UNIQUE,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL REFERENCES products (id) ON DELETE RESTRICT,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price NUMERIC NOT NULL,
  created_at DATETIME
);`,
		"DELETE FROM order_items", "DELETE FROM orders", "DELETE FROM products", "DELETE FROM users",
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newCheckoutService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	client, err := db.NewWithConn(conn)
	require.NoError(t, err)
	svc, err := NewService(client, product.NewRepository(conn), orderspkg.NewRepository(conn), logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc
}

func seedUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Checkout Tester", Email: email, PasswordHash: "hash"}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func seedProduct(t *testing.T, conn *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	row := &models.Product{
		Name:       name,
		Brand:      "Test Brand",
		Category:   "guitars",
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		SearchName: product.NormalizeName(name),
	}
	require.NoError(t, conn.Create(row).Error)
	return row
}

func countRows(t *testing.T, conn *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Table(table).Count(&n).Error)
	return n
}

func TestPlaceOrderDecrementsStockAndRecordsItems(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	ctx := context.Background()

	user := seedUser(t, conn, "buyer@example.com")
	guitar := seedProduct(t, conn, "Fender Stratocaster", "650.00", 15)

	dto, err := svc.PlaceOrder(ctx, user.ID, CheckoutInput{
		Items: []CartLine{{ProductID: guitar.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, dto.Status)
	assert.True(t, dto.Total.Equal(decimal.RequireFromString("1300.00")), "got %s", dto.Total)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 2, dto.Items[0].Quantity)
	assert.True(t, dto.Items[0].UnitPrice.Equal(decimal.RequireFromString("650.00")))

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, guitar.ID).Error)
	assert.Equal(t, 13, reloaded.Stock)
}

func TestPlaceOrderInsufficientStockLeavesNothingBehind(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	ctx := context.Background()

	user := seedUser(t, conn, "greedy@example.com")
	guitar := seedProduct(t, conn, "Fender Stratocaster", "650.00", 15)
	drum := seedProduct(t, conn, "Yamaha Stage Custom", "1200.00", 5)

	_, err := svc.PlaceOrder(ctx, user.ID, CheckoutInput{
		Items: []CartLine{
			{ProductID: guitar.ID, Quantity: 1},
			{ProductID: drum.ID, Quantity: 6},
		},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	shortages, ok := typed.Details().([]StockShortage)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, drum.ID, shortages[0].ProductID)
	assert.Equal(t, 5, shortages[0].Available)

	// the whole checkout rolled back: no orders, no stock movement
	assert.Zero(t, countRows(t, conn, "orders"))
	assert.Zero(t, countRows(t, conn, "order_items"))

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, guitar.ID).Error)
	assert.Equal(t, 15, reloaded.Stock)
}

func TestPlaceOrderLastUnitGoesToExactlyOneBuyer(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	ctx := context.Background()

	first := seedUser(t, conn, "first@example.com")
	second := seedUser(t, conn, "second@example.com")
	amp := seedProduct(t, conn, "Vox AC15", "700.00", 1)

	dto, err := svc.PlaceOrder(ctx, first.ID, CheckoutInput{
		Items: []CartLine{{ProductID: amp.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, dto.Total.Equal(decimal.RequireFromString("700.00")), "got %s", dto.Total)

	var winner models.Order
	require.NoError(t, conn.First(&winner, dto.ID).Error)
	assert.Equal(t, first.ID, winner.UserID)

	_, err = svc.PlaceOrder(ctx, second.ID, CheckoutInput{
		Items: []CartLine{{ProductID: amp.ID, Quantity: 1}},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	shortages, ok := typed.Details().([]StockShortage)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, amp.ID, shortages[0].ProductID)
	assert.Equal(t, 0, shortages[0].Available)

	// one order, one item, stock drained by the winner only
	assert.Equal(t, int64(1), countRows(t, conn, "orders"))
	assert.Equal(t, int64(1), countRows(t, conn, "order_items"))

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, amp.ID).Error)
	assert.Equal(t, 0, reloaded.Stock)
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	ctx := context.Background()

	user := seedUser(t, conn, "ghost@example.com")

	_, err := svc.PlaceOrder(ctx, user.ID, CheckoutInput{
		Items: []CartLine{{ProductID: 4242, Quantity: 1}},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.Zero(t, countRows(t, conn, "orders"))
}

func TestPlaceOrderMergesDuplicateLines(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	ctx := context.Background()

	user := seedUser(t, conn, "dupes@example.com")
	bass := seedProduct(t, conn, "Ibanez SR300E", "350.00", 4)

	dto, err := svc.PlaceOrder(ctx, user.ID, CheckoutInput{
		Items: []CartLine{
			{ProductID: bass.ID, Quantity: 1},
			{ProductID: bass.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 3, dto.Items[0].Quantity)
	assert.True(t, dto.Total.Equal(decimal.RequireFromString("1050.00")), "got %s", dto.Total)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, bass.ID).Error)
	assert.Equal(t, 1, reloaded.Stock)
}

func TestPlaceOrderRejectsEmptyAndInvalidCarts(t *testing.T) {
	conn := setupCheckoutTestDB(t)
	svc := newCheckoutService(t, conn)
	ctx := context.Background()

	user := seedUser(t, conn, "empty@example.com")

	_, err := svc.PlaceOrder(ctx, user.ID, CheckoutInput{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.PlaceOrder(ctx, user.ID, CheckoutInput{Items: []CartLine{{ProductID: 1, Quantity: 0}}})
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
