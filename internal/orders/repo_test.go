package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/backstagehn/storefront-backend/pkg/db/models"
	"github.com/backstagehn/storefront-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
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
);`
	ordersTable := `
CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users (id),
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_session_id TEXT UNIQUE,
  created_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
  product_id INTEGER NOT NULL REFERENCES products (id) ON DELETE RESTRICT,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price NUMERIC NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(ordersTable).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec("DELETE FROM order_items").Error)
	require.NoError(t, db.Exec("DELETE FROM orders").Error)
	require.NoError(t, db.Exec("DELETE FROM products").Error)
	require.NoError(t, db.Exec("DELETE FROM users").Error)
	return db
}

func newUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test User", Email: email, PasswordHash: "hash"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newProduct(t *testing.T, db *gorm.DB, name, category, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:       name,
		Brand:      "Test Brand",
		Category:   category,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		SearchName: name,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func newOrder(t *testing.T, db *gorm.DB, userID int64, created time.Time, items ...models.OrderItem) *models.Order {
	t.Helper()
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	order := &models.Order{
		UserID:    userID,
		Total:     total,
		Status:    enums.OrderStatusPaid,
		Items:     items,
		CreatedAt: created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func newPendingOrder(t *testing.T, db *gorm.DB, userID int64, created time.Time, items ...models.OrderItem) *models.Order {
	t.Helper()
	order := newOrder(t, db, userID, created, items...)
	require.NoError(t, db.Model(order).Update("status", enums.OrderStatusPending).Error)
	return order
}

func TestRepositoryCreatePersistsItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newUser(t, db, "buyer@example.com")
	guitar := newProduct(t, db, "Fender Stratocaster", "guitars", "650.00", 15)

	created, err := repo.Create(ctx, &models.Order{
		UserID: user.ID,
		Total:  decimal.RequireFromString("1300.00"),
		Items: []models.OrderItem{
			{ProductID: guitar.ID, Quantity: 2, UnitPrice: decimal.RequireFromString("650.00")},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	loaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, guitar.ID, loaded.Items[0].ProductID)
	assert.Equal(t, 2, loaded.Items[0].Quantity)
	assert.True(t, loaded.Total.Equal(decimal.RequireFromString("1300.00")))
	require.NotNil(t, loaded.Items[0].Product)
	assert.Equal(t, "Fender Stratocaster", loaded.Items[0].Product.Name)
}

func TestRepositoryListByUserPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newUser(t, db, "history@example.com")
	other := newUser(t, db, "other@example.com")
	piano := newProduct(t, db, "Roland FP-30X", "keyboards", "750.00", 8)

	now := time.Now().UTC()
	item := func() models.OrderItem {
		return models.OrderItem{ProductID: piano.ID, Quantity: 1, UnitPrice: piano.Price}
	}
	newOrder(t, db, user.ID, now.Add(-2*time.Hour), item())
	second := newOrder(t, db, user.ID, now.Add(-time.Hour), item())
	third := newOrder(t, db, user.ID, now, item())
	newOrder(t, db, other.ID, now, item())

	page, err := repo.ListByUser(ctx, user.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 3) // limit+1 buffer row
	assert.Equal(t, third.ID, page[0].ID)
	assert.Equal(t, second.ID, page[1].ID)
}

func TestRepositoryTotalsAndTotalsSince(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newUser(t, db, "stats@example.com")
	drum := newProduct(t, db, "Yamaha Stage Custom", "drums", "1200.00", 5)

	now := time.Now().UTC()
	newOrder(t, db, user.ID, now.Add(-48*time.Hour), models.OrderItem{ProductID: drum.ID, Quantity: 1, UnitPrice: drum.Price})
	newOrder(t, db, user.ID, now, models.OrderItem{ProductID: drum.ID, Quantity: 2, UnitPrice: drum.Price})

	all, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Count)
	assert.True(t, all.Revenue.Equal(decimal.RequireFromString("3600.00")), "got %s", all.Revenue)

	today, err := repo.TotalsSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), today.Count)
	assert.True(t, today.Revenue.Equal(decimal.RequireFromString("2400.00")), "got %s", today.Revenue)
}

func TestRepositoryAggregatesIgnorePendingOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newUser(t, db, "pending@example.com")
	guitar := newProduct(t, db, "PRS SE Custom 24", "guitars", "100.00", 6)
	drum := newProduct(t, db, "Tama Imperialstar", "drums", "999.00", 3)

	now := time.Now().UTC()
	newOrder(t, db, user.ID, now, models.OrderItem{ProductID: guitar.ID, Quantity: 1, UnitPrice: guitar.Price})
	// abandoned checkout, never settled
	newPendingOrder(t, db, user.ID, now,
		models.OrderItem{ProductID: drum.ID, Quantity: 4, UnitPrice: drum.Price},
	)

	all, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), all.Count)
	assert.True(t, all.Revenue.Equal(decimal.RequireFromString("100.00")), "got %s", all.Revenue)

	today, err := repo.TotalsSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), today.Count)
	assert.True(t, today.Revenue.Equal(decimal.RequireFromString("100.00")), "got %s", today.Revenue)

	rows, err := repo.RevenueByCategory(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "guitars", rows[0].Category)
	assert.True(t, rows[0].Revenue.Equal(decimal.RequireFromString("100.00")), "got %s", rows[0].Revenue)

	top, err := repo.MostSoldProduct(ctx)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, guitar.ID, top.ProductID)
	assert.Equal(t, int64(1), top.TotalSold)

	history, err := repo.SalesHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Total.Equal(decimal.RequireFromString("100.00")), "got %s", history[0].Total)
}

func TestRepositoryRevenueByCategoryUsesRecordedUnitPrice(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := newUser(t, db, "categories@example.com")
	guitar := newProduct(t, db, "Ibanez SR300E", "basses", "350.00", 4)
	drum := newProduct(t, db, "Pearl Export", "drums", "900.00", 2)

	now := time.Now().UTC()
	newOrder(t, db, user.ID, now,
		models.OrderItem{ProductID: guitar.ID, Quantity: 2, UnitPrice: decimal.RequireFromString("340.00")},
		models.OrderItem{ProductID: drum.ID, Quantity: 1, UnitPrice: drum.Price},
	)

	// raise the catalog price after the sale; revenue must not move
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", guitar.ID).Update("price", "999.00").Error)

	rows, err := repo.RevenueByCategory(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byCategory := map[string]decimal.Decimal{}
	for _, row := range rows {
		byCategory[row.Category] = row.Revenue
	}
	assert.True(t, byCategory["basses"].Equal(decimal.RequireFromString("680.00")), "got %s", byCategory["basses"])
	assert.True(t, byCategory["drums"].Equal(decimal.RequireFromString("900.00")), "got %s", byCategory["drums"])
}

func TestRepositoryMostSoldProduct(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	top, err := repo.MostSoldProduct(ctx)
	require.NoError(t, err)
	assert.Nil(t, top)

	user := newUser(t, db, "mostsold@example.com")
	guitar := newProduct(t, db, "Fender Telecaster", "guitars", "800.00", 10)
	piano := newProduct(t, db, "Casio CDP-S110", "keyboards", "400.00", 10)

	now := time.Now().UTC()
	newOrder(t, db, user.ID, now, models.OrderItem{ProductID: guitar.ID, Quantity: 1, UnitPrice: guitar.Price})
	newOrder(t, db, user.ID, now, models.OrderItem{ProductID: piano.ID, Quantity: 5, UnitPrice: piano.Price})

	top, err = repo.MostSoldProduct(ctx)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, piano.ID, top.ProductID)
	assert.Equal(t, int64(5), top.TotalSold)
}
