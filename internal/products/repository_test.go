package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backstagehn/storefront-backend/pkg/db/models"
)

func TestRepositoryDecrementStockGuardsAgainstOversell(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := mustCreateTestProduct(t, db, "Fender Stratocaster", "650.00", 15)

	ok, err := repo.DecrementStock(ctx, row.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, reloaded.Stock)

	// more units than remain: the guarded update must not touch the row
	ok, err = repo.DecrementStock(ctx, row.ID, 14)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err = repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, reloaded.Stock)
}

func TestRepositoryDecrementStockToZero(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := mustCreateTestProduct(t, db, "Yamaha Stage Custom", "1200.00", 5)

	ok, err := repo.DecrementStock(ctx, row.ID, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Stock)

	ok, err = repo.DecrementStock(ctx, row.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryFindBySearchNameIgnoresAccentsAndCase(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := mustCreateTestProduct(t, db, "Bajo Eléctrico Ibanez SR300E", "350.00", 4)

	found, err := repo.FindBySearchName(ctx, "bajo electrico ibanez sr300e")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	found, err = repo.FindBySearchName(ctx, "BAJO ELÉCTRICO IBANEZ SR300E")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestRepositoryListFiltersBySearchAndCategory(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mustCreateTestProduct(t, db, "Fender Telecaster", "800.00", 3)
	mustCreateTestProduct(t, db, "Fender Jazz Bass", "900.00", 2)
	drums := mustCreateTestProduct(t, db, "Roland TD-17", "1500.00", 1)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", drums.ID).Update("category", "drums").Error)

	rows, err := repo.List(ctx, ListFilter{Search: "fender"}, nil, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.List(ctx, ListFilter{Category: "drums"}, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Roland TD-17", rows[0].Name)

	rows, err = repo.List(ctx, ListFilter{Search: "no such instrument"}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryListSearchTreatsWildcardsLiterally(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	exact := mustCreateTestProduct(t, db, "Cable 100% Cobre", "25.00", 20)
	mustCreateTestProduct(t, db, "Amplificador 100 Watts", "400.00", 5)

	rows, err := repo.List(ctx, ListFilter{Search: "100%"}, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, exact.ID, rows[0].ID)

	underscore := mustCreateTestProduct(t, db, "Pedal mod_x", "120.00", 7)
	mustCreateTestProduct(t, db, "Pedal modex", "130.00", 7)

	rows, err = repo.List(ctx, ListFilter{Search: "mod_x"}, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, underscore.ID, rows[0].ID)
}

func TestRepositoryDeleteBlockedByOrderItems(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := mustCreateTestProduct(t, db, "Roland FP-30X", "750.00", 8)

	order := &models.Order{UserID: 1, Total: decimal.RequireFromString("750.00")}
	require.NoError(t, db.Create(order).Error)
	item := &models.OrderItem{
		OrderID:   order.ID,
		ProductID: row.ID,
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("750.00"),
	}
	require.NoError(t, db.Create(item).Error)

	err := repo.Delete(ctx, row.ID)
	require.Error(t, err)

	// product must still exist
	_, err = repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
}
