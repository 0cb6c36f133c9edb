package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/backstagehn/storefront-backend/pkg/db/models"
	"github.com/backstagehn/storefront-backend/pkg/enums"
	"github.com/backstagehn/storefront-backend/pkg/pagination"
)

// OrderTotals aggregates revenue and order counts.
type OrderTotals struct {
	Revenue decimal.Decimal
	Count   int64
}

// SalesPoint is one order's contribution to the sales chart.
type SalesPoint struct {
	Total     decimal.Decimal
	CreatedAt time.Time
}

// CategoryRevenue is the revenue attributed to one catalog category.
type CategoryRevenue struct {
	Category string
	Revenue  decimal.Decimal
}

// ProductSales counts the units sold of one product.
type ProductSales struct {
	ProductID int64
	TotalSold int64
}

// Repository provides order persistence and dashboard aggregates.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the order and its items in one statement batch.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads the order with its items and their products.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first, keyset paginated.
func (r *Repository) ListByUser(ctx context.Context, userID int64, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Totals aggregates revenue and count across paid orders. Pending orders
// have no captured payment and never count as revenue.
func (r *Repository) Totals(ctx context.Context) (*OrderTotals, error) {
	return r.totals(r.paidOrders(ctx))
}

// TotalsSince aggregates revenue and count for paid orders created at or
// after the cutoff.
func (r *Repository) TotalsSince(ctx context.Context, cutoff time.Time) (*OrderTotals, error) {
	return r.totals(r.paidOrders(ctx).Where("created_at >= ?", cutoff))
}

func (r *Repository) paidOrders(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusPaid)
}

func (r *Repository) totals(query *gorm.DB) (*OrderTotals, error) {
	var row struct {
		Revenue decimal.Decimal
		Count   int64
	}
	if err := query.
		Select("COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS count").
		Scan(&row).Error; err != nil {
		return nil, err
	}
	return &OrderTotals{Revenue: row.Revenue, Count: row.Count}, nil
}

// SalesHistory returns every paid order's total in chronological order.
func (r *Repository) SalesHistory(ctx context.Context) ([]SalesPoint, error) {
	var rows []SalesPoint
	if err := r.paidOrders(ctx).
		Select("total, created_at").
		Order("created_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RevenueByCategory sums item revenue (recorded unit price at sale time)
// grouped by the product's category.
func (r *Repository) RevenueByCategory(ctx context.Context) ([]CategoryRevenue, error) {
	var rows []CategoryRevenue
	if err := r.db.WithContext(ctx).
		Table("order_items").
		Select("products.category AS category, SUM(order_items.quantity * order_items.unit_price) AS revenue").
		Joins("JOIN products ON products.id = order_items.product_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ?", enums.OrderStatusPaid).
		Group("products.category").
		Order("revenue DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MostSoldProduct returns the product id with the highest units sold, or nil
// when nothing has been sold yet.
func (r *Repository) MostSoldProduct(ctx context.Context) (*ProductSales, error) {
	var rows []ProductSales
	if err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id AS product_id, SUM(order_items.quantity) AS total_sold").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ?", enums.OrderStatusPaid).
		Group("order_items.product_id").
		Order("total_sold DESC").
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
