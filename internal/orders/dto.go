package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/backstagehn/storefront-backend/pkg/db/models"
	"github.com/backstagehn/storefront-backend/pkg/enums"
)

// OrderItemDTO is one line of an order as returned to clients.
type OrderItemDTO struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID        int64             `json:"id"`
	Total     decimal.Decimal   `json:"total"`
	Status    enums.OrderStatus `json:"status"`
	Items     []OrderItemDTO    `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderListResult is one page of orders plus the cursor for the next one.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// StatsDTO summarizes the store's sales for the admin dashboard. Revenue
// figures cover paid orders only.
type StatsDTO struct {
	Revenue      decimal.Decimal `json:"revenue"`
	Count        int64           `json:"count"`
	Products     int64           `json:"products"`
	TodayRevenue decimal.Decimal `json:"today_revenue"`
	TodayOrders  int64           `json:"today_orders"`
}

// ChartPointDTO is one month's sales total.
type ChartPointDTO struct {
	Name  string          `json:"name"`
	Sales decimal.Decimal `json:"sales"`
}

// CategoryRevenueDTO is the revenue share of one catalog category.
type CategoryRevenueDTO struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// MostSoldDTO is the best selling product plus its units sold.
type MostSoldDTO struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url,omitempty"`
	TotalSold int64           `json:"total_sold"`
}

// NewOrderDTO maps the persisted order onto its client payload.
func NewOrderDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:        order.ID,
		Total:     order.Total,
		Status:    order.Status,
		Items:     make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt: order.CreatedAt,
	}
	for _, item := range order.Items {
		entry := OrderItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if item.Product != nil {
			entry.ProductName = item.Product.Name
		}
		dto.Items = append(dto.Items, entry)
	}
	return dto
}
