package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/backstagehn/storefront-backend/pkg/db/models"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/pagination"
)

// spanish short month names used as chart bucket labels
var monthLabels = [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// Service exposes order history plus the admin dashboard aggregates.
type Service interface {
	ListUserOrders(ctx context.Context, userID int64, input ListOrdersInput) (*OrderListResult, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*OrderDTO, error)
	Stats(ctx context.Context) (*StatsDTO, error)
	SalesChart(ctx context.Context) ([]ChartPointDTO, error)
	RevenueByCategory(ctx context.Context) ([]CategoryRevenueDTO, error)
	MostSold(ctx context.Context) (*MostSoldDTO, error)
}

// ListOrdersInput holds order listing pagination.
type ListOrdersInput struct {
	Limit  int
	Cursor string
}

type productLoader interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	Count(ctx context.Context) (int64, error)
}

type service struct {
	repo     *Repository
	products productLoader
	now      func() time.Time
}

// NewService constructs an orders service instance.
func NewService(repo *Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products, now: time.Now}, nil
}

// ListUserOrders returns one page of the user's order history.
func (s *service) ListUserOrders(ctx context.Context, userID int64, input ListOrdersInput) (*OrderListResult, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByUser(ctx, userID, cursor, input.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	result := &OrderListResult{Orders: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		if i >= limit {
			last := rows[limit-1]
			result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			break
		}
		result.Orders = append(result.Orders, *NewOrderDTO(&rows[i]))
	}
	return result, nil
}

// GetOrder loads one order, scoped to its owner.
func (s *service) GetOrder(ctx context.Context, userID, orderID int64) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return NewOrderDTO(order), nil
}

// Stats returns paid-order revenue (historic plus same-day) and the size of
// the catalog.
func (s *service) Stats(ctx context.Context) (*StatsDTO, error) {
	all, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: order totals")
	}

	now := s.now().UTC()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today, err := s.repo.TotalsSince(ctx, startOfToday)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: today totals")
	}

	productCount, err := s.products.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count products")
	}

	return &StatsDTO{
		Revenue:      all.Revenue,
		Count:        all.Count,
		Products:     productCount,
		TodayRevenue: today.Revenue,
		TodayOrders:  today.Count,
	}, nil
}

// SalesChart buckets order totals by calendar month, chronological order.
// Orders from different years share a bucket when the month matches.
func (s *service) SalesChart(ctx context.Context) ([]ChartPointDTO, error) {
	history, err := s.repo.SalesHistory(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sales history")
	}

	points := make([]ChartPointDTO, 0, 12)
	index := map[string]int{}
	for _, sale := range history {
		label := monthLabels[sale.CreatedAt.Month()-1]
		if i, ok := index[label]; ok {
			points[i].Sales = points[i].Sales.Add(sale.Total)
			continue
		}
		index[label] = len(points)
		points = append(points, ChartPointDTO{Name: label, Sales: sale.Total})
	}
	return points, nil
}

// RevenueByCategory returns category revenue shares for the dashboard pie.
func (s *service) RevenueByCategory(ctx context.Context) ([]CategoryRevenueDTO, error) {
	rows, err := s.repo.RevenueByCategory(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: category revenue")
	}
	result := make([]CategoryRevenueDTO, 0, len(rows))
	for _, row := range rows {
		result = append(result, CategoryRevenueDTO{Name: row.Category, Value: row.Revenue})
	}
	return result, nil
}

// MostSold returns the best selling product, or nil when no sales exist.
func (s *service) MostSold(ctx context.Context) (*MostSoldDTO, error) {
	top, err := s.repo.MostSoldProduct(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: most sold")
	}
	if top == nil {
		return nil, nil
	}

	product, err := s.products.FindByID(ctx, top.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	return &MostSoldDTO{
		ProductID: product.ID,
		Name:      product.Name,
		Brand:     product.Brand,
		Category:  product.Category,
		Price:     product.Price,
		ImageURL:  product.ImageURL,
		TotalSold: top.TotalSold,
	}, nil
}
