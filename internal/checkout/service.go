package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	orderspkg "github.com/backstagehn/storefront-backend/internal/orders"
	product "github.com/backstagehn/storefront-backend/internal/products"
	"github.com/backstagehn/storefront-backend/pkg/db/models"
	"github.com/backstagehn/storefront-backend/pkg/enums"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service executes checkout orchestration.
type Service interface {
	PlaceOrder(ctx context.Context, userID int64, input CheckoutInput) (*orderspkg.OrderDTO, error)
}

// CartLine is one requested product and quantity.
type CartLine struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// CheckoutInput captures the cart sent to the checkout endpoint.
type CheckoutInput struct {
	Items []CartLine `json:"items" validate:"required,min=1,dive"`
}

// StockShortage reports the available units for a rejected line.
type StockShortage struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type service struct {
	tx           txRunner
	productsRepo *product.Repository
	ordersRepo   *orderspkg.Repository
	logg         *logger.Logger
}

// NewService builds the checkout service.
func NewService(tx txRunner, productsRepo *product.Repository, ordersRepo *orderspkg.Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:           tx,
		productsRepo: productsRepo,
		ordersRepo:   ordersRepo,
		logg:         logg,
	}, nil
}

// PlaceOrder validates the whole cart, creates the order with its items, and
// decrements stock, all inside one transaction. A failed line aborts the
// entire checkout so stock is never partially reserved.
func (s *service) PlaceOrder(ctx context.Context, userID int64, input CheckoutInput) (*orderspkg.OrderDTO, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	lines, err := mergeLines(input.Items)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productsRepo := s.productsRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		ids := make([]int64, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ProductID)
		}
		rows, err := productsRepo.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load products")
		}
		byID := make(map[int64]*models.Product, len(rows))
		for i := range rows {
			byID[rows[i].ID] = &rows[i]
		}

		// validate every line before touching any stock
		shortages := make([]StockShortage, 0)
		for _, line := range lines {
			row, ok := byID[line.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d not found", line.ProductID))
			}
			if row.Stock < line.Quantity {
				shortages = append(shortages, StockShortage{
					ProductID: row.ID,
					Name:      row.Name,
					Requested: line.Quantity,
					Available: row.Stock,
				})
			}
		}
		if len(shortages) > 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(shortages)
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			row := byID[line.ProductID]
			total = total.Add(row.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, models.OrderItem{
				ProductID: row.ID,
				Quantity:  line.Quantity,
				UnitPrice: row.Price,
			})
		}

		order := &models.Order{
			UserID: userID,
			Total:  total,
			Status: enums.OrderStatusPending,
			Items:  items,
		}
		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}

		// guarded decrement: a concurrent checkout that won the last units
		// flips the match to zero rows and aborts this transaction
		for _, line := range lines {
			ok, err := productsRepo.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}
			if !ok {
				row := byID[line.ProductID]
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
					WithDetails([]StockShortage{{
						ProductID: row.ID,
						Name:      row.Name,
						Requested: line.Quantity,
						Available: row.Stock,
					}})
			}
		}

		created = order
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"order_id": created.ID, "total": created.Total.String()})
	s.logg.Info(ctx, "order placed")

	full, err := s.ordersRepo.FindByID(ctx, created.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return orderspkg.NewOrderDTO(full), nil
}

// mergeLines collapses duplicate product lines and validates quantities.
func mergeLines(items []CartLine) ([]CartLine, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	index := map[int64]int{}
	merged := make([]CartLine, 0, len(items))
	for _, item := range items {
		if item.ProductID <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}
