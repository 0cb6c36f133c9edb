package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/backstagehn/storefront-backend/pkg/db/models"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/logger"
	"github.com/backstagehn/storefront-backend/pkg/pagination"
)

// Service exposes catalog browsing plus admin product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id int64) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID int64, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID int64) error
	SetStock(ctx context.Context, productID int64, stock int) (*ProductDTO, error)
}

// ListProductsInput holds catalog listing filters and pagination.
type ListProductsInput struct {
	Search   string
	Category string
	Brand    string
	Limit    int
	Cursor   string
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Brand       string
	Category    string
	Price       decimal.Decimal
	Stock       int
	Description string
	ImageURL    string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Brand       *string
	Category    *string
	Price       *decimal.Decimal
	Stock       *int
	Description *string
	ImageURL    *string
}

// service implements the product service.
type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// ListProducts returns one catalog page matching the filters, newest first.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter := ListFilter{
		Search:   input.Search,
		Category: strings.TrimSpace(input.Category),
		Brand:    strings.TrimSpace(input.Brand),
	}

	rows, err := s.repo.List(ctx, filter, cursor, input.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	result := &ProductListResult{Products: make([]ProductDTO, 0, len(rows))}
	for i := range rows {
		if i >= limit {
			last := rows[limit-1]
			result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			break
		}
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

// GetProduct loads a single product by id.
func (s *service) GetProduct(ctx context.Context, id int64) (*ProductDTO, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return NewProductDTO(row), nil
}

// ListCategories exposes the distinct catalog categories.
func (s *service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list categories")
	}
	return categories, nil
}

// CreateProduct inserts a catalog entry with its normalized search name.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	row := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Brand:       strings.TrimSpace(input.Brand),
		Category:    strings.TrimSpace(input.Category),
		Price:       input.Price,
		Stock:       input.Stock,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		SearchName:  NormalizeName(input.Name),
	}

	created, err := s.repo.Create(ctx, row)
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

// UpdateProduct applies the provided fields to an existing product.
func (s *service) UpdateProduct(ctx context.Context, productID int64, input UpdateProductInput) (*ProductDTO, error) {
	row, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}

	if err := applyUpdate(row, input); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, row)
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return NewProductDTO(updated), nil
}

// DeleteProduct removes a product that has no recorded sales.
func (s *service) DeleteProduct(ctx context.Context, productID int64) error {
	if err := s.repo.Delete(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if pkgerrors.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "product has recorded sales and cannot be deleted")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", productID), "product deleted")
	return nil
}

// SetStock overwrites the absolute stock level for a product.
func (s *service) SetStock(ctx context.Context, productID int64, stock int) (*ProductDTO, error) {
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if err := s.repo.SetStock(ctx, productID, stock); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set stock")
	}
	return s.GetProduct(ctx, productID)
}

func validateCreateInput(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.Brand) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "brand required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	return nil
}

func applyUpdate(row *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = name
		row.SearchName = NormalizeName(name)
	}
	if input.Brand != nil {
		if strings.TrimSpace(*input.Brand) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "brand cannot be empty")
		}
		row.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.Category != nil {
		if strings.TrimSpace(*input.Category) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		row.Category = strings.TrimSpace(*input.Category)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		row.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		row.Stock = *input.Stock
	}
	if input.Description != nil {
		row.Description = *input.Description
	}
	if input.ImageURL != nil {
		row.ImageURL = *input.ImageURL
	}
	return nil
}
