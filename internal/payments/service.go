package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/backstagehn/storefront-backend/internal/checkout"
	"github.com/backstagehn/storefront-backend/pkg/config"
	"github.com/backstagehn/storefront-backend/pkg/db/models"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/logger"
)

// Metadata keys attached to every hosted payment session. The webhook
// reconciler reads them back to attribute the paid order.
const (
	MetadataUserID = "user_id"
	MetadataCart   = "cart"
)

// CartMetadataLine is one cart line serialized into session metadata.
// UnitAmount is the charged per-unit price in the display currency's minor
// units, the same value sent to the provider's line item.
type CartMetadataLine struct {
	ProductID  int64 `json:"product_id"`
	Quantity   int   `json:"quantity"`
	UnitAmount int64 `json:"unit_amount"`
}

// SessionDTO is the hosted payment page handle returned to clients.
type SessionDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Service creates hosted payment sessions.
type Service interface {
	CreateSession(ctx context.Context, userID int64, email string, input checkout.CheckoutInput) (*SessionDTO, error)
}

type productFinder interface {
	FindByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

type service struct {
	stripe   StripeCheckoutClient
	products productFinder
	cfg      config.PaymentsConfig
	logg     *logger.Logger
}

// NewService builds the payments service.
func NewService(client StripeCheckoutClient, products productFinder, cfg config.PaymentsConfig, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if cfg.ExchangeRate <= 0 {
		return nil, fmt.Errorf("exchange rate must be positive")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("public base url required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{stripe: client, products: products, cfg: cfg, logg: logg}, nil
}

// CreateSession builds a hosted payment session for the cart. Prices come
// from the catalog, converted into the display currency's minor units.
// Stock is not reserved here; the webhook reconciler settles it on payment.
func (s *service) CreateSession(ctx context.Context, userID int64, email string, input checkout.CheckoutInput) (*SessionDTO, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	ids := make([]int64, 0, len(input.Items))
	for _, line := range input.Items {
		if line.ProductID <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		ids = append(ids, line.ProductID)
	}

	rows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load products")
	}
	byID := make(map[int64]*models.Product, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	rate := decimal.NewFromFloat(s.cfg.ExchangeRate)
	currency := strings.ToLower(s.cfg.Currency)
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(input.Items))
	cartMeta := make([]CartMetadataLine, 0, len(input.Items))
	for _, line := range input.Items {
		row, ok := byID[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d not found", line.ProductID))
		}
		if row.Stock < line.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails([]checkout.StockShortage{{
					ProductID: row.ID,
					Name:      row.Name,
					Requested: line.Quantity,
					Available: row.Stock,
				}})
		}

		unitAmount := minorUnits(row.Price, rate)
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(row.Name),
		}
		// hosted checkout rejects relative image paths
		if isAbsoluteURL(row.ImageURL) {
			productData.Images = []*string{stripe.String(row.ImageURL)}
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(unitAmount),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
		cartMeta = append(cartMeta, CartMetadataLine{ProductID: row.ID, Quantity: line.Quantity, UnitAmount: unitAmount})
	}

	cartJSON, err := json.Marshal(cartMeta)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart metadata")
	}

	base := strings.TrimRight(s.cfg.BaseURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(base + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(base + "/cart"),
	}
	if email = strings.TrimSpace(email); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.AddMetadata(MetadataUserID, strconv.FormatInt(userID, 10))
	params.AddMetadata(MetadataCart, string(cartJSON))

	created, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: create checkout session")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"session_id": created.ID, "lines": len(lineItems)})
	s.logg.Info(ctx, "payment session created")

	return &SessionDTO{SessionID: created.ID, URL: created.URL}, nil
}

// minorUnits converts a catalog price into the display currency's smallest
// denomination: price x exchange rate x 100, rounded half up.
func minorUnits(price, rate decimal.Decimal) int64 {
	return price.Mul(rate).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func isAbsoluteURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}
