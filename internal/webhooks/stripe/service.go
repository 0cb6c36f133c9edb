package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"gorm.io/gorm"

	orderspkg "github.com/backstagehn/storefront-backend/internal/orders"
	"github.com/backstagehn/storefront-backend/internal/payments"
	product "github.com/backstagehn/storefront-backend/internal/products"
	"github.com/backstagehn/storefront-backend/pkg/db/models"
	"github.com/backstagehn/storefront-backend/pkg/enums"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/logger"
	pkgstripe "github.com/backstagehn/storefront-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SessionRetriever fetches the full session back from the provider so the
// handler never trusts the event payload alone.
type SessionRetriever interface {
	GetSession(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type sessionClientWrapper struct{}

// NewSessionRetriever wraps the configured Stripe client.
func NewSessionRetriever(api *pkgstripe.Client) SessionRetriever {
	if api == nil {
		return nil
	}
	return &sessionClientWrapper{}
}

func (w *sessionClientWrapper) GetSession(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		params = &stripe.CheckoutSessionParams{}
	}
	params.Context = ctx
	return checkoutsession.Get(id, params)
}

// ServiceParams bundles the dependencies required to build the webhook service.
type ServiceParams struct {
	ProductsRepo      *product.Repository
	OrdersRepo        *orderspkg.Repository
	Sessions          SessionRetriever
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service reconciles completed hosted payments into paid orders.
type Service struct {
	productsRepo *product.Repository
	ordersRepo   *orderspkg.Repository
	sessions     SessionRetriever
	txRunner     txRunner
	logg         *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.ProductsRepo == nil {
		return nil, fmt.Errorf("products repo required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repo required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session retriever required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		productsRepo: params.ProductsRepo,
		ordersRepo:   params.OrdersRepo,
		sessions:     params.Sessions,
		txRunner:     params.TransactionRunner,
		logg:         params.Logger,
	}, nil
}

// HandleEvent processes one verified provider event. Unknown event types are
// acknowledged without side effects.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		return s.settleSession(ctx, &session)
	default:
		return nil
	}
}

// settleSession turns a completed payment session into a paid order and
// decrements stock, atomically. Any failure after the payment was captured
// surfaces as a retryable server error so the provider redelivers.
func (s *Service) settleSession(ctx context.Context, summary *stripe.CheckoutSession) error {
	if summary == nil || summary.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	userID, err := userIDFromMetadata(summary.Metadata)
	if err != nil {
		return err
	}

	// re-retrieve with expanded line items; the event payload omits them
	session, err := s.sessions.GetSession(ctx, summary.ID, &stripe.CheckoutSessionParams{
		Expand: []*string{stripe.String("line_items")},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: retrieve session")
	}

	lines, err := s.resolveLines(ctx, session)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeDataIntegrity, "session carries no fulfillable items").
			WithDetails(map[string]any{"session_id": session.ID})
	}

	total := minorToDecimal(session.AmountTotal)

	ctx = s.logg.WithFields(ctx, map[string]any{"session_id": session.ID, "user_id": userID})

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		productsRepo := s.productsRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		sessionID := session.ID
		order := &models.Order{
			UserID:           userID,
			Total:            total,
			Status:           enums.OrderStatusPaid,
			PaymentSessionID: &sessionID,
		}
		for _, line := range lines {
			order.Items = append(order.Items, models.OrderItem{
				ProductID: line.product.ID,
				Quantity:  line.quantity,
				UnitPrice: line.unitPrice,
			})
		}

		if _, err := ordersRepo.Create(ctx, order); err != nil {
			if pkgerrors.IsUniqueViolation(err) {
				// this session already produced an order; redelivery
				s.logg.Info(ctx, "payment session already settled")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert paid order")
		}

		for _, line := range lines {
			ok, err := productsRepo.DecrementStock(ctx, line.product.ID, line.quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeDataIntegrity, "paid item exceeds available stock").
					WithDetails(map[string]any{
						"session_id": session.ID,
						"product_id": line.product.ID,
						"requested":  line.quantity,
					})
			}
		}

		s.logg.Info(ctx, "paid order settled")
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle session")
	}
	return nil
}

// settledLine is one fulfillable order line. unitPrice is the amount the
// provider actually charged per unit, in the display currency, so item sums
// match the order total.
type settledLine struct {
	product   *models.Product
	quantity  int
	unitPrice decimal.Decimal
}

// resolveLines maps the session back onto catalog products. The cart
// metadata written at session creation is authoritative; line item names are
// the fallback for sessions created without it.
func (s *Service) resolveLines(ctx context.Context, session *stripe.CheckoutSession) ([]settledLine, error) {
	if cartJSON := strings.TrimSpace(session.Metadata[payments.MetadataCart]); cartJSON != "" {
		var cart []payments.CartMetadataLine
		if err := json.Unmarshal([]byte(cartJSON), &cart); err == nil && len(cart) > 0 {
			return s.linesFromCart(ctx, session.ID, cart)
		}
		s.logg.Warn(s.logg.WithField(ctx, "session_id", session.ID), "cart metadata unreadable, falling back to line items")
	}
	return s.linesFromLineItems(ctx, session)
}

func (s *Service) linesFromCart(ctx context.Context, sessionID string, cart []payments.CartMetadataLine) ([]settledLine, error) {
	lines := make([]settledLine, 0, len(cart))
	for _, entry := range cart {
		if entry.ProductID <= 0 || entry.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeDataIntegrity, "malformed cart metadata").
				WithDetails(map[string]any{"session_id": sessionID})
		}
		row, err := s.productsRepo.FindByID(ctx, entry.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeDataIntegrity, "paid product missing from catalog").
					WithDetails(map[string]any{"session_id": sessionID, "product_id": entry.ProductID})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		// the charged amount recorded at session creation; sessions minted
		// before amounts were embedded fall back to the catalog price
		unitPrice := row.Price
		if entry.UnitAmount > 0 {
			unitPrice = minorToDecimal(entry.UnitAmount)
		}
		lines = append(lines, settledLine{product: row, quantity: entry.Quantity, unitPrice: unitPrice})
	}
	return lines, nil
}

func (s *Service) linesFromLineItems(ctx context.Context, session *stripe.CheckoutSession) ([]settledLine, error) {
	if session.LineItems == nil || len(session.LineItems.Data) == 0 {
		return nil, nil
	}
	lines := make([]settledLine, 0, len(session.LineItems.Data))
	for _, item := range session.LineItems.Data {
		name := strings.TrimSpace(item.Description)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeDataIntegrity, "line item carries no product name").
				WithDetails(map[string]any{"session_id": session.ID})
		}
		row, err := s.productsRepo.FindBySearchName(ctx, name)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeDataIntegrity, "paid product missing from catalog").
					WithDetails(map[string]any{"session_id": session.ID, "line_item": name})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve product by name")
		}
		quantity := int(item.Quantity)
		if quantity <= 0 {
			quantity = 1
		}
		unitPrice := row.Price
		switch {
		case item.Price != nil && item.Price.UnitAmount > 0:
			unitPrice = minorToDecimal(item.Price.UnitAmount)
		case item.AmountTotal > 0:
			unitPrice = minorToDecimal(item.AmountTotal).Div(decimal.NewFromInt(int64(quantity)))
		}
		lines = append(lines, settledLine{product: row, quantity: quantity, unitPrice: unitPrice})
	}
	return lines, nil
}

// minorToDecimal converts a provider amount in minor units into the display
// currency's decimal representation.
func minorToDecimal(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
}

func userIDFromMetadata(metadata map[string]string) (int64, error) {
	raw := strings.TrimSpace(metadata[payments.MetadataUserID])
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "session metadata missing user id")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "session metadata carries invalid user id")
	}
	return userID, nil
}
