package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authsvc "github.com/backstagehn/storefront-backend/internal/auth"
	checkoutsvc "github.com/backstagehn/storefront-backend/internal/checkout"
	ordersvc "github.com/backstagehn/storefront-backend/internal/orders"
	paymentsvc "github.com/backstagehn/storefront-backend/internal/payments"
	productsvc "github.com/backstagehn/storefront-backend/internal/products"
	pkgauth "github.com/backstagehn/storefront-backend/pkg/auth"
	"github.com/backstagehn/storefront-backend/pkg/auth/session"
	"github.com/backstagehn/storefront-backend/pkg/config"
	"github.com/backstagehn/storefront-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req authsvc.RegisterRequest) (*authsvc.AuthResponse, error) {
	return &authsvc.AuthResponse{}, nil
}

func (stubAuthService) Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.AuthResponse, error) {
	return &authsvc.AuthResponse{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

type stubProductService struct{}

func (stubProductService) ListProducts(ctx context.Context, input productsvc.ListProductsInput) (*productsvc.ProductListResult, error) {
	return &productsvc.ProductListResult{}, nil
}

func (stubProductService) GetProduct(ctx context.Context, id int64) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{ID: id}, nil
}

func (stubProductService) ListCategories(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (stubProductService) CreateProduct(ctx context.Context, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

func (stubProductService) UpdateProduct(ctx context.Context, productID int64, input productsvc.UpdateProductInput) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

func (stubProductService) DeleteProduct(ctx context.Context, productID int64) error {
	return nil
}

func (stubProductService) SetStock(ctx context.Context, productID int64, stock int) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) PlaceOrder(ctx context.Context, userID int64, input checkoutsvc.CheckoutInput) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

type stubPaymentService struct{}

func (stubPaymentService) CreateSession(ctx context.Context, userID int64, email string, input checkoutsvc.CheckoutInput) (*paymentsvc.SessionDTO, error) {
	return &paymentsvc.SessionDTO{}, nil
}

type stubOrderService struct{}

func (stubOrderService) ListUserOrders(ctx context.Context, userID int64, input ordersvc.ListOrdersInput) (*ordersvc.OrderListResult, error) {
	return &ordersvc.OrderListResult{}, nil
}

func (stubOrderService) GetOrder(ctx context.Context, userID, orderID int64) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrderService) Stats(ctx context.Context) (*ordersvc.StatsDTO, error) {
	return &ordersvc.StatsDTO{}, nil
}

func (stubOrderService) SalesChart(ctx context.Context) ([]ordersvc.ChartPointDTO, error) {
	return nil, nil
}

func (stubOrderService) RevenueByCategory(ctx context.Context) ([]ordersvc.CategoryRevenueDTO, error) {
	return nil, nil
}

func (stubOrderService) MostSold(ctx context.Context) (*ordersvc.MostSoldDTO, error) {
	return nil, nil
}

func testRouterConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60, SessionTTLMinutes: 120},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Params{
		Config:          testRouterConfig(),
		DBPinger:        stubPinger{},
		CachePinger:     stubPinger{},
		SessionChecker:  stubSessionChecker{},
		AuthService:     stubAuthService{},
		ProductService:  stubProductService{},
		CheckoutService: stubCheckoutService{},
		PaymentService:  stubPaymentService{},
		OrderService:    stubOrderService{},
	})
}

func mintRouterToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(testRouterConfig().JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: 7,
		Email:  "shopper@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthAndCatalogArePublic(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready", "/api/v1/products", "/api/v1/products/categories"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d (%s)", path, rec.Code, rec.Body.String())
		}
	}
}

func TestRouterProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/me"},
		{http.MethodPost, "/api/v1/checkout"},
		{http.MethodPost, "/api/v1/payments/session"},
		{http.MethodGet, "/api/admin/v1/dashboard/stats"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestRouterAdminRoutesRejectShoppers(t *testing.T) {
	router := newTestRouter(t)
	token := mintRouterToken(t, enums.UserRoleUser)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestRouterAdminRoutesAllowAdmins(t *testing.T) {
	router := newTestRouter(t)
	token := mintRouterToken(t, enums.UserRoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRouterServesMetrics(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}
