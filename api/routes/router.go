package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/backstagehn/storefront-backend/api/controllers"
	webhookcontrollers "github.com/backstagehn/storefront-backend/api/controllers/webhooks"
	"github.com/backstagehn/storefront-backend/api/middleware"
	authsvc "github.com/backstagehn/storefront-backend/internal/auth"
	checkoutsvc "github.com/backstagehn/storefront-backend/internal/checkout"
	ordersvc "github.com/backstagehn/storefront-backend/internal/orders"
	paymentsvc "github.com/backstagehn/storefront-backend/internal/payments"
	productsvc "github.com/backstagehn/storefront-backend/internal/products"
	"github.com/backstagehn/storefront-backend/internal/users"
	stripewebhook "github.com/backstagehn/storefront-backend/internal/webhooks/stripe"
	"github.com/backstagehn/storefront-backend/pkg/auth/session"
	"github.com/backstagehn/storefront-backend/pkg/config"
	"github.com/backstagehn/storefront-backend/pkg/logger"
	"github.com/backstagehn/storefront-backend/pkg/metrics"
	"github.com/backstagehn/storefront-backend/pkg/stripe"
)

type dependencyPinger interface {
	Ping(ctx context.Context) error
}

// Params bundles everything the router wires into handlers.
type Params struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger    dependencyPinger
	CachePinger dependencyPinger

	SessionChecker session.AccessSessionChecker

	AuthService     authsvc.Service
	ProductService  productsvc.Service
	CheckoutService checkoutsvc.Service
	PaymentService  paymentsvc.Service
	OrderService    ordersvc.Service
	UsersRepo       *users.Repository

	StripeClient         *stripe.Client
	StripeWebhookService *stripewebhook.Service
	StripeWebhookGuard   *stripewebhook.IdempotencyGuard

	HTTPMetrics     *metrics.HTTPMetrics
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DBPinger, p.CachePinger, logg))
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler(p.MetricsGatherer))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhookService, p.StripeClient, p.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.Register(p.AuthService, logg))
		r.Post("/login", controllers.Login(p.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, p.SessionChecker, logg)).
			Post("/logout", controllers.Logout(p.AuthService, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(p.ProductService, logg))
		r.Get("/categories", controllers.ListCategories(p.ProductService, logg))
		r.Get("/{productID}", controllers.GetProduct(p.ProductService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionChecker, logg))

		r.Get("/me", controllers.Profile(p.UsersRepo, logg))
		r.Post("/checkout", controllers.Checkout(p.CheckoutService, logg))
		r.Post("/payments/session", controllers.CreatePaymentSession(p.PaymentService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListMyOrders(p.OrderService, logg))
			r.Get("/{orderID}", controllers.GetMyOrder(p.OrderService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionChecker, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(p.ProductService, logg))
			r.Patch("/{productID}", controllers.AdminUpdateProduct(p.ProductService, logg))
			r.Delete("/{productID}", controllers.AdminDeleteProduct(p.ProductService, logg))
			r.Put("/{productID}/stock", controllers.AdminSetStock(p.ProductService, logg))
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/stats", controllers.DashboardStats(p.OrderService, logg))
			r.Get("/chart", controllers.DashboardSalesChart(p.OrderService, logg))
			r.Get("/categories", controllers.DashboardCategories(p.OrderService, logg))
			r.Get("/most-sold", controllers.DashboardMostSold(p.OrderService, logg))
		})
	})

	return r
}
