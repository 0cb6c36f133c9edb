package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/backstagehn/storefront-backend/api/routes"
	authsvc "github.com/backstagehn/storefront-backend/internal/auth"
	checkoutsvc "github.com/backstagehn/storefront-backend/internal/checkout"
	ordersvc "github.com/backstagehn/storefront-backend/internal/orders"
	paymentsvc "github.com/backstagehn/storefront-backend/internal/payments"
	productsvc "github.com/backstagehn/storefront-backend/internal/products"
	"github.com/backstagehn/storefront-backend/internal/users"
	stripewebhook "github.com/backstagehn/storefront-backend/internal/webhooks/stripe"
	"github.com/backstagehn/storefront-backend/pkg/auth/session"
	"github.com/backstagehn/storefront-backend/pkg/config"
	"github.com/backstagehn/storefront-backend/pkg/db"
	"github.com/backstagehn/storefront-backend/pkg/logger"
	"github.com/backstagehn/storefront-backend/pkg/metrics"
	"github.com/backstagehn/storefront-backend/pkg/migrate"
	"github.com/backstagehn/storefront-backend/pkg/redis"
	"github.com/backstagehn/storefront-backend/pkg/stripe"
)

const (
	webhookMarkTTL  = 24 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	productsRepo := productsvc.NewRepository(dbClient.DB())
	ordersRepo := ordersvc.NewRepository(dbClient.DB())

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productService, err := productsvc.NewService(productsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	orderService, err := ordersvc.NewService(ordersRepo, productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(dbClient, productsRepo, ordersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentService, err := paymentsvc.NewService(paymentsvc.NewStripeClient(stripeClient), productsRepo, cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		ProductsRepo:      productsRepo,
		OrdersRepo:        ordersRepo,
		Sessions:          stripewebhook.NewSessionRetriever(stripeClient),
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookMarkTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	handler := routes.NewRouter(routes.Params{
		Config:               cfg,
		Logger:               logg,
		DBPinger:             dbClient,
		CachePinger:          redisClient,
		SessionChecker:       sessionManager,
		AuthService:          authService,
		ProductService:       productService,
		CheckoutService:      checkoutService,
		PaymentService:       paymentService,
		OrderService:         orderService,
		UsersRepo:            usersRepo,
		StripeClient:         stripeClient,
		StripeWebhookService: webhookService,
		StripeWebhookGuard:   webhookGuard,
		HTTPMetrics:          httpMetrics,
		MetricsGatherer:      registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(runCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(runCtx, "api server stopped")
}
