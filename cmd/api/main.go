package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-souq/internal/auth"
	"github.com/noah-isme/backend-souq/internal/cart"
	"github.com/noah-isme/backend-souq/internal/catalog"
	"github.com/noah-isme/backend-souq/internal/checkout"
	"github.com/noah-isme/backend-souq/internal/common"
	"github.com/noah-isme/backend-souq/internal/config"
	"github.com/noah-isme/backend-souq/internal/db"
	"github.com/noah-isme/backend-souq/internal/discount"
	"github.com/noah-isme/backend-souq/internal/events"
	"github.com/noah-isme/backend-souq/internal/health"
	"github.com/noah-isme/backend-souq/internal/inventory"
	"github.com/noah-isme/backend-souq/internal/location"
	"github.com/noah-isme/backend-souq/internal/obs"
	"github.com/noah-isme/backend-souq/internal/order"
	"github.com/noah-isme/backend-souq/internal/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "souq")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "souq-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "souq-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	store := db.NewStore(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	locationSvc := &location.Service{Q: store.Queries}
	discountSvc := &discount.Service{Q: store.Queries}
	inventorySvc := &inventory.Service{Q: store.Queries}
	cartSvc := &cart.Service{Q: store.Queries, Discounts: discountSvc, Locations: locationSvc}
	cartHandler := &cart.Handler{Svc: cartSvc}

	bus := &events.Bus{Q: store.Queries, Log: logger}

	checkoutSvc := &checkout.Service{
		Store:    checkout.PGStore{DB: store},
		Bus:      bus,
		Log:      logger,
		Currency: cfg.Currency,
	}

	paymob := &payment.Client{
		BaseURL:         cfg.PaymobBaseURL,
		CheckoutBaseURL: cfg.PaymobCheckoutBaseURL,
		SecretKey:       cfg.PaymobSecretKey,
		PublicKey:       cfg.PaymobPublicKey,
		HMACSecret:      cfg.PaymobHMACSecret,
		NotificationURL: cfg.BackendBaseURL + "/api/v1/webhooks/paymob",
		RedirectionURL:  cfg.BackendBaseURL + "/api/v1/webhooks/paymob/redirect",
	}
	checkoutHandler := &checkout.Handler{
		Svc:      checkoutSvc,
		Carts:    cartSvc,
		Stock:    inventorySvc,
		Cards:    paymob,
		Validate: validator.New(),
	}

	orderSvc := &order.Service{Q: store.Queries, Bus: bus}
	orderHandler := &order.Handler{Svc: orderSvc}

	paymentWebhook := &payment.Webhook{
		HMACSecret: cfg.PaymobHMACSecret,
		Redis:      redisClient,
		ReplayTTL:  cfg.WebhookReplayTTL,
		Checkout:   checkoutSvc,
		Orders:     orderSvc,
		Log:        logger,
	}
	paymentHandler := &payment.Handler{
		Webhook:         paymentWebhook,
		Orders:          store.Queries,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}

	catalogHandler := &catalog.Handler{Svc: &catalog.Service{Q: store.Queries}}
	adminHandler := &catalog.AdminHandler{Inventory: inventorySvc, Discounts: discountSvc}

	authMW := auth.Middleware{Secret: []byte(cfg.JWTSecret)}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	checkoutRate, err := limiter.NewRateFromFormatted(cfg.CheckoutRate)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse checkout rate limit")
	}
	limiterStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
		Prefix: "ratelimit:checkout",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	checkoutLimiter := limiterstdlib.NewMiddleware(limiter.New(limiterStore, checkoutRate))

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, nil, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(authMW.Authenticate)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := &health.Handler{Pool: pool, Redis: redisClient}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{productID}", catalogHandler.ProductDetail)
		v.Get("/bundles/{bundleID}", catalogHandler.BundleDetail)
		v.Get("/categories/tree", catalogHandler.CategoryTree)

		v.Route("/cart", func(c chi.Router) {
			c.Use(auth.RequireAuth)
			c.Get("/", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/items", cartHandler.AddItem)
				g.Put("/items/{itemID}", cartHandler.UpdateItem)
				g.Delete("/items/{itemID}", cartHandler.RemoveItem)
			})
			c.With(idem.Middleware, checkoutLimiter.Handler).
				Post("/checkout", checkoutHandler.Checkout)
		})

		v.Group(func(authR chi.Router) {
			authR.Use(auth.RequireAuth)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/{orderID}", orderHandler.Get)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(auth.RequireAuth)
			admin.Get("/orders", orderHandler.AdminList)
			admin.Patch("/orders/{orderID}", orderHandler.PatchStatus)
			admin.Post("/inventory/{productID}/restock", adminHandler.Restock)
			admin.Post("/discounts", adminHandler.CreateDiscount)
		})

		v.Post("/webhooks/paymob", paymentHandler.HandleWebhook)
		v.Get("/webhooks/paymob/redirect", paymentHandler.HandleRedirect)
		v.Get("/webhooks/paymob/verify/{orderID}", paymentHandler.HandleVerify)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}
