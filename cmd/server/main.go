package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/blueprint-paywall/internal/catalog"
	"github.com/iliyamo/blueprint-paywall/internal/config"
	"github.com/iliyamo/blueprint-paywall/internal/database"
	"github.com/iliyamo/blueprint-paywall/internal/handler"
	"github.com/iliyamo/blueprint-paywall/internal/ledger"
	"github.com/iliyamo/blueprint-paywall/internal/logger"
	"github.com/iliyamo/blueprint-paywall/internal/metrics"
	"github.com/iliyamo/blueprint-paywall/internal/middleware"
	"github.com/iliyamo/blueprint-paywall/internal/payment"
	"github.com/iliyamo/blueprint-paywall/internal/queue"
	"github.com/iliyamo/blueprint-paywall/internal/repository"
	"github.com/iliyamo/blueprint-paywall/internal/router"
	"github.com/iliyamo/blueprint-paywall/internal/service"
	"github.com/iliyamo/blueprint-paywall/internal/token"
)

func main() {
	_ = config.LoadDotEnv()
	cfg, cfgErr := config.Load()

	log, err := logger.New(cfg.Env, cfg.LogLevel, "blueprint-paywall")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	if cfgErr != nil {
		log.Fatal("invalid configuration", zap.Error(cfgErr))
	}
	if cfg.CookieSecret == "" {
		log.Warn("GRQ_COOKIE_SECRET is not set; access cookies cannot be issued or verified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Ledger: Redis when configured, otherwise in-memory only.
	rdb, err := config.NewRedisClient(ctx, cfg)
	switch {
	case errors.Is(err, config.ErrInvalidKVURL):
		log.Fatal("invalid kv store configuration", zap.Error(err))
	case err != nil:
		log.Warn("kv store unreachable at startup; ledger operations will fall back per request", zap.Error(err))
	}
	var durable ledger.Store
	if rdb != nil {
		durable = ledger.NewRedisStore(rdb, cfg.LedgerNamespace)
		defer func() { _ = rdb.Close() }()
	} else {
		log.Warn("kv store not configured; running in degraded mode")
	}
	led := ledger.New(durable, nil, log, m)

	provider := payment.NewStripeProvider(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		PriceID:       cfg.StripePriceID,
		BaseURL:       cfg.BaseURL,
	}, nil, log)
	codec := token.New(cfg.CookieSecret)
	cat := catalog.MustLoad()

	// Purchase archive (optional).
	var archive *repository.AuditRepo
	if cfg.MySQLDSN != "" {
		db, err := database.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Error("mysql unavailable; archive disabled", zap.Error(err))
		} else if err := database.EnsureSchema(ctx, db); err != nil {
			log.Error("mysql schema setup failed; archive disabled", zap.Error(err))
			_ = db.Close()
		} else {
			archive = repository.NewAuditRepo(db)
			defer func() { _ = db.Close() }()
		}
	}

	// Fulfillment events (optional).
	var publisher service.EventPublisher = service.NopPublisher{}
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		defer func() { _ = pub.Close() }()
		publisher = pub

		var sink queue.Sink = &queue.FileSink{Dir: "logs"}
		if archive.Enabled() {
			sink = archive
		}
		go func() {
			if err := queue.StartFulfillmentConsumer(ctx, cfg.RabbitURL, sink, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("fulfillment consumer stopped", zap.Error(err))
			}
		}()
	}

	checkout := service.NewCheckout(provider, cat, log, m)
	confirmer := service.NewConfirmer(provider, led, codec, service.ConfirmerOptions{
		DefaultRole: cfg.DefaultRole,
		Publisher:   publisher,
		Log:         log,
		Metrics:     m,
	})
	gate := service.NewGate(codec, led, log, m)
	cookie := handler.CookieOptions{Secure: cfg.Production()}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = handler.NewRenderer()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(m.Middleware())

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log)

	router.RegisterRoutes(e, led, m)
	router.RegisterPayments(e, handler.NewPaymentHandler(checkout, confirmer, cookie, log), limiter)
	router.RegisterPages(e, handler.NewPageHandler(cat, gate, confirmer, cookie, log), cache)
	if cfg.AdminEnabled() {
		router.RegisterAdmin(e, handler.NewAdminHandler(cfg, led, archive, log), cfg.AdminJWTSecret, limiter)
	} else {
		log.Info("admin api disabled (ADMIN_PASSWORD_HASH or ADMIN_JWT_SECRET not set)")
	}

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.Bool("durable_ledger", led.Durable()), zap.Bool("archive", archive.Enabled()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
