package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"storefront/cache"
	"storefront/config"
	"storefront/consumers"
	"storefront/controllers"
	"storefront/database"
	"storefront/fallback"
	"storefront/middlewares"
	"storefront/notification"
	"storefront/rabbitmq"
	"storefront/services"
	"storefront/tracing"
)

func main() {
	cfg := config.LoadConfig()
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Error("tracing initialization failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The service starts without MySQL: reads degrade to the fallback
	// dataset and orders still reach the merchant.
	db, err := database.Open(cfg)
	if err != nil {
		log.Error("database configuration invalid", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.Ping(ctx, db, cfg.DBQueryTimeout); err != nil {
		log.Warn("primary store unreachable at startup", slog.String("error", err.Error()))
	} else if cfg.DBAutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Error("schema migration failed", slog.String("error", err.Error()))
		}
	}

	gate := database.NewGate(cfg.DBMaxConcurrentQuery)
	catalog := services.NewCatalogService(
		database.NewCatalogRepository(db, gate),
		fallback.New(),
		cache.New[services.CatalogPage](),
		services.CatalogConfig{
			QueryTimeout:  cfg.DBQueryTimeout,
			CategoriesTTL: cfg.CacheTTLCategories,
			PrimaryTTL:    cfg.CacheTTLPrimary,
			FallbackTTL:   cfg.CacheTTLFallback,
		},
		log,
	)

	gateway, transport, closeGateway := newGateway(ctx, cfg, log)
	dispatcher := notification.NewDispatcher(gateway, notification.DispatcherOptions{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   cfg.NotifyTimeout,
		OnResult: func(_ notification.Summary, err error) {
			middlewares.RecordNotification(transport, err == nil)
		},
	}, log)

	orders := services.NewOrderService(
		database.NewOrderRepository(db, gate),
		dispatcher,
		services.OrderConfig{
			WriteTimeout: cfg.DBWriteTimeout,
			ShippingFee:  cfg.ShippingFee,
			OnStep: func(step string, err error) {
				middlewares.RecordOrderOperation(step, err == nil)
			},
		},
		log,
	)

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, admin endpoints will refuse every request")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		primary := "up"
		if err := database.Ping(c.Request.Context(), db, time.Second); err != nil {
			primary = "down"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "primaryStore": primary, "cacheEntries": catalog.CacheSize()})
	})

	catalogController := controllers.NewCatalogController(catalog, log)
	orderController := controllers.NewOrderController(orders, log)
	adminController := controllers.NewAdminController(catalog, log)

	api := r.Group("/api")
	{
		api.GET("/categories", catalogController.GetCategories)
		api.GET("/products", catalogController.GetProducts)
		api.POST("/orders", orderController.CreateOrder)
	}

	admin := api.Group("/admin")
	admin.Use(middlewares.AdminAuthMiddleware(cfg.JWTSecret))
	{
		admin.GET("/cache", adminController.GetCacheStats)
		admin.DELETE("/cache", adminController.PurgeCache)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPTimeout,
		WriteTimeout:      cfg.HTTPTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("storefront listening", slog.String("addr", srv.Addr), slog.String("notify_transport", transport))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", slog.String("error", err.Error()))
	}
	// orders accepted before shutdown still notify the merchant
	dispatcher.Close()
	closeGateway()
	if err := db.Close(); err != nil {
		log.Error("database close", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown", slog.String("error", err.Error()))
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// newGateway picks the merchant notification transport. A transport that
// cannot be set up falls back to logging so orders keep flowing.
func newGateway(ctx context.Context, cfg *config.Config, log *slog.Logger) (notification.Gateway, string, func()) {
	noop := func() {}

	switch cfg.NotifyTransport {
	case "webhook":
		if cfg.NotifyWebhookURL == "" {
			log.Error("NOTIFY_WEBHOOK_URL is required for the webhook transport")
			break
		}
		return notification.NewWebhookGateway(cfg.NotifyWebhookURL, cfg.NotifyTimeout), "webhook", noop

	case "amqp":
		rmq, err := rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			log.Error("rabbitmq unavailable", slog.String("error", err.Error()))
			break
		}
		if err := rmq.SetupQueues(); err != nil {
			log.Error("rabbitmq topology", slog.String("error", err.Error()))
			rmq.Close()
			break
		}
		if cfg.NotifyRelayURL != "" {
			if err := startRelay(rmq, cfg, log); err != nil {
				log.Error("notification relay not started", slog.String("error", err.Error()))
			}
		}
		return rmq, "amqp", rmq.Close

	case "sqs":
		if cfg.SQSQueueURL == "" {
			log.Error("NOTIFY_SQS_QUEUE_URL is required for the sqs transport")
			break
		}
		client, err := notification.NewSQSClient(ctx, cfg.AWSRegion)
		if err != nil {
			log.Error("sqs unavailable", slog.String("error", err.Error()))
			break
		}
		return notification.NewSQSGateway(client, cfg.SQSQueueURL), "sqs", noop

	case "log", "":
	default:
		log.Warn("unknown NOTIFY_TRANSPORT, using log", slog.String("transport", cfg.NotifyTransport))
	}
	return notification.NewLogGateway(log), "log", noop
}

// startRelay consumes on its own channel; the publishing channel stays with
// the dispatcher.
func startRelay(rmq *rabbitmq.RabbitMQ, cfg *config.Config, log *slog.Logger) error {
	ch, err := rmq.ConsumerChannel(cfg.NotifyWorkers)
	if err != nil {
		return err
	}
	relay := consumers.NewRelay(notification.NewWebhookGateway(cfg.NotifyRelayURL, cfg.NotifyTimeout), cfg.NotifyTimeout, log)
	return relay.Start(ch, cfg)
}
