package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/application/analytics"
	catalogapp "github.com/stocklink/pos/internal/application/catalog"
	identityapp "github.com/stocklink/pos/internal/application/identity"
	notificationapp "github.com/stocklink/pos/internal/application/notification"
	salesapp "github.com/stocklink/pos/internal/application/sales"
	"github.com/stocklink/pos/internal/domain/notification"
	domainpayment "github.com/stocklink/pos/internal/domain/payment"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/infrastructure/auth"
	"github.com/stocklink/pos/internal/infrastructure/cache"
	"github.com/stocklink/pos/internal/infrastructure/config"
	"github.com/stocklink/pos/internal/infrastructure/event"
	"github.com/stocklink/pos/internal/infrastructure/logger"
	infranotification "github.com/stocklink/pos/internal/infrastructure/notification"
	"github.com/stocklink/pos/internal/infrastructure/payment"
	"github.com/stocklink/pos/internal/infrastructure/persistence"
	"github.com/stocklink/pos/internal/infrastructure/printing"
	"github.com/stocklink/pos/internal/infrastructure/scheduler"
	"github.com/stocklink/pos/internal/infrastructure/storage"
	"github.com/stocklink/pos/internal/infrastructure/telemetry"
	"github.com/stocklink/pos/internal/interfaces/http/handler"
	"github.com/stocklink/pos/internal/interfaces/http/middleware"
	"github.com/stocklink/pos/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Stocklink POS API
//	@version		1.0
//	@description	Point of sale checkout, receipts and catalog
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Stocklink POS",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry providers register themselves as the otel globals
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:        log,
		LogLevel:      logger.GormLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        cfg.Database.Driver,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	// Caches and idempotency store
	stores := cache.NewStores(ctx, cfg, log)
	defer func() {
		_ = stores.Close()
	}()

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	discountRepo := persistence.NewGormDiscountRepository(db.DB)
	deliveryRepo := persistence.NewGormDeliveryRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	// Receipt rendering
	receiptOpts, err := printing.OptionsFromConfig(cfg.Receipt)
	if err != nil {
		log.Fatal("Invalid receipt configuration", zap.Error(err))
	}
	renderer, err := printing.NewReceiptRenderer(receiptOpts)
	if err != nil {
		log.Fatal("Failed to initialize receipt renderer", zap.Error(err))
	}
	var converter notification.DocumentConverter
	if cfg.Receipt.PDFEnabled {
		converter = printing.NewChromedpConverter(printing.ChromedpConfig{
			Timeout:   cfg.Receipt.RenderTimeout,
			RemoteURL: cfg.Receipt.ChromeURL,
			NoSandbox: true,
			Logger:    log,
		})
	}
	archive, err := storage.NewReceiptArchive(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize receipt archive", zap.Error(err))
	}

	// Receipt delivery
	mailer := infranotification.MailerFromConfig(cfg.SMTP, log)
	if mailer == nil {
		log.Info("Email delivery disabled")
	}
	spooler := infranotification.SpoolerFromConfig(cfg.Printer, log)
	if spooler == nil {
		log.Info("Print delivery disabled")
	}
	dispatcherCfg := notificationapp.DispatcherConfig{
		IssuerName:     cfg.Receipt.IssuerName,
		CurrencySymbol: cfg.Receipt.CurrencySymbol,
	}
	dispatcher := notificationapp.NewDispatcher(mailer, spooler, deliveryRepo, dispatcherCfg, log)
	receiptService := notificationapp.NewReceiptService(saleRepo, renderer, converter, archive, dispatcher, log)

	// Receipt worker pool
	bus := event.NewAsyncEventBus(event.QueueConfig{
		Workers:      cfg.Worker.Workers,
		QueueSize:    cfg.Worker.QueueSize,
		MaxAttempts:  cfg.Worker.MaxAttempts,
		RetryBackoff: cfg.Worker.RetryBackoff,
		JobTimeout:   cfg.Worker.JobTimeout,
	}, log)
	bus.Subscribe(event.NewIdempotentHandler(receiptService, stores.Idempotency, log,
		event.WithKeyFunc(notificationapp.JobKey),
		event.WithIdempotencyTTL(cfg.Worker.IdempotencyTTL),
		event.WithIdempotencyMetrics(&event.IdempotencyMetrics{}),
	), sales.EventTypeSaleCommitted)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start receipt workers", zap.Error(err))
	}

	// Application services
	saleService := salesapp.NewSaleService(productRepo, saleRepo, uow, stores.Products, salesapp.Config{
		PollInterval:        cfg.Payment.PollInterval,
		ConfirmationTimeout: cfg.Payment.ConfirmationTimeout,
	}, log)
	saleService.SetEventPublisher(bus)
	saleService.SetReceipts(receiptService, deliveryRepo)

	var collaborator domainpayment.MobileMoneyCollaborator
	if cfg.Payment.Enabled {
		httpCollaborator := payment.NewHTTPCollaborator(cfg.Payment, log)
		saleService.SetPaymentCollaborator(httpCollaborator)
		collaborator = httpCollaborator
	}

	metrics, err := telemetry.NewSaleMetrics(meterProvider.Meter("stocklink-pos"), productRepo, log)
	if err != nil {
		log.Warn("Sale metrics disabled", zap.Error(err))
	} else {
		saleService.SetMetrics(metrics)
		receiptService.SetMetrics(metrics)
		dispatcher.SetMetrics(metrics)
		metrics.StartPeriodicCollection(ctx, time.Minute)
		defer metrics.Stop()
	}

	productService := catalogapp.NewProductService(productRepo, stores.Products, log)
	discountService := notificationapp.NewDiscountService(discountRepo, productRepo, saleRepo, mailer, dispatcherCfg, log)
	analyticsService := analytics.NewService(saleRepo, productRepo, receiptOpts.Location, log)

	dayClose := scheduler.NewDailyTrigger("day-close", scheduler.DailyTriggerConfig{
		Hour:          0,
		Minute:        5,
		CheckInterval: time.Minute,
		Location:      receiptOpts.Location,
	}, closeDay(analyticsService, log), log)
	if err := dayClose.Start(ctx); err != nil {
		log.Warn("Day close disabled", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := auth.NewStoreTokenBlacklist(stores.Idempotency)
	authService := identityapp.NewAuthService(userRepo, auth.NewBcryptHasher(auth.DefaultBcryptCost), jwtService, blacklist, log)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSFromConfig(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		}),
		middleware.HTTPMetrics(meterProvider.Meter("stocklink-pos/http"), log),
	)
	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.TokenBlacklist = blacklist
	jwtCfg.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg), middleware.TracingAttributes())

	routes := router.SetupPOS(engine, router.Handlers{
		Sales:     handler.NewSaleHandler(saleService, analyticsService, productService, receiptOpts.Location),
		Products:  handler.NewProductHandler(productService),
		Discounts: handler.NewDiscountHandler(discountService),
		Payments:  handler.NewPaymentHandler(collaborator),
		Auth:      handler.NewAuthHandler(authService),
		Health:    handler.NewHealthHandler(db, bus, version),
	}, router.Options{
		LoginLimiter: middleware.NewRateLimiter(10, time.Minute),
	})
	log.Debug("Routes registered", zap.Int("count", len(routes)))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := dayClose.Stop(shutdownCtx); err != nil {
		log.Error("Day close did not stop", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Receipt workers did not drain", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}
}

// closeDay logs the previous day's totals shortly after midnight
func closeDay(svc *analytics.Service, log *zap.Logger) scheduler.Job {
	return func(ctx context.Context, today time.Time) error {
		summary, err := svc.Summary(ctx, today.AddDate(0, 0, -1))
		if err != nil {
			return err
		}
		log.Info("Day closed",
			zap.String("day", summary.Day),
			zap.String("total_sales", summary.TotalSales.StringFixed(2)),
			zap.Int("transactions", summary.TransactionCount),
			zap.Int("items_sold", summary.TotalItemsSold),
			zap.Int("low_stock_products", len(summary.LowStockProducts)),
		)
		return nil
	}
}
