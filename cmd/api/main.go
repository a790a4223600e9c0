package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/api/routes"
	"github.com/harvestlink/harvestlink-backend/internal/auth"
	"github.com/harvestlink/harvestlink-backend/internal/cart"
	"github.com/harvestlink/harvestlink-backend/internal/checkout"
	"github.com/harvestlink/harvestlink-backend/internal/crops"
	"github.com/harvestlink/harvestlink-backend/internal/dashboard"
	"github.com/harvestlink/harvestlink-backend/internal/deliveries"
	"github.com/harvestlink/harvestlink-backend/internal/inventory"
	"github.com/harvestlink/harvestlink-backend/internal/orders"
	product "github.com/harvestlink/harvestlink-backend/internal/products"
	"github.com/harvestlink/harvestlink-backend/internal/uploads"
	"github.com/harvestlink/harvestlink-backend/internal/users"
	"github.com/harvestlink/harvestlink-backend/pkg/auth/session"
	"github.com/harvestlink/harvestlink-backend/pkg/config"
	"github.com/harvestlink/harvestlink-backend/pkg/db"
	"github.com/harvestlink/harvestlink-backend/pkg/instance"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
	"github.com/harvestlink/harvestlink-backend/pkg/metrics"
	"github.com/harvestlink/harvestlink-backend/pkg/migrate"
	"github.com/harvestlink/harvestlink-backend/pkg/outbox"
	"github.com/harvestlink/harvestlink-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		InstanceID:  instance.GetID("api"),
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, sessionManager, metrics.NewDomainMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			DB:         dbClient,
			Cache:      redisClient,
			Sessions:   sessionManager,
			Registry:   registry,
			UploadsDir: cfg.Uploads.Dir,
		}, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, domainMetrics *metrics.DomainMetrics) (routes.Services, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg, cfg.FeatureFlags.Outbox)

	var svc routes.Services
	var err error

	if svc.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
	}); err != nil {
		return svc, err
	}
	if svc.Register, err = auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	}); err != nil {
		return svc, err
	}

	cropRepo := crops.NewRepository(conn)
	if svc.Crops, err = crops.NewService(cropRepo, dbClient, emitter); err != nil {
		return svc, err
	}
	if svc.Products, err = product.NewService(product.NewRepository(conn), dbClient); err != nil {
		return svc, err
	}

	inventoryRepo := inventory.NewRepository(conn)
	if svc.Inventory, err = inventory.NewService(inventoryRepo, dbClient); err != nil {
		return svc, err
	}
	if svc.Suppliers, err = inventory.NewSupplierService(inventoryRepo, dbClient); err != nil {
		return svc, err
	}
	if svc.Restocks, err = inventory.NewRestockService(inventoryRepo, dbClient, emitter, logg); err != nil {
		return svc, err
	}

	cartRepo := cart.NewRepository(conn)
	if svc.Cart, err = cart.NewService(cartRepo, dbClient, func(tx *gorm.DB) cart.ProductLookup {
		return product.NewRepository(tx)
	}); err != nil {
		return svc, err
	}

	ordersRepo := orders.NewRepository(conn)
	if svc.Orders, err = orders.NewService(ordersRepo, dbClient, func(tx *gorm.DB) orders.CropStock {
		return cropRepo.WithTx(tx)
	}, emitter, domainMetrics, logg); err != nil {
		return svc, err
	}
	if svc.Checkout, err = checkout.NewService(
		dbClient,
		checkout.NewRepository(conn),
		cartRepo,
		ordersRepo,
		nil,
		emitter,
		domainMetrics,
		logg,
		checkout.Options{
			DeliveryLeadDays: cfg.Checkout.DeliveryLeadDays,
			TrackingPrefix:   cfg.Checkout.TrackingPrefix,
		},
	); err != nil {
		return svc, err
	}

	deliveriesRepo := deliveries.NewRepository(conn)
	if svc.Deliveries, err = deliveries.NewService(deliveriesRepo, dbClient, emitter); err != nil {
		return svc, err
	}
	if svc.Dashboard, err = dashboard.NewService(ordersRepo, cropRepo, inventoryRepo, deliveriesRepo, cartRepo); err != nil {
		return svc, err
	}

	images, err := uploads.NewStore(uploads.Options{
		Dir:               cfg.Uploads.Dir,
		PublicPath:        cfg.Uploads.PublicPath,
		MaxBytes:          cfg.Uploads.MaxBytes,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
		ThumbnailWidth:    cfg.Uploads.ThumbnailWidth,
	}, logg)
	if err != nil {
		return svc, err
	}
	svc.Images = images
	return svc, nil
}
