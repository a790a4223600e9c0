package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harvestlink/harvestlink-backend/api/controllers"
	"github.com/harvestlink/harvestlink-backend/api/middleware"
	"github.com/harvestlink/harvestlink-backend/internal/auth"
	"github.com/harvestlink/harvestlink-backend/internal/cart"
	"github.com/harvestlink/harvestlink-backend/internal/checkout"
	"github.com/harvestlink/harvestlink-backend/internal/crops"
	"github.com/harvestlink/harvestlink-backend/internal/dashboard"
	"github.com/harvestlink/harvestlink-backend/internal/deliveries"
	"github.com/harvestlink/harvestlink-backend/internal/inventory"
	"github.com/harvestlink/harvestlink-backend/internal/orders"
	product "github.com/harvestlink/harvestlink-backend/internal/products"
	"github.com/harvestlink/harvestlink-backend/pkg/auth/session"
	"github.com/harvestlink/harvestlink-backend/pkg/config"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
	"github.com/harvestlink/harvestlink-backend/pkg/metrics"
)

// Cache is the Redis surface used by rate limiting and idempotency.
type Cache interface {
	controllers.Pinger
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Services bundles everything the router mounts.
type Services struct {
	Auth       auth.Service
	Register   auth.RegisterService
	Dashboard  dashboard.Service
	Crops      crops.Service
	Products   product.Service
	Inventory  inventory.Service
	Suppliers  inventory.SupplierService
	Restocks   inventory.RestockService
	Cart       cart.Service
	Checkout   checkout.Service
	Orders     orders.Service
	Deliveries deliveries.Service
	Images     controllers.ImageStore
}

// Infra carries the shared clients the router needs beyond the services.
type Infra struct {
	DB         controllers.Pinger
	Cache      Cache
	Sessions   session.AccessSessionChecker
	Registry   *prometheus.Registry
	UploadsDir string
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if infra.Registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(infra.Registry)
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginIdentifierLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		0,
	)

	deps := map[string]controllers.Pinger{"db": infra.DB}
	if infra.Cache != nil {
		deps["redis"] = infra.Cache
	}
	mountProbes(r, cfg, logg, infra.Registry, deps)

	if infra.UploadsDir != "" {
		prefix := cfg.Uploads.PublicPath
		if prefix == "" {
			prefix = "/uploads"
		}
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(infra.UploadsDir))))
	}

	authenticate := middleware.Auth(cfg.JWT, infra.Sessions, logg)
	farmer := middleware.RequireRole(logg, enums.UserRoleFarmer)
	distributor := middleware.RequireRole(logg, enums.UserRoleDistributor)
	retailer := middleware.RequireRole(logg, enums.UserRoleRetailer)
	buyer := middleware.RequireRole(logg, enums.UserRoleRetailer, enums.UserRoleDistributor)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, infra.Cache, logg), middleware.Idempotency(infra.Cache, logg)).
				Post("/register", controllers.AuthRegister(svc.Register, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, infra.Cache, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.With(authenticate).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RateLimit(infra.Cache, cfg.AuthRateLimit.APIUserLimit, cfg.AuthRateLimit.APIWindow, logg))
			r.Use(middleware.Idempotency(infra.Cache, logg))

			r.Get("/me", controllers.Me(svc.Auth, logg))
			r.Get("/dashboard", controllers.Dashboard(svc.Dashboard, logg))

			r.Route("/crops", func(r chi.Router) {
				r.Get("/", controllers.CropList(svc.Crops, logg))
				r.With(farmer).Post("/", controllers.CropCreate(svc.Crops, svc.Images, logg))
				r.Route("/{cropId}", func(r chi.Router) {
					r.Get("/", controllers.CropGet(svc.Crops, logg))
					r.With(farmer).Put("/", controllers.CropUpdate(svc.Crops, svc.Images, logg))
					r.With(farmer).Delete("/", controllers.CropDelete(svc.Crops, logg))
					r.With(farmer).Post("/status", controllers.CropStatus(svc.Crops, logg))
					r.With(buyer).Post("/orders", controllers.CropPlaceOrder(svc.Orders, logg))
				})
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductList(svc.Products, logg))
				r.With(farmer).Post("/", controllers.ProductCreate(svc.Products, svc.Images, logg))
				r.Get("/{productId}", controllers.ProductGet(svc.Products, logg))
				r.With(farmer).Put("/{productId}", controllers.ProductUpdate(svc.Products, svc.Images, logg))
				r.With(farmer).Delete("/{productId}", controllers.ProductDelete(svc.Products, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(distributor)
				r.Route("/inventory", func(r chi.Router) {
					r.Get("/", controllers.InventoryList(svc.Inventory, logg))
					r.Post("/", controllers.InventoryCreate(svc.Inventory, svc.Images, logg))
					r.Get("/low-stock", controllers.InventoryLowStock(svc.Inventory, logg))
					r.Route("/{itemId}", func(r chi.Router) {
						r.Get("/", controllers.InventoryGet(svc.Inventory, logg))
						r.Put("/", controllers.InventoryUpdate(svc.Inventory, svc.Images, logg))
						r.Delete("/", controllers.InventoryDelete(svc.Inventory, logg))
						r.Post("/adjust", controllers.InventoryAdjust(svc.Inventory, logg))
						r.Post("/reorder", controllers.InventoryReorder(svc.Restocks, logg))
					})
				})
				r.Route("/restock-orders", func(r chi.Router) {
					r.Get("/", controllers.RestockList(svc.Restocks, logg))
					r.Post("/{restockId}/receive", controllers.RestockReceive(svc.Restocks, logg))
					r.Post("/{restockId}/cancel", controllers.RestockCancel(svc.Restocks, logg))
				})
				r.Route("/suppliers", func(r chi.Router) {
					r.Get("/", controllers.SupplierList(svc.Suppliers, logg))
					r.Post("/", controllers.SupplierCreate(svc.Suppliers, logg))
					r.Get("/{supplierId}", controllers.SupplierGet(svc.Suppliers, logg))
					r.Put("/{supplierId}", controllers.SupplierUpdate(svc.Suppliers, logg))
					r.Delete("/{supplierId}", controllers.SupplierDelete(svc.Suppliers, logg))
				})
				r.Post("/deliveries/{deliveryId}/status", controllers.DeliveryStatus(svc.Deliveries, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(retailer)
				r.Route("/cart", func(r chi.Router) {
					r.Get("/", controllers.CartGet(svc.Cart, logg))
					r.Delete("/", controllers.CartClear(svc.Cart, logg))
					r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
					r.Put("/items/{productId}", controllers.CartUpdateItem(svc.Cart, logg))
					r.Delete("/items/{productId}", controllers.CartRemoveItem(svc.Cart, logg))
				})
				r.Post("/checkout", controllers.Checkout(svc.Checkout, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(svc.Orders, logg))
				r.Get("/updates", controllers.OrderUpdates(svc.Orders, controllers.StreamOptions{
					Interval: cfg.Stream.Interval,
					MaxBatch: cfg.Stream.MaxBatch,
				}, logg))
				r.Route("/{orderId}", func(r chi.Router) {
					r.Get("/", controllers.OrderDetail(svc.Orders, logg))
					r.Get("/tracking", controllers.OrderTracking(svc.Orders, logg))
					r.With(buyer).Post("/status", controllers.OrderStatus(svc.Orders, logg))
					r.With(distributor).Post("/claim", controllers.OrderClaim(svc.Orders, logg))
				})
			})
		})
	})

	return r
}
