package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/inventory-service/api/controllers"
	"github.com/angelmondragon/inventory-service/api/middleware"
	"github.com/angelmondragon/inventory-service/internal/inventory"
	"github.com/angelmondragon/inventory-service/pkg/config"
	"github.com/angelmondragon/inventory-service/pkg/db"
	"github.com/angelmondragon/inventory-service/pkg/logger"
	"github.com/angelmondragon/inventory-service/pkg/redis"
)

// NewRouter wires the public surface. redisClient may be nil, in which case
// idempotency replay and purchase rate limiting are off.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	inventoryService inventory.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	readiness := map[string]controllers.Pinger{"db": dbP}
	var (
		idempotencyStore redis.IdempotencyStore
		limiter          *redis.Client
	)
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
		limiter = redisClient
	} else {
		readiness["redis"] = nil
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	purchasePolicy := middleware.NewRateLimitPolicy(
		"purchase",
		cfg.RateLimit.Window,
		cfg.RateLimit.Limit,
	)

	r.Route("/inventory", func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.App.APIKey, logg))

		r.Post("/", controllers.CreateOrUpdateInventory(inventoryService, logg))
		r.Get("/", controllers.ListInventory(inventoryService, logg))
		// Inline middlewares run after routing, once the pattern is known.
		r.With(
			rateLimit(purchasePolicy, limiter, logg),
			middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg),
		).Post("/purchases", controllers.PurchaseInventory(inventoryService, logg))
		r.Get("/{productId}", controllers.GetInventory(inventoryService, logg))
	})

	return r
}

// rateLimit keeps a nil client out of the store interface.
func rateLimit(policy middleware.RateLimitPolicy, client *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	if client == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(policy, client, logg, http.MethodPost)
}
