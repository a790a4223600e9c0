package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harvestlink/harvestlink-backend/api/controllers"
	"github.com/harvestlink/harvestlink-backend/api/middleware"
	"github.com/harvestlink/harvestlink-backend/pkg/config"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
)

// NewProbeRouter serves only health and metrics. The background workers
// mount it on a side port so orchestrators can probe them.
func NewProbeRouter(cfg *config.Config, logg *logger.Logger, registry *prometheus.Registry, deps map[string]controllers.Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	mountProbes(r, cfg, logg, registry, deps)
	return r
}

func mountProbes(r chi.Router, cfg *config.Config, logg *logger.Logger, registry *prometheus.Registry, deps map[string]controllers.Pinger) {
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
}
