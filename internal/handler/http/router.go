package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marco-pm/zencart-typesense/internal/search"
	"github.com/marco-pm/zencart-typesense/internal/service"
	"github.com/marco-pm/zencart-typesense/pkg/health"
	"github.com/marco-pm/zencart-typesense/pkg/middleware"
)

// NewRouter creates a chi router with all dashboard routes registered.
func NewRouter(
	dashboard *service.Dashboard,
	provider search.Provider,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing("dashboard"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("dashboard"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	h := NewDashboardHandler(dashboard, provider, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", h.SyncStatus)
			r.Post("/full", h.RequestFullSync)
		})

		r.Get("/collections", h.Collections)

		r.Route("/synonyms", func(r chi.Router) {
			r.Get("/", h.ListSynonyms)
			r.Put("/{collection}/{id}", h.UpsertSynonym)
			r.Delete("/{collection}/{id}", h.DeleteSynonym)
		})

		r.Get("/search", h.Search)

		r.Route("/server", func(r chi.Router) {
			r.Get("/health", h.ServerHealth)
			r.Get("/metrics", h.ServerMetrics)
			r.Get("/stats", h.ServerStats)
		})
	})

	return r
}
