// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trustgrid/internal/platform/metrics"
	"trustgrid/internal/platform/middleware"
)

// NewRouter wires all endpoints behind the shared middleware chain. The
// metrics argument may be nil (tests).
func NewRouter(resolve *ResolveHandler, registry *RegistryHandler, health *HealthHandler, logger *slog.Logger, httpMetrics *metrics.HTTP) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	if httpMetrics != nil {
		r.Use(instrument(httpMetrics))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", resolve.handleResolve)
		r.Post("/resolve/batch", resolve.handleResolveBatch)

		r.Route("/registry/providers", func(r chi.Router) {
			r.Get("/", registry.handleList)
			r.Put("/", registry.handlePublish)
			r.Delete("/{providerID}", registry.handleUnpublish)
		})
	})

	r.Get("/healthz", health.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// instrument records per-route request counts and latency. The route label
// is the chi pattern, never the raw path, to keep cardinality bounded.
func instrument(m *metrics.HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.Requests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
			m.Duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
