package proxy

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vnmchuo/palm-gateway/internal/auth"
	"github.com/vnmchuo/palm-gateway/internal/telemetry"
)

// NewMux wires the public HTTP surface. CORS and preflight handling run
// before everything else; unknown paths and methods get a plain 404.
func NewMux(h *Handler, authMiddleware auth.Middleware) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(telemetry.MetricsMiddleware)
	r.Use(CORS)

	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)

	// Public routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"palm-gateway"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		for _, path := range h.router.Paths() {
			r.Post(path, h.HandleProxy)
		}
	})

	return r
}
