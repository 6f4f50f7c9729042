/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request log tagged with the request id
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request duration by route pattern
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/projects/*                 Projects and stored phases
  /api/projects/{id}/timeline/*   Edit previews
  /api/scenarios/*                Demo scenarios
  /metrics                        Prometheus scrape endpoint
  /healthz                        Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/serve.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/timeline-engine/logging"
	"github.com/warp/timeline-engine/metrics"
)

// RouterOptions tunes the router. The zero value serves no metrics and
// allows the local dev origins.
type RouterOptions struct {
	AllowedOrigins []string
	Metrics        bool
}

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(h.Logger))
	r.Use(middleware.Recoverer)
	if opts.Metrics {
		r.Use(metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Healthz)
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProject)
				r.Get("/phases", h.GetPhases)
				r.Put("/phases", h.SavePhases)

				// Timeline previews
				r.Route("/timeline", func(r chi.Router) {
					r.Post("/validate", h.ValidateTimeline)
					r.Post("/resize", h.ResizePhase)
					r.Post("/reorder", h.ReorderPhases)
					r.Post("/delete", h.DeletePhase)
					r.Post("/add", h.AddPhase)
					r.Post("/edit", h.EditPhase)
				})
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
