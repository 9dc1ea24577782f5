package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/event-rsvp/internal/observability"
)

// SetupRouter wires the page, the JSON API and the probes. rl may be nil.
func SetupRouter(h *Handlers, logger observability.Logger, rl Limiter, sessionTTL time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(sessionTTL))
		r.Use(LoggerMiddleware(logger))
		if rl != nil {
			r.Use(RateLimitMiddleware(rl, logger))
		}

		r.Get("/", h.Page)
		r.Post("/events", h.CreateEvent)
		r.Post("/rsvp", h.RSVP)
		r.Post("/reset", h.Reset)

		r.Route("/api", func(r chi.Router) {
			r.Get("/state", h.APIState)
			r.Patch("/form", h.APIUpdateForm)
			r.Post("/events", h.APICreateEvent)
			r.Post("/rsvp", h.APIRSVP)
			r.Post("/reset", h.APIReset)
		})
	})

	return r
}
