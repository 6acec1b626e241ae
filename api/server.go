/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for a local dashboard

ROUTE GROUPS:
  /api/stays/*          Stay ledger
  /api/jurisdictions/*  Threshold configuration
  /api/presence/*       Day counts
  /api/simulate         Forward simulation
  /api/report           Reports
  /api/scenarios/*      Demo ledgers
  /metrics              Prometheus
  /                     Endpoint index

SECURITY NOTE:
  No authentication middleware. All endpoints are public; bind to
  localhost when the ledger holds real travel history.

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics.go: Prometheus collectors
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/stays", func(r chi.Router) {
			r.Get("/", h.ListStays)
			r.Post("/", h.CreateStay)
			r.Delete("/{id}", h.DeleteStay)
		})

		r.Route("/jurisdictions", func(r chi.Router) {
			r.Get("/", h.ListJurisdictions)
			r.Post("/", h.CreateJurisdiction)
			r.Get("/{country}", h.GetJurisdiction)
		})

		r.Get("/presence/{country}", h.GetPresence)
		r.Post("/simulate", h.Simulate)

		r.Get("/report", h.GetReport)
		r.Get("/reports/latest", h.GetLatestReport)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Residency Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Residency Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/stays">/api/stays</a> - Stay ledger</li>
<li><a href="/api/jurisdictions">/api/jurisdictions</a> - Thresholds</li>
<li><a href="/api/report">/api/report</a> - Presence report</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo ledgers</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`))
	})

	return r
}
