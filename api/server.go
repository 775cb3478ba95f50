/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the HR frontend

ROUTE GROUPS:
  /api/loans/*      Loan lifecycle and sub-request resolution
  /api/payroll/*    The payroll run's inbound port
  /api/employees/*  Employee master seeding
  /api/scenarios/*  Demo scenarios (dev only)

SECURITY NOTE:
  No authentication middleware; the acting user arrives via X-Actor-* headers
  and the engine enforces capabilities. Authentication is owned by the
  surrounding HR system.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-Id", "X-Actor-Roles"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Loan routes
		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.ListLoans)
			r.Post("/", h.RequestLoan)
			r.Get("/{id}", h.GetLoan)
			r.Post("/{id}/approve", h.ApproveLoan)
			r.Post("/{id}/reject", h.RejectLoan)
			r.Post("/{id}/skip-emi", h.RequestSkipEmi)
			r.Post("/{id}/skip-emi/{month}/resolve", h.ResolveSkipEmi)
			r.Post("/{id}/override/resolve", h.ResolveOverride)
		})

		// Payroll integration port
		r.Route("/payroll", func(r chi.Router) {
			r.Get("/due", h.DueAmount)
			r.Post("/credits", h.RecordCredit)
		})

		// Employee master seeding
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
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
