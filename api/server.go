/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client IP behind proxies
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/orders/*    Orders, payments, reception, delivery
  /api/accounts/*  Cash registers and bank accounts
  /api/records     Financial ledger (list + manual entries)
  /api/clients/*   Client credits
  /api/closures/*  Cash closure snapshots
  /api/audit       Balance audit

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
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
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrder)
			r.Post("/{id}/payments", h.RegisterPayment)
			r.Put("/{id}/payments/{pid}", h.EditPayment)
			r.Delete("/{id}/payments/{pid}", h.RevertPayment)
			r.Post("/{id}/receive", h.ReceiveOrder)
			r.Post("/{id}/deliver", h.DeliverOrder)
			r.Post("/{id}/cancel", h.CancelOrder)
		})

		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
		})

		// Ledger routes
		r.Route("/records", func(r chi.Router) {
			r.Get("/", h.ListRecords)
			r.Post("/", h.CreateManualRecord)
		})
		r.Get("/clients/{id}/credits", h.ListClientCredits)

		// Closure routes
		r.Route("/closures", func(r chi.Router) {
			r.Get("/", h.ListClosures)
			r.Post("/", h.CreateClosure)
			r.Get("/{id}", h.GetClosure)
		})

		// Audit route
		r.Get("/audit", h.RunAudit)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
