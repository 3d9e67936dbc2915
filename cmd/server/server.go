// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mrivero/courtbook/internal/api"
	"github.com/mrivero/courtbook/internal/api/auth"
	"github.com/mrivero/courtbook/internal/api/members"
	"github.com/mrivero/courtbook/internal/api/payments"
	"github.com/mrivero/courtbook/internal/api/reservations"
	"github.com/mrivero/courtbook/internal/booking"
	"github.com/mrivero/courtbook/internal/config"
	"github.com/mrivero/courtbook/internal/db"
)

func newServer(cfg *config.Config, database *db.DB, bookingService *booking.Service) *http.Server {
	router := http.NewServeMux()

	auth.InitHandlers(database.Queries, cfg.App.Environment)
	members.InitHandlers(database.Queries)
	reservations.InitHandlers(bookingService)
	payments.InitHandlers(bookingService)

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithAuth(database.Queries),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth routes
	mux.HandleFunc("POST /api/v1/auth/login", auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", auth.HandleLogout)
	mux.HandleFunc("GET /api/v1/auth/session", auth.HandleSession)

	// Member routes
	mux.HandleFunc("POST /api/v1/members", members.HandleCreateClient)
	mux.HandleFunc("GET /api/v1/members", members.HandleListClients)
	mux.HandleFunc("GET /api/v1/members/last-names", members.HandleListLastNames)
	mux.HandleFunc("GET /api/v1/members/{id}/availability", members.HandleGetAvailability)
	mux.HandleFunc("PUT /api/v1/members/{id}/availability", members.HandleReplaceAvailability)

	// Reservation routes
	mux.HandleFunc("POST /api/v1/reservations", reservations.HandleCreate)
	mux.HandleFunc("GET /api/v1/reservations", reservations.HandleList)
	mux.HandleFunc("GET /api/v1/reservations/history", reservations.HandleHistory)
	mux.HandleFunc("PATCH /api/v1/reservations/{id}", reservations.HandleUpdate)
	mux.HandleFunc("DELETE /api/v1/reservations/{id}", reservations.HandleDelete)

	// Payment routes
	mux.HandleFunc("GET /api/v1/reservations/{id}/payment", payments.HandleQuote)
	mux.HandleFunc("POST /api/v1/reservations/{id}/payment", payments.HandlePay)
}
