// internal/api/payments/handlers.go
package payments

import (
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/courtbook/internal/api/apiutil"
	"github.com/mrivero/courtbook/internal/api/authz"
	"github.com/mrivero/courtbook/internal/booking"
)

var (
	service  *booking.Service
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(svc *booking.Service) {
	if svc == nil {
		return
	}
	initOnce.Do(func() {
		service = svc
	})
}

type payRequest struct {
	Method     string `json:"method"`
	Cardholder string `json:"cardholder,omitempty"`
	CardNumber string `json:"cardNumber,omitempty"`
	CardExpiry string `json:"cardExpiry,omitempty"`
}

type priceViewResponse struct {
	ReservationID int64  `json:"reservationId"`
	Status        string `json:"status"`
	ClientName    string `json:"clientName"`
	ClientEmail   string `json:"clientEmail"`
	Date          string `json:"date"`
	DateDisplay   string `json:"dateDisplay"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Court         string `json:"court"`
	AmountCents   int64  `json:"amountCents"`
	AmountDisplay string `json:"amountDisplay"`
	Payable       bool   `json:"payable"`
	Message       string `json:"message,omitempty"`
}

func toPriceViewResponse(v booking.PriceView) priceViewResponse {
	return priceViewResponse{
		ReservationID: v.Reservation.ID,
		Status:        v.Reservation.Status,
		ClientName:    v.ClientName,
		ClientEmail:   v.ClientEmail,
		Date:          v.Reservation.Date,
		DateDisplay:   v.DateDisplay,
		StartTime:     v.Reservation.StartTime,
		EndTime:       v.Reservation.EndTime,
		Court:         v.Reservation.Court,
		AmountCents:   v.AmountCents,
		AmountDisplay: apiutil.FormatPriceCents(v.AmountCents),
		Payable:       v.Payable,
		Message:       v.Message,
	}
}

// GET /api/v1/reservations/{id}/payment
//
// Returns the price breakdown shown before confirming a payment. Reading
// it never changes reservation state.
func HandleQuote(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleClient, authz.RoleStaff, authz.RoleAdmin) {
		return
	}

	id, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := svc.Quote(r.Context(), authz.UserFromContext(r.Context()), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, toPriceViewResponse(view))
}

// POST /api/v1/reservations/{id}/payment
func HandlePay(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleClient, authz.RoleStaff, authz.RoleAdmin) {
		return
	}

	id, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req payRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := svc.Pay(r.Context(), authz.UserFromContext(r.Context()), id, booking.PaymentRequest{
		Method:     req.Method,
		Cardholder: req.Cardholder,
		CardNumber: req.CardNumber,
		CardExpiry: req.CardExpiry,
	})
	if errors.Is(err, booking.ErrNotPayable) {
		// Refused, but the caller still gets the current state and amount.
		_ = apiutil.WriteJSON(w, http.StatusConflict, toPriceViewResponse(result.PriceView))
		return
	}
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, toPriceViewResponse(result.PriceView))
}

func loadService() *booking.Service {
	return service
}
