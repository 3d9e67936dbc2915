// internal/api/reservations/handlers.go
package reservations

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/courtbook/internal/api/apiutil"
	"github.com/mrivero/courtbook/internal/api/authz"
	"github.com/mrivero/courtbook/internal/booking"
	"github.com/mrivero/courtbook/internal/db"
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

type createRequest struct {
	Date            string `json:"date"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	Court           string `json:"court"`
	ClientID        int64  `json:"clientId,omitempty"`
	ClientLastName  string `json:"clientLastName,omitempty"`
	ClientFirstName string `json:"clientFirstName,omitempty"`
}

type updateRequest struct {
	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"startTime,omitempty"`
	EndTime   *string `json:"endTime,omitempty"`
	Court     *string `json:"court,omitempty"`
	Status    *string `json:"status,omitempty"`
}

type reservationResponse struct {
	ID          int64  `json:"id"`
	ClientID    int64  `json:"clientId"`
	ClientName  string `json:"clientName,omitempty"`
	ClientEmail string `json:"clientEmail,omitempty"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Court       string `json:"court"`
	Status      string `json:"status"`
}

func toResponse(r db.ReservationWithClient) reservationResponse {
	email := r.ClientUsername
	if email == "" {
		email = r.ClientEmail
	}
	return reservationResponse{
		ID:          r.ID,
		ClientID:    r.ClientID,
		ClientName:  booking.DisplayName(r.ClientLastName, r.ClientFirstName),
		ClientEmail: email,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Court:       r.Court,
		Status:      r.Status,
	}
}

// POST /api/v1/reservations
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	actor := authz.UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reservation, err := svc.Create(r.Context(), actor, booking.CreateReservationRequest{
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Court:           req.Court,
		ClientID:        req.ClientID,
		ClientLastName:  req.ClientLastName,
		ClientFirstName: req.ClientFirstName,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusCreated, toResponse(db.ReservationWithClient{Reservation: reservation}))
}

// GET /api/v1/reservations
//
// Clients see their own upcoming reservations; staff see everyone's.
func HandleList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	reservations, err := svc.List(r.Context(), authz.UserFromContext(r.Context()))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	out := make([]reservationResponse, len(reservations))
	for i, res := range reservations {
		out[i] = toResponse(res)
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, out)
}

// GET /api/v1/reservations/history
func HandleHistory(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	reservations, err := svc.History(r.Context(), authz.UserFromContext(r.Context()))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	out := make([]reservationResponse, len(reservations))
	for i, res := range reservations {
		out[i] = toResponse(res)
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, out)
}

// PATCH /api/v1/reservations/{id}
func HandleUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err = svc.Update(r.Context(), authz.UserFromContext(r.Context()), id, booking.ReservationPatch{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Court:     req.Court,
		Status:    req.Status,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/reservations/{id}
func HandleDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := svc.Remove(r.Context(), authz.UserFromContext(r.Context()), id); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func loadService() *booking.Service {
	return service
}
