package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/courtbook/internal/api/authz"
	"github.com/mrivero/courtbook/internal/booking"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

type errorResponse struct {
	Error string `json:"error"`
}

// StatusForError maps service-layer errors to HTTP status codes. Anything
// unrecognized is a 500.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, authz.ErrForbidden), errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrSlotConflict), errors.Is(err, booking.ErrNotPayable):
		return http.StatusConflict
	case errors.Is(err, booking.ErrValidation),
		errors.Is(err, booking.ErrInvalidTimeRange),
		errors.Is(err, booking.ErrPastTime),
		errors.Is(err, booking.ErrClientNotResolved):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError translates a service error into a JSON error response. Server
// errors get a generic message so internals never leak to clients.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		message = "Internal Server Error"
	}
	_ = WriteJSON(w, status, errorResponse{Error: message})
}

// RequireRole writes the authz failure response itself and reports whether
// the handler may continue.
func RequireRole(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	logger := log.Ctx(r.Context())
	user := authz.UserFromContext(r.Context())
	if err := authz.RequireRole(r.Context(), roles...); err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logEvent := logger.Warn().Str("path", r.URL.Path)
			if user != nil {
				logEvent = logEvent.Int64("user_id", user.ID)
			}
			logEvent.Msg("Access denied: unauthenticated")
			_ = WriteJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		case errors.Is(err, authz.ErrForbidden):
			logEvent := logger.Warn().Str("path", r.URL.Path)
			if user != nil {
				logEvent = logEvent.Int64("user_id", user.ID)
			}
			logEvent.Msg("Access denied: forbidden")
			_ = WriteJSON(w, http.StatusForbidden, errorResponse{Error: "Forbidden"})
		default:
			logger.Error().Err(err).Str("path", r.URL.Path).Msg("Access denied: error")
			_ = WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to authorize request"})
		}
		return false
	}
	return true
}
