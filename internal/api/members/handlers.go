// internal/api/members/handlers.go
package members

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"

	"github.com/mrivero/courtbook/internal/api/apiutil"
	"github.com/mrivero/courtbook/internal/api/auth"
	"github.com/mrivero/courtbook/internal/api/authz"
	"github.com/mrivero/courtbook/internal/booking"
	"github.com/mrivero/courtbook/internal/db"
)

// defaultPhoneRegion resolves national-format numbers; clients can always
// submit full E.164 instead.
const defaultPhoneRegion = "AR"

var (
	queries  *db.Queries
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *db.Queries) {
	if q == nil {
		return
	}
	initOnce.Do(func() {
		queries = q
	})
}

type createClientRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	DocumentID string `json:"documentId"`
	Phone      string `json:"phone"`
	SkillLevel string `json:"skillLevel"`
}

type clientResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	DocumentID string `json:"documentId,omitempty"`
	Phone      string `json:"phone,omitempty"`
	SkillLevel string `json:"skillLevel,omitempty"`
}

func toClientResponse(u db.User) clientResponse {
	return clientResponse{
		ID:         u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		DocumentID: u.DocumentID,
		Phone:      u.Phone,
		SkillLevel: u.SkillLevel,
	}
}

// POST /api/v1/members
func HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleStaff, authz.RoleAdmin) {
		return
	}

	var req createClientRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Username == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		http.Error(w, "username, password, firstName and lastName are required", http.StatusBadRequest)
		return
	}

	phone, err := normalizePhone(req.Phone)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user, err := q.CreateUser(r.Context(), db.CreateUserParams{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         authz.RoleClient,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DocumentID:   strings.TrimSpace(req.DocumentID),
		Phone:        phone,
		SkillLevel:   strings.TrimSpace(req.SkillLevel),
	})
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "Username already registered", http.StatusConflict)
			return
		}
		logger.Error().Err(err).Msg("Failed to create client")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("client_id", user.ID).Msg("Client registered")
	_ = apiutil.WriteJSON(w, http.StatusCreated, toClientResponse(user))
}

// GET /api/v1/members
func HandleListClients(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleStaff, authz.RoleAdmin) {
		return
	}

	var (
		clients []db.User
		err     error
	)
	if lastName := strings.TrimSpace(r.URL.Query().Get("last_name")); lastName != "" {
		clients, err = q.ListClientsByLastName(r.Context(), lastName)
	} else {
		clients, err = q.ListClients(r.Context())
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list clients")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	out := make([]clientResponse, len(clients))
	for i, c := range clients {
		out[i] = toClientResponse(c)
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, out)
}

// GET /api/v1/members/last-names
//
// Feeds the first stage of the two-step client picker on the booking form.
func HandleListLastNames(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireRole(w, r, authz.RoleStaff, authz.RoleAdmin) {
		return
	}

	names, err := q.ListDistinctClientLastNames(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list client last names")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, names)
}

type availabilityEntry struct {
	DayOfWeek int    `json:"dayOfWeek"`
	FromTime  string `json:"fromTime"`
	ToTime    string `json:"toTime"`
}

// GET /api/v1/members/{id}/availability
func HandleGetAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	userID, ok := availabilityTarget(w, r)
	if !ok {
		return
	}

	entries, err := q.ListUserAvailability(r.Context(), userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load availability")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	out := make([]availabilityEntry, len(entries))
	for i, e := range entries {
		out[i] = availabilityEntry{DayOfWeek: e.DayOfWeek, FromTime: e.FromTime, ToTime: e.ToTime}
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, out)
}

// PUT /api/v1/members/{id}/availability
func HandleReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	userID, ok := availabilityTarget(w, r)
	if !ok {
		return
	}

	var req []availabilityEntry
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entries := make([]db.AvailabilityEntry, len(req))
	for i, e := range req {
		if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
			http.Error(w, "dayOfWeek must be between 0 and 6", http.StatusBadRequest)
			return
		}
		from, err := booking.NormalizeClock(e.FromTime)
		if err != nil {
			http.Error(w, "fromTime: "+err.Error(), http.StatusBadRequest)
			return
		}
		to, err := booking.NormalizeClock(e.ToTime)
		if err != nil {
			http.Error(w, "toTime: "+err.Error(), http.StatusBadRequest)
			return
		}
		entries[i] = db.AvailabilityEntry{UserID: userID, DayOfWeek: e.DayOfWeek, FromTime: from, ToTime: to}
	}

	if err := q.ReplaceUserAvailability(r.Context(), userID, entries); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to replace availability")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// availabilityTarget resolves the {id} path value and enforces that clients
// only touch their own availability.
func availabilityTarget(w http.ResponseWriter, r *http.Request) (int64, bool) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}

	userID, err := apiutil.IDFromPath(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}

	if user.Role == authz.RoleClient && user.ID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return 0, false
	}
	return userID, true
}

func normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", errors.New("phone must be a valid number")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func loadQueries() *db.Queries {
	return queries
}
