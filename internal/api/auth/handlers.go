package auth

import (
	"database/sql"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/courtbook/internal/api/apiutil"
	"github.com/mrivero/courtbook/internal/api/authz"
	"github.com/mrivero/courtbook/internal/db"
	"github.com/mrivero/courtbook/internal/ratelimit"
)

var (
	queries  *db.Queries
	limiter  *ratelimit.Limiter
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *db.Queries, environment string) {
	if q == nil {
		return
	}
	initOnce.Do(func() {
		queries = q
		limiter = ratelimit.New(nil)
		secureCookies = environment != "development"
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// POST /api/v1/auth/login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if queries == nil {
		logger.Error().Msg("Auth handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	ip := ratelimit.ClientIP(r)
	if result := limiter.CheckLogin(req.Username, ip); !result.Allowed {
		ratelimit.LogRateLimitExceeded(req.Username, ip, result.Reason)
		http.Error(w, "Too many attempts, try again later", http.StatusTooManyRequests)
		return
	}

	user, err := queries.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.Error().Err(err).Msg("Failed to look up user for login")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Verify against a missing user too so the timing does not reveal
	// which usernames exist.
	hash := user.PasswordHash
	if errors.Is(err, sql.ErrNoRows) {
		hash = dummyPasswordHash
	}
	if !VerifyPassword(hash, req.Password) || errors.Is(err, sql.ErrNoRows) {
		locked := limiter.RecordFailure(req.Username, ip)
		logEvent := logger.Warn().Str("account", ratelimit.SanitizeAccount(req.Username))
		if locked {
			logEvent = logEvent.Bool("locked_out", true)
		}
		logEvent.Msg("Login failed")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	limiter.RecordSuccess(req.Username, ip)

	if err := CreateSession(r.Context(), queries, w, user.ID); err != nil {
		logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("Login succeeded")
	_ = apiutil.WriteJSON(w, http.StatusOK, sessionResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// POST /api/v1/auth/logout
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	ClearSession(r.Context(), queries, w, r)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/auth/session
func HandleSession(w http.ResponseWriter, r *http.Request) {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, sessionResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}
