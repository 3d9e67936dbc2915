package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/mrivero/courtbook/internal/api/authz"
	"github.com/mrivero/courtbook/internal/db"
)

const (
	sessionCookieName = "courtbook_session"
	sessionTTL        = 8 * time.Hour
	sessionTokenBytes = 32
)

// secureCookies is set from the environment at startup; only the local
// development environment gets plain-HTTP cookies.
var secureCookies = true

// CreateSession writes a session row for the user and sets the session
// cookie. Stale rows age out via DeleteExpiredSessions.
func CreateSession(ctx context.Context, queries *db.Queries, w http.ResponseWriter, userID int64) error {
	if w == nil {
		return errors.New("session requires response writer")
	}
	if queries == nil {
		return errors.New("session requires queries")
	}

	token, err := newSessionToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(sessionTTL)
	if err := queries.CreateSession(ctx, token, userID, expiresAt); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
		MaxAge:   int(sessionTTL.Seconds()),
	})

	return nil
}

// ClearSession deletes the session row named by the cookie, if any, and
// expires the cookie.
func ClearSession(ctx context.Context, queries *db.Queries, w http.ResponseWriter, r *http.Request) {
	if r != nil && queries != nil {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			_ = queries.DeleteSession(ctx, cookie.Value)
		}
	}
	ClearSessionCookie(w)
}

func ClearSessionCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// UserFromRequest resolves the session cookie to the acting user. A
// missing or expired session is not an error; it returns (nil, nil) and
// clears the dead cookie.
func UserFromRequest(queries *db.Queries, w http.ResponseWriter, r *http.Request) (*authz.ActingUser, error) {
	if r == nil || queries == nil {
		return nil, nil
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	user, err := queries.GetSessionUser(r.Context(), cookie.Value, time.Now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ClearSessionCookie(w)
			return nil, nil
		}
		return nil, err
	}

	return &authz.ActingUser{
		ID:        user.ID,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
	}, nil
}

func newSessionToken() (string, error) {
	token := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(token), nil
}
