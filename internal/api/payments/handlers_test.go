package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/mrivero/courtbook/internal/api/authz"
	"github.com/mrivero/courtbook/internal/booking"
	"github.com/mrivero/courtbook/internal/db"
	"github.com/mrivero/courtbook/internal/testutil"
)

const testHourlyRate = 24000

func setupHandlers(t *testing.T) *db.DB {
	t.Helper()
	database := testutil.NewTestDB(t)
	svc := booking.NewService(database, testHourlyRate, []string{"court-1"})
	// The sync.Once guard means the first test wires the package; later
	// calls just swap the service for the fresh database.
	InitHandlers(svc)
	service = svc
	return database
}

func asUser(r *http.Request, user *authz.ActingUser) *http.Request {
	return r.WithContext(authz.ContextWithUser(r.Context(), user))
}

func seedClientWithReservation(t *testing.T, database *db.DB, username string) (db.User, db.Reservation) {
	t.Helper()
	ctx := context.Background()
	user, err := database.Queries.CreateUser(ctx, db.CreateUserParams{
		Username: username, PasswordHash: "x", Role: db.RoleClient,
		FirstName: "Ana", LastName: "Suarez",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	res, err := database.Queries.CreateReservation(ctx, db.CreateReservationParams{
		ClientID: user.ID, ClientEmail: user.Username,
		Date: "2030-01-16", StartTime: "09:00", EndTime: "10:00", Court: "court-1",
		CreatedBy: sql.NullInt64{Int64: user.ID, Valid: true},
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	return user, res
}

func paymentRequest(method, target string, reservationID int64, body string, user *authz.ActingUser) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.SetPathValue("id", strconv.FormatInt(reservationID, 10))
	if user != nil {
		r = asUser(r, user)
	}
	return r
}

func TestHandleQuoteClientScope(t *testing.T) {
	database := setupHandlers(t)
	owner, res := seedClientWithReservation(t, database, "ana@club.test")

	// The owner sees their own payment view.
	r := paymentRequest(http.MethodGet, "/api/v1/reservations/0/payment", res.ID, "", &authz.ActingUser{ID: owner.ID, Role: authz.RoleClient})
	w := httptest.NewRecorder()
	HandleQuote(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("owner quote status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var view struct {
		AmountCents int64 `json:"amountCents"`
		Payable     bool  `json:"payable"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.AmountCents != testHourlyRate || !view.Payable {
		t.Fatalf("view = %+v, want payable at the hourly rate", view)
	}

	// Another client gets nothing, not even existence.
	r = paymentRequest(http.MethodGet, "/api/v1/reservations/0/payment", res.ID, "", &authz.ActingUser{ID: owner.ID + 1, Role: authz.RoleClient})
	w = httptest.NewRecorder()
	HandleQuote(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign quote status = %d, want 404", w.Code)
	}

	// Anonymous callers are turned away before any lookup.
	r = paymentRequest(http.MethodGet, "/api/v1/reservations/0/payment", res.ID, "", nil)
	w = httptest.NewRecorder()
	HandleQuote(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous quote status = %d, want 401", w.Code)
	}
}

func TestHandlePayClientOwnReservation(t *testing.T) {
	database := setupHandlers(t)
	owner, res := seedClientWithReservation(t, database, "ana@club.test")
	actor := &authz.ActingUser{ID: owner.ID, Role: authz.RoleClient}

	r := paymentRequest(http.MethodPost, "/api/v1/reservations/0/payment", res.ID, `{"method":"cash"}`, actor)
	w := httptest.NewRecorder()
	HandlePay(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("pay status = %d, want 200: %s", w.Code, w.Body.String())
	}

	stored, err := database.Queries.GetReservation(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != db.ReservationPaid {
		t.Fatalf("stored status = %s, want paid", stored.Status)
	}

	// A second attempt is refused but still reports state and amount.
	r = paymentRequest(http.MethodPost, "/api/v1/reservations/0/payment", res.ID, `{"method":"cash"}`, actor)
	w = httptest.NewRecorder()
	HandlePay(w, r)
	if w.Code != http.StatusConflict {
		t.Fatalf("second pay status = %d, want 409", w.Code)
	}
	var refused struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &refused); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if refused.Status != db.ReservationPaid || refused.Message == "" {
		t.Fatalf("refusal = %+v, want paid with message", refused)
	}
}

func TestHandlePayForeignReservation(t *testing.T) {
	database := setupHandlers(t)
	owner, res := seedClientWithReservation(t, database, "ana@club.test")

	r := paymentRequest(http.MethodPost, "/api/v1/reservations/0/payment", res.ID, `{"method":"cash"}`, &authz.ActingUser{ID: owner.ID + 1, Role: authz.RoleClient})
	w := httptest.NewRecorder()
	HandlePay(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign pay status = %d, want 404", w.Code)
	}

	stored, err := database.Queries.GetReservation(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != db.ReservationActive {
		t.Fatalf("stored status = %s, want active", stored.Status)
	}
}
