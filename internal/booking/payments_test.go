package booking

import (
	"context"
	"errors"
	"testing"

	appdb "github.com/mrivero/courtbook/internal/db"
)

func TestPayRecordsPaymentOnce(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	client := seedUser(t, database, "ana@club.test", appdb.RoleClient, "Ana", "Suarez")
	staff := actingUser(seedUser(t, database, "staff@club.test", appdb.RoleStaff, "Sol", "Gomez"))

	res, err := svc.Create(ctx, staff, CreateReservationRequest{
		Date: "2030-01-16", StartTime: "09:00", EndTime: "10:30", Court: "court-1",
		ClientID: client.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := svc.Pay(ctx, staff, res.ID, PaymentRequest{
		Method:     "card",
		Cardholder: "Ana Suarez",
		CardNumber: "4111 1111 1111 4242",
		CardExpiry: "12/31",
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if result.Payment == nil {
		t.Fatal("pay returned no payment record")
	}
	// 90 minutes at 24000/h is three half-hour blocks.
	if result.Payment.AmountCents != 36000 {
		t.Fatalf("amount = %d, want 36000", result.Payment.AmountCents)
	}
	if result.Payment.CardLast4 != "4242" {
		t.Fatalf("card_last4 = %q, want 4242", result.Payment.CardLast4)
	}
	if result.Reservation.Status != appdb.ReservationPaid {
		t.Fatalf("view status = %s, want paid", result.Reservation.Status)
	}

	stored, err := database.Queries.GetReservation(ctx, res.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != appdb.ReservationPaid {
		t.Fatalf("stored status = %s, want paid", stored.Status)
	}

	// A second payment is refused and leaves the ledger untouched, but
	// still reports the current state and amount.
	second, err := svc.Pay(ctx, staff, res.ID, PaymentRequest{Method: "cash"})
	if !errors.Is(err, ErrNotPayable) {
		t.Fatalf("second pay: expected ErrNotPayable, got %v", err)
	}
	if second.Payable {
		t.Fatal("second pay view should not be payable")
	}
	if second.AmountCents != 36000 {
		t.Fatalf("second pay view amount = %d, want 36000", second.AmountCents)
	}

	count, err := database.Queries.CountPaymentsByReservation(ctx, res.ID)
	if err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 1 {
		t.Fatalf("payment count = %d, want 1", count)
	}
}

func TestPayValidation(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	client := seedUser(t, database, "ana@club.test", appdb.RoleClient, "Ana", "Suarez")
	staff := actingUser(seedUser(t, database, "staff@club.test", appdb.RoleStaff, "Sol", "Gomez"))

	res, err := svc.Create(ctx, staff, CreateReservationRequest{
		Date: "2030-01-16", StartTime: "09:00", EndTime: "10:00", Court: "court-1",
		ClientID: client.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Pay(ctx, staff, res.ID, PaymentRequest{Method: "crypto"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown method: expected ErrValidation, got %v", err)
	}
	if _, err := svc.Pay(ctx, staff, 99999, PaymentRequest{Method: "cash"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing reservation: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Pay(ctx, nil, res.ID, PaymentRequest{Method: "cash"}); err == nil {
		t.Fatal("nil actor: expected error")
	}

	// The failed attempts must not have changed the reservation.
	stored, err := database.Queries.GetReservation(ctx, res.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != appdb.ReservationActive {
		t.Fatalf("stored status = %s, want active", stored.Status)
	}
}

func TestPayCancelledReservation(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	client := seedUser(t, database, "ana@club.test", appdb.RoleClient, "Ana", "Suarez")
	staff := actingUser(seedUser(t, database, "staff@club.test", appdb.RoleStaff, "Sol", "Gomez"))

	res, err := svc.Create(ctx, staff, CreateReservationRequest{
		Date: "2030-01-16", StartTime: "09:00", EndTime: "10:00", Court: "court-1",
		ClientID: client.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cancelled := appdb.ReservationCancelled
	if err := svc.Update(ctx, staff, res.ID, ReservationPatch{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	result, err := svc.Pay(ctx, staff, res.ID, PaymentRequest{Method: "cash"})
	if !errors.Is(err, ErrNotPayable) {
		t.Fatalf("pay cancelled: expected ErrNotPayable, got %v", err)
	}
	if result.Reservation.Status != appdb.ReservationCancelled {
		t.Fatalf("view status = %s, want cancelled", result.Reservation.Status)
	}
	if result.Message == "" {
		t.Fatal("view should explain why payment is refused")
	}
}

func TestClientPaysOwnReservationOnly(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	ana := actingUser(seedUser(t, database, "ana@club.test", appdb.RoleClient, "Ana", "Suarez"))
	luis := actingUser(seedUser(t, database, "luis@club.test", appdb.RoleClient, "Luis", "Paz"))

	res, err := svc.Create(ctx, ana, CreateReservationRequest{
		Date: "2030-01-16", StartTime: "09:00", EndTime: "10:00", Court: "court-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Another client cannot see or settle someone else's reservation.
	if _, err := svc.Quote(ctx, luis, res.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign quote: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Pay(ctx, luis, res.ID, PaymentRequest{Method: "cash"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign pay: expected ErrNotFound, got %v", err)
	}

	// The owner settles their own.
	result, err := svc.Pay(ctx, ana, res.ID, PaymentRequest{Method: "cash"})
	if err != nil {
		t.Fatalf("own pay: %v", err)
	}
	// One hour is two half-hour blocks, which is exactly the hourly rate.
	if result.Payment == nil || result.Payment.AmountCents != testRate {
		t.Fatalf("payment = %+v, want %d", result.Payment, testRate)
	}
	stored, err := database.Queries.GetReservation(ctx, res.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != appdb.ReservationPaid {
		t.Fatalf("stored status = %s, want paid", stored.Status)
	}
}

func TestQuoteDoesNotChangeState(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	client := seedUser(t, database, "ana@club.test", appdb.RoleClient, "Ana", "Suarez")
	actor := actingUser(client)

	res, err := svc.Create(ctx, actor, CreateReservationRequest{
		Date: "2030-01-16", StartTime: "09:00", EndTime: "10:01", Court: "court-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := svc.Quote(ctx, actor, res.ID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 61 minutes rounds up to three blocks.
	if view.AmountCents != 36000 {
		t.Fatalf("amount = %d, want 36000", view.AmountCents)
	}
	if !view.Payable {
		t.Fatal("active reservation should be payable")
	}
	if view.ClientName != "Suarez Ana" {
		t.Fatalf("client name = %q", view.ClientName)
	}
	if view.DateDisplay == "" {
		t.Fatal("quote should carry a human-readable date")
	}

	stored, err := database.Queries.GetReservation(ctx, res.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != appdb.ReservationActive {
		t.Fatalf("stored status = %s, want active", stored.Status)
	}
	if _, err := svc.Quote(ctx, actor, 99999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing reservation: expected ErrNotFound, got %v", err)
	}
}

func TestQuoteFallsBackOnCorruptTimes(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	client := seedUser(t, database, "ana@club.test", appdb.RoleClient, "Ana", "Suarez")

	// Corrupt rows can only come in below the service layer.
	res, err := database.Queries.CreateReservation(ctx, appdb.CreateReservationParams{
		ClientID: client.ID, ClientEmail: client.Username,
		Date: "2030-01-16", StartTime: "whenever", EndTime: "", Court: "court-1",
	})
	if err != nil {
		t.Fatalf("seed corrupt reservation: %v", err)
	}

	view, err := svc.Quote(ctx, actingUser(client), res.ID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// Unusable times bill the one-hour default.
	if view.AmountCents != testRate {
		t.Fatalf("amount = %d, want %d", view.AmountCents, testRate)
	}
}
