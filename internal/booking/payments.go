package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrivero/courtbook/internal/api/authz"
	appdb "github.com/mrivero/courtbook/internal/db"
)

// PaymentMethods are the accepted payment method identifiers.
var PaymentMethods = map[string]bool{
	"card":     true,
	"transfer": true,
	"wallet":   true,
	"cash":     true,
}

type PaymentRequest struct {
	Method     string
	Cardholder string
	// CardNumber is used only to derive the last four digits; it is never
	// persisted or logged.
	CardNumber string
	CardExpiry string
}

// PriceView is the read-only projection rendered on the payment screen:
// the reservation, its resolved client, and the amount due.
type PriceView struct {
	Reservation     appdb.ReservationWithClient
	ClientName      string
	ClientEmail     string
	DateDisplay     string
	AmountCents     int64
	HourlyRateCents int64
	Payable         bool
	Message         string
}

type PaymentResult struct {
	PriceView
	Payment *appdb.Payment
}

// Quote computes the price view for a reservation without changing any
// state. Clients may only quote their own reservations.
func (s *Service) Quote(ctx context.Context, actor *authz.ActingUser, reservationID int64) (PriceView, error) {
	if actor == nil {
		return PriceView{}, authz.ErrUnauthenticated
	}

	reservation, err := s.store.Queries.GetReservationWithClient(ctx, reservationID)
	if errors.Is(err, sql.ErrNoRows) {
		return PriceView{}, ErrNotFound
	}
	if err != nil {
		return PriceView{}, err
	}
	if actor.Role == authz.RoleClient && reservation.ClientID != actor.ID {
		return PriceView{}, ErrNotFound
	}
	return s.buildPriceView(ctx, reservation), nil
}

// Pay validates that the reservation is payable, records the payment and
// advances the reservation to paid, all in one transaction. Clients may
// only pay their own reservations. Paying a non-active reservation yields
// ErrNotPayable together with the current price view so the caller can
// show state and amount instead of failing opaquely.
func (s *Service) Pay(ctx context.Context, actor *authz.ActingUser, reservationID int64, req PaymentRequest) (PaymentResult, error) {
	if actor == nil {
		return PaymentResult{}, authz.ErrUnauthenticated
	}

	reservation, err := s.store.Queries.GetReservationWithClient(ctx, reservationID)
	if errors.Is(err, sql.ErrNoRows) {
		return PaymentResult{}, ErrNotFound
	}
	if err != nil {
		return PaymentResult{}, err
	}
	if actor.Role == authz.RoleClient && reservation.ClientID != actor.ID {
		return PaymentResult{}, ErrNotFound
	}

	view := s.buildPriceView(ctx, reservation)
	if !view.Payable {
		return PaymentResult{PriceView: view}, ErrNotPayable
	}

	if !PaymentMethods[req.Method] {
		return PaymentResult{}, fmt.Errorf("%w: unknown payment method %q", ErrValidation, req.Method)
	}

	var cardLast4, cardExpiry string
	if req.Method == "card" {
		digits := strings.Join(strings.Fields(req.CardNumber), "")
		if len(digits) > 4 {
			digits = digits[len(digits)-4:]
		}
		cardLast4 = digits
		cardExpiry = req.CardExpiry
	}

	var payment appdb.Payment
	err = s.store.RunInTx(ctx, func(q *appdb.Queries) error {
		// The status guard on the update makes a concurrent second payment
		// lose: it sees zero rows and no ledger entry is written.
		rows, err := q.MarkReservationPaid(ctx, reservation.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotPayable
		}

		payment, err = q.CreatePayment(ctx, appdb.CreatePaymentParams{
			ReservationID: reservation.ID,
			ClientID:      sql.NullInt64{Int64: reservation.ClientID, Valid: true},
			Method:        req.Method,
			Cardholder:    req.Cardholder,
			CardLast4:     cardLast4,
			CardExpiry:    cardExpiry,
			AmountCents:   view.AmountCents,
			RecordedBy:    sql.NullInt64{Int64: actor.ID, Valid: true},
		})
		return err
	})
	if errors.Is(err, ErrNotPayable) {
		view.Payable = false
		view.Message = ErrNotPayable.Error()
		return PaymentResult{PriceView: view}, ErrNotPayable
	}
	if err != nil {
		return PaymentResult{}, err
	}

	zerolog.Ctx(ctx).Info().
		Int64("reservation_id", reservation.ID).
		Int64("payment_id", payment.ID).
		Str("method", payment.Method).
		Int64("amount_cents", payment.AmountCents).
		Msg("Payment recorded")

	view.Reservation.Status = appdb.ReservationPaid
	view.Payable = false
	view.Message = fmt.Sprintf("Payment recorded; a receipt was sent to %s.", view.ClientEmail)
	return PaymentResult{PriceView: view, Payment: &payment}, nil
}

func (s *Service) buildPriceView(ctx context.Context, reservation appdb.ReservationWithClient) PriceView {
	amount, fellBack := PriceForReservation(reservation.Date, reservation.StartTime, reservation.EndTime, s.hourlyRateCents)
	if fellBack {
		zerolog.Ctx(ctx).Warn().
			Int64("reservation_id", reservation.ID).
			Str("date", reservation.Date).
			Str("start", reservation.StartTime).
			Str("end", reservation.EndTime).
			Msg("Reservation fields unusable for pricing; billing default one hour")
	}

	email := reservation.ClientUsername
	if email == "" {
		email = reservation.ClientEmail
	}

	var dateDisplay string
	if day := Combine(reservation.Date, ""); !day.IsZero() {
		dateDisplay = day.Format("Monday, January 2, 2006")
	}

	view := PriceView{
		Reservation:     reservation,
		ClientName:      DisplayName(reservation.ClientLastName, reservation.ClientFirstName),
		ClientEmail:     email,
		DateDisplay:     dateDisplay,
		AmountCents:     amount,
		HourlyRateCents: s.hourlyRateCents,
		Payable:         reservation.Status == appdb.ReservationActive,
	}
	if !view.Payable {
		view.Message = ErrNotPayable.Error()
	}
	return view
}
