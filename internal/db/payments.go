package db

import (
	"context"
	"database/sql"
)

const paymentColumns = `id, reservation_id, client_id, method, cardholder, card_last4, card_expiry, amount_cents, paid_at, recorded_by, created_at`

func scanPayment(row interface{ Scan(...any) error }) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.ReservationID, &p.ClientID, &p.Method,
		&p.Cardholder, &p.CardLast4, &p.CardExpiry,
		&p.AmountCents, &p.PaidAt, &p.RecordedBy, &p.CreatedAt,
	)
	return p, err
}

type CreatePaymentParams struct {
	ReservationID int64
	ClientID      sql.NullInt64
	Method        string
	Cardholder    string
	CardLast4     string
	CardExpiry    string
	AmountCents   int64
	RecordedBy    sql.NullInt64
}

// CreatePayment inserts the immutable payment ledger entry. There is no
// update or delete counterpart.
func (q *Queries) CreatePayment(ctx context.Context, params CreatePaymentParams) (Payment, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO payments (reservation_id, client_id, method, cardholder, card_last4, card_expiry, amount_cents, recorded_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		params.ReservationID, params.ClientID, params.Method,
		params.Cardholder, params.CardLast4, params.CardExpiry,
		params.AmountCents, params.RecordedBy,
	)
	if err != nil {
		return Payment{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Payment{}, err
	}

	row := q.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	return scanPayment(row)
}

func (q *Queries) GetPaymentByReservation(ctx context.Context, reservationID int64) (Payment, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reservation_id = ? ORDER BY id LIMIT 1`, reservationID)
	return scanPayment(row)
}

func (q *Queries) CountPaymentsByReservation(ctx context.Context, reservationID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE reservation_id = ?`, reservationID).Scan(&count)
	return count, err
}
