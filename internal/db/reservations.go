package db

import (
	"context"
	"database/sql"
	"fmt"
)

const reservationColumns = `id, client_id, client_email, date, start_time, end_time, court, status, created_by, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (Reservation, error) {
	var r Reservation
	err := row.Scan(
		&r.ID, &r.ClientID, &r.ClientEmail, &r.Date, &r.StartTime, &r.EndTime,
		&r.Court, &r.Status, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

type CreateReservationParams struct {
	ClientID    int64
	ClientEmail string
	Date        string
	StartTime   string
	EndTime     string
	Court       string
	CreatedBy   sql.NullInt64
}

func (q *Queries) CreateReservation(ctx context.Context, params CreateReservationParams) (Reservation, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO reservations (client_id, client_email, date, start_time, end_time, court, status, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		params.ClientID, params.ClientEmail, params.Date,
		params.StartTime, params.EndTime, params.Court,
		ReservationActive, params.CreatedBy,
	)
	if err != nil {
		return Reservation{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Reservation{}, err
	}
	return q.GetReservation(ctx, id)
}

func (q *Queries) GetReservation(ctx context.Context, id int64) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM reservations WHERE id = ?`, reservationColumns), id)
	return scanReservation(row)
}

// GetReservationWithClient resolves the owning client's display fields along
// with the reservation.
func (q *Queries) GetReservationWithClient(ctx context.Context, id int64) (ReservationWithClient, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT r.id, r.client_id, r.client_email, r.date, r.start_time, r.end_time,
		       r.court, r.status, r.created_by, r.created_at, r.updated_at,
		       u.first_name, u.last_name, u.username
		FROM reservations r
		JOIN users u ON u.id = r.client_id
		WHERE r.id = ?`, id)

	var r ReservationWithClient
	err := row.Scan(
		&r.ID, &r.ClientID, &r.ClientEmail, &r.Date, &r.StartTime, &r.EndTime,
		&r.Court, &r.Status, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
		&r.ClientFirstName, &r.ClientLastName, &r.ClientUsername,
	)
	return r, err
}

// ListDayCourtReservations returns the non-cancelled reservations holding
// the given court on the given day. excludeID skips one reservation (the
// one being edited); pass 0 to skip none.
func (q *Queries) ListDayCourtReservations(ctx context.Context, court, date string, excludeID int64) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM reservations
		WHERE court = ? AND date = ? AND status != ? AND id != ?
		ORDER BY start_time`, reservationColumns),
		court, date, ReservationCancelled, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListUpcomingByClient returns a client's reservations dated today or later,
// ordered by day then start time.
func (q *Queries) ListUpcomingByClient(ctx context.Context, clientID int64, today string) ([]ReservationWithClient, error) {
	return q.listWithClients(ctx, `
		WHERE r.client_id = ? AND r.date >= ?
		ORDER BY r.date ASC, r.start_time ASC`, clientID, today)
}

// ListUpcomingWithClients is the staff view: every reservation dated today
// or later, with client display fields resolved.
func (q *Queries) ListUpcomingWithClients(ctx context.Context, today string) ([]ReservationWithClient, error) {
	return q.listWithClients(ctx, `
		WHERE r.date >= ?
		ORDER BY r.date ASC, r.start_time ASC`, today)
}

// ListPastWithClients is the staff history view: reservations before today,
// most recent day first.
func (q *Queries) ListPastWithClients(ctx context.Context, today string) ([]ReservationWithClient, error) {
	return q.listWithClients(ctx, `
		WHERE r.date < ?
		ORDER BY r.date DESC, r.start_time ASC`, today)
}

func (q *Queries) listWithClients(ctx context.Context, tail string, args ...any) ([]ReservationWithClient, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT r.id, r.client_id, r.client_email, r.date, r.start_time, r.end_time,
		       r.court, r.status, r.created_by, r.created_at, r.updated_at,
		       u.first_name, u.last_name, u.username
		FROM reservations r
		JOIN users u ON u.id = r.client_id `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReservationWithClient
	for rows.Next() {
		var r ReservationWithClient
		if err := rows.Scan(
			&r.ID, &r.ClientID, &r.ClientEmail, &r.Date, &r.StartTime, &r.EndTime,
			&r.Court, &r.Status, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
			&r.ClientFirstName, &r.ClientLastName, &r.ClientUsername,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type UpdateReservationParams struct {
	ID        int64
	Date      string
	StartTime string
	EndTime   string
	Court     string
	Status    string
}

// UpdateReservation writes the full slot and status back; the service layer
// computes the patched values first.
func (q *Queries) UpdateReservation(ctx context.Context, params UpdateReservationParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE reservations
		SET date = ?, start_time = ?, end_time = ?, court = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		params.Date, params.StartTime, params.EndTime, params.Court, params.Status, params.ID)
	return err
}

// DeleteReservation removes a reservation, optionally scoped to an owning
// client. Returns the number of rows removed.
func (q *Queries) DeleteReservation(ctx context.Context, id int64, ownerID int64) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if ownerID > 0 {
		result, err = q.db.ExecContext(ctx,
			`DELETE FROM reservations WHERE id = ? AND client_id = ?`, id, ownerID)
	} else {
		result, err = q.db.ExecContext(ctx,
			`DELETE FROM reservations WHERE id = ?`, id)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkReservationPaid advances an active reservation to paid. The status
// guard makes the transition race-safe: a second payer sees zero rows.
func (q *Queries) MarkReservationPaid(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		ReservationPaid, id, ReservationActive)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CancelStaleActive cancels every active reservation dated before today.
// Idempotent: already-cancelled rows never match.
func (q *Queries) CancelStaleActive(ctx context.Context, today string) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status = ? AND date < ?`,
		ReservationCancelled, ReservationActive, today)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func collectReservations(rows *sql.Rows) ([]Reservation, error) {
	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
