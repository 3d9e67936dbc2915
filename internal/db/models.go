package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same query layer
// serves transactional and non-transactional callers.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const (
	RoleClient = "client"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"

	ReservationActive    = "active"
	ReservationPaid      = "paid"
	ReservationCancelled = "cancelled"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	FirstName    string
	LastName     string
	DocumentID   string
	Phone        string
	SkillLevel   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvailabilityEntry is a recurring weekly availability window a client
// declares for finding playing partners.
type AvailabilityEntry struct {
	ID        int64
	UserID    int64
	DayOfWeek int
	FromTime  string
	ToTime    string
}

type Reservation struct {
	ID          int64
	ClientID    int64
	ClientEmail string
	Date        string
	StartTime   string
	EndTime     string
	Court       string
	Status      string
	CreatedBy   sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReservationWithClient joins the owning client's display fields onto a
// reservation for staff-facing views.
type ReservationWithClient struct {
	Reservation
	ClientFirstName string
	ClientLastName  string
	ClientUsername  string
}

type Payment struct {
	ID            int64
	ReservationID int64
	ClientID      sql.NullInt64
	Method        string
	Cardholder    string
	CardLast4     string
	CardExpiry    string
	AmountCents   int64
	PaidAt        time.Time
	RecordedBy    sql.NullInt64
	CreatedAt     time.Time
}
