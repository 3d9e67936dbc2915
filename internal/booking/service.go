package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrivero/courtbook/internal/api/authz"
	appdb "github.com/mrivero/courtbook/internal/db"
)

// Service orchestrates the reservation lifecycle: creation, role-scoped
// listing, state transitions and the stale-reservation sweep, plus payment
// recording. All operations take the acting user explicitly; nothing is
// read from ambient session state.
type Service struct {
	store           *appdb.DB
	hourlyRateCents int64
	courts          map[string]struct{}
	now             func() time.Time
}

func NewService(store *appdb.DB, hourlyRateCents int64, courts []string) *Service {
	allowed := make(map[string]struct{}, len(courts))
	for _, c := range courts {
		allowed[c] = struct{}{}
	}
	return &Service{
		store:           store,
		hourlyRateCents: hourlyRateCents,
		courts:          allowed,
		now:             time.Now,
	}
}

type CreateReservationRequest struct {
	Date      string
	StartTime string
	EndTime   string
	Court     string

	// Client selection, staff/admin only. Either an explicit id or an
	// exact (last name, first name) pair.
	ClientID        int64
	ClientLastName  string
	ClientFirstName string
}

// Create validates a booking request, resolves the client it is for, checks
// the slot against every non-cancelled reservation for the same court and
// day, and persists a new active reservation. The overlap check and the
// insert run in one transaction so concurrent requests cannot both claim
// the slot.
func (s *Service) Create(ctx context.Context, actor *authz.ActingUser, req CreateReservationRequest) (appdb.Reservation, error) {
	if actor == nil {
		return appdb.Reservation{}, authz.ErrUnauthenticated
	}

	if req.Date == "" || req.StartTime == "" || req.EndTime == "" || req.Court == "" {
		return appdb.Reservation{}, fmt.Errorf("%w: date, start time, end time and court are required", ErrValidation)
	}

	date, err := ParseDate(req.Date)
	if err != nil {
		return appdb.Reservation{}, fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
	}
	startTime, err := NormalizeClock(req.StartTime)
	if err != nil {
		return appdb.Reservation{}, fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
	}
	endTime, err := NormalizeClock(req.EndTime)
	if err != nil {
		return appdb.Reservation{}, fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
	}

	start := Combine(date, startTime)
	end := Combine(date, endTime)
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return appdb.Reservation{}, ErrInvalidTimeRange
	}
	if !start.After(s.now()) {
		return appdb.Reservation{}, ErrPastTime
	}

	if len(s.courts) > 0 {
		if _, ok := s.courts[req.Court]; !ok {
			return appdb.Reservation{}, fmt.Errorf("%w: unknown court %q", ErrValidation, req.Court)
		}
	}

	client, err := s.resolveClient(ctx, actor, req)
	if err != nil {
		return appdb.Reservation{}, err
	}

	candidate, err := RangeFromClocks(startTime, endTime)
	if err != nil {
		return appdb.Reservation{}, fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
	}

	var created appdb.Reservation
	err = s.store.RunInTx(ctx, func(q *appdb.Queries) error {
		existing, err := s.loadDayRanges(ctx, q, req.Court, date, 0)
		if err != nil {
			return err
		}
		if Overlaps(candidate, existing) {
			return ErrSlotConflict
		}

		created, err = q.CreateReservation(ctx, appdb.CreateReservationParams{
			ClientID:    client.ID,
			ClientEmail: client.Username,
			Date:        date,
			StartTime:   startTime,
			EndTime:     endTime,
			Court:       req.Court,
			CreatedBy:   sql.NullInt64{Int64: actor.ID, Valid: true},
		})
		return err
	})
	if err != nil {
		return appdb.Reservation{}, err
	}

	zerolog.Ctx(ctx).Info().
		Int64("reservation_id", created.ID).
		Int64("client_id", client.ID).
		Str("court", created.Court).
		Str("date", created.Date).
		Str("slot", created.StartTime+"-"+created.EndTime).
		Msg("Reservation created")

	return created, nil
}

// resolveClient determines who the reservation is for. A client-role actor
// always books for themselves; staff and admins must identify exactly one
// client, by id or by exact name pair.
func (s *Service) resolveClient(ctx context.Context, actor *authz.ActingUser, req CreateReservationRequest) (appdb.User, error) {
	if actor.Role == authz.RoleClient {
		user, err := s.store.Queries.GetUserByID(ctx, actor.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return appdb.User{}, ErrClientNotResolved
		}
		return user, err
	}

	if req.ClientID > 0 {
		user, err := s.store.Queries.GetClientByID(ctx, req.ClientID)
		if errors.Is(err, sql.ErrNoRows) {
			return appdb.User{}, ErrClientNotResolved
		}
		return user, err
	}

	if req.ClientLastName != "" && req.ClientFirstName != "" {
		matches, err := s.store.Queries.ListClientsByName(ctx, req.ClientLastName, req.ClientFirstName)
		if err != nil {
			return appdb.User{}, err
		}
		if len(matches) != 1 {
			return appdb.User{}, ErrClientNotResolved
		}
		return matches[0], nil
	}

	return appdb.User{}, ErrClientNotResolved
}

// List returns upcoming reservations scoped by role: clients see their own,
// staff and admins see everyone's with client info resolved. Ordered by day
// then start time.
func (s *Service) List(ctx context.Context, actor *authz.ActingUser) ([]appdb.ReservationWithClient, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}

	today := s.today()
	switch actor.Role {
	case authz.RoleClient:
		return s.store.Queries.ListUpcomingByClient(ctx, actor.ID, today)
	case authz.RoleStaff, authz.RoleAdmin:
		return s.store.Queries.ListUpcomingWithClients(ctx, today)
	default:
		return nil, ErrForbidden
	}
}

// History returns past reservations, most recent day first. Staff and
// admins only.
func (s *Service) History(ctx context.Context, actor *authz.ActingUser) ([]appdb.ReservationWithClient, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}
	if !authz.IsStaff(actor) {
		return nil, ErrForbidden
	}
	return s.store.Queries.ListPastWithClients(ctx, s.today())
}

// ReservationPatch carries the fields an update may change. Nil means
// "leave unchanged".
type ReservationPatch struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Court     *string
	Status    *string
}

// Update applies a partial patch to a reservation. Clients may only touch
// their own. Paid and cancelled are terminal states. Whenever the patch
// moves the slot, the overlap check runs again against the new court and
// day before anything is written.
func (s *Service) Update(ctx context.Context, actor *authz.ActingUser, id int64, patch ReservationPatch) error {
	if actor == nil {
		return authz.ErrUnauthenticated
	}

	current, err := s.store.Queries.GetReservation(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if actor.Role == authz.RoleClient && current.ClientID != actor.ID {
		return ErrNotFound
	}

	next := appdb.UpdateReservationParams{
		ID:        current.ID,
		Date:      current.Date,
		StartTime: current.StartTime,
		EndTime:   current.EndTime,
		Court:     current.Court,
		Status:    current.Status,
	}

	if patch.Date != nil {
		if next.Date, err = ParseDate(*patch.Date); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
		}
	}
	if patch.StartTime != nil {
		if next.StartTime, err = NormalizeClock(*patch.StartTime); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
		}
	}
	if patch.EndTime != nil {
		if next.EndTime, err = NormalizeClock(*patch.EndTime); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
		}
	}
	if patch.Court != nil {
		if *patch.Court == "" {
			return fmt.Errorf("%w: court is required", ErrValidation)
		}
		if len(s.courts) > 0 {
			if _, ok := s.courts[*patch.Court]; !ok {
				return fmt.Errorf("%w: unknown court %q", ErrValidation, *patch.Court)
			}
		}
		next.Court = *patch.Court
	}
	if patch.Status != nil {
		if err := validateTransition(current.Status, *patch.Status); err != nil {
			return err
		}
		next.Status = *patch.Status
	}

	candidate, err := RangeFromClocks(next.StartTime, next.EndTime)
	if err != nil || candidate.EndMin <= candidate.StartMin {
		return ErrInvalidTimeRange
	}

	slotChanged := next.Date != current.Date ||
		next.StartTime != current.StartTime ||
		next.EndTime != current.EndTime ||
		next.Court != current.Court

	if !slotChanged {
		return s.store.Queries.UpdateReservation(ctx, next)
	}

	return s.store.RunInTx(ctx, func(q *appdb.Queries) error {
		existing, err := s.loadDayRanges(ctx, q, next.Court, next.Date, current.ID)
		if err != nil {
			return err
		}
		if Overlaps(candidate, existing) {
			return ErrSlotConflict
		}
		return q.UpdateReservation(ctx, next)
	})
}

func validateTransition(from, to string) error {
	switch to {
	case appdb.ReservationActive, appdb.ReservationPaid, appdb.ReservationCancelled:
	default:
		return fmt.Errorf("%w: unknown state %q", ErrValidation, to)
	}
	if from == to {
		return nil
	}
	if from != appdb.ReservationActive {
		return fmt.Errorf("%w: %s reservations are terminal", ErrValidation, from)
	}
	if to == appdb.ReservationActive {
		return fmt.Errorf("%w: no transition back to active", ErrValidation)
	}
	return nil
}

// Remove physically deletes a reservation, with the same ownership scoping
// as Update.
func (s *Service) Remove(ctx context.Context, actor *authz.ActingUser, id int64) error {
	if actor == nil {
		return authz.ErrUnauthenticated
	}

	var ownerID int64
	if actor.Role == authz.RoleClient {
		ownerID = actor.ID
	}
	rows, err := s.store.Queries.DeleteReservation(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireStale cancels every reservation still active whose day has passed.
// It runs at startup and again every midnight; rerunning is a no-op on
// rows already cancelled.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	count, err := s.store.Queries.CancelStaleActive(ctx, s.today())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		zerolog.Ctx(ctx).Info().Int64("cancelled", count).Msg("Expired stale reservations")
	}
	return count, nil
}

func (s *Service) today() string {
	return s.now().Format(DateLayout)
}

func (s *Service) loadDayRanges(ctx context.Context, q *appdb.Queries, court, date string, excludeID int64) ([]Range, error) {
	reservations, err := q.ListDayCourtReservations(ctx, court, date, excludeID)
	if err != nil {
		return nil, err
	}

	ranges := make([]Range, 0, len(reservations))
	for _, r := range reservations {
		rng, err := RangeFromClocks(r.StartTime, r.EndTime)
		if err != nil {
			// Stored times are normalized on write; a bad row is data
			// corruption, not a reason to hand out its slot.
			zerolog.Ctx(ctx).Warn().
				Int64("reservation_id", r.ID).
				Str("start", r.StartTime).
				Str("end", r.EndTime).
				Msg("Skipping reservation with unparseable times in overlap check")
			rng = Range{StartMin: 0, EndMin: 24 * 60}
		}
		ranges = append(ranges, rng)
	}
	return ranges, nil
}

// DisplayName renders "Last First" the way staff views show clients.
func DisplayName(lastName, firstName string) string {
	return strings.TrimSpace(lastName + " " + firstName)
}
