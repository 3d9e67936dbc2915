package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const userColumns = `id, username, password_hash, role, first_name, last_name, document_id, phone, skill_level, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role,
		&u.FirstName, &u.LastName, &u.DocumentID, &u.Phone, &u.SkillLevel,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	Username     string
	PasswordHash string
	Role         string
	FirstName    string
	LastName     string
	DocumentID   string
	Phone        string
	SkillLevel   string
}

func (q *Queries) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, first_name, last_name, document_id, phone, skill_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		params.Username, params.PasswordHash, params.Role,
		params.FirstName, params.LastName, params.DocumentID, params.Phone, params.SkillLevel,
	)
	if err != nil {
		return User{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, id)
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE id = ?`, userColumns), id)
	return scanUser(row)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE username = ?`, userColumns), username)
	return scanUser(row)
}

// GetClientByID loads a user only if it holds the client role.
func (q *Queries) GetClientByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE id = ? AND role = ?`, userColumns), id, RoleClient)
	return scanUser(row)
}

// ListClientsByName returns every client-role user matching the exact
// (last name, first name) pair. Callers enforce the exactly-one rule.
func (q *Queries) ListClientsByName(ctx context.Context, lastName, firstName string) ([]User, error) {
	rows, err := q.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE role = ? AND last_name = ? AND first_name = ? ORDER BY id`, userColumns),
		RoleClient, lastName, firstName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (q *Queries) ListClients(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE role = ? ORDER BY last_name, first_name`, userColumns),
		RoleClient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (q *Queries) ListClientsByLastName(ctx context.Context, lastName string) ([]User, error) {
	rows, err := q.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE role = ? AND last_name = ? ORDER BY first_name`, userColumns),
		RoleClient, lastName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// ListDistinctClientLastNames backs the staff-facing client picker: a
// distinct, sorted list of non-empty client last names.
func (q *Queries) ListDistinctClientLastNames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT last_name FROM users
		WHERE role = ? AND last_name != ''
		ORDER BY last_name`, RoleClient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func collectUsers(rows *sql.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ReplaceUserAvailability swaps a user's recurring availability windows for
// the given set.
func (q *Queries) ReplaceUserAvailability(ctx context.Context, userID int64, entries []AvailabilityEntry) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM user_availability WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, e := range entries {
		if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
			return errors.New("day_of_week out of range")
		}
		if _, err := q.db.ExecContext(ctx, `
			INSERT INTO user_availability (user_id, day_of_week, from_time, to_time)
			VALUES (?, ?, ?, ?)`,
			userID, e.DayOfWeek, e.FromTime, e.ToTime,
		); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) ListUserAvailability(ctx context.Context, userID int64) ([]AvailabilityEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, day_of_week, from_time, to_time
		FROM user_availability WHERE user_id = ?
		ORDER BY day_of_week, from_time`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AvailabilityEntry
	for rows.Next() {
		var e AvailabilityEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.DayOfWeek, &e.FromTime, &e.ToTime); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
