package db

import (
	"context"
	"time"
)

func (q *Queries) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.UTC())
	return err
}

// GetSessionUser resolves a session token to its user, ignoring expired
// sessions.
func (q *Queries) GetSessionUser(ctx context.Context, token string, now time.Time) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.role, u.first_name, u.last_name,
		       u.document_id, u.phone, u.skill_level, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`,
		token, now.UTC())
	return scanUser(row)
}

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
