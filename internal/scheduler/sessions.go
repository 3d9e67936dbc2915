package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/courtbook/internal/db"
)

const (
	sessionCleanupJobName = "session_cleanup"
	sessionCleanupCron    = "15 * * * *"
	sessionCleanupTimeout = time.Minute
)

// RegisterSessionCleanupJob schedules the hourly purge of expired login
// sessions. Expired rows are already invisible to lookups; this just keeps
// the table from growing without bound.
func RegisterSessionCleanupJob(database *db.DB) error {
	if database == nil {
		return fmt.Errorf("session cleanup job requires database")
	}

	jobLogger := log.With().
		Str("component", sessionCleanupJobName).
		Str("job_name", sessionCleanupJobName).
		Str("cron", sessionCleanupCron).
		Logger()

	_, err := AddJob(sessionCleanupJobName, sessionCleanupCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sessionCleanupTimeout)
		defer cancel()

		count, err := database.Queries.DeleteExpiredSessions(ctx, time.Now())
		if err != nil {
			jobLogger.Error().Err(err).Msg("Session cleanup failed")
			return
		}
		if count > 0 {
			jobLogger.Info().Int64("deleted", count).Msg("Expired sessions deleted")
		}
	})
	return err
}
