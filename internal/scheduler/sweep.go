package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrivero/courtbook/internal/booking"
)

const (
	sweepJobName = "stale_reservation_sweep"
	// Every midnight, when yesterday's still-active reservations become
	// stale.
	sweepCronExpr = "0 0 * * *"
	sweepTimeout  = 2 * time.Minute
)

// RegisterSweepJob schedules the nightly pass that cancels active
// reservations whose day has already passed. The same sweep also runs
// synchronously at startup; this job keeps a long-lived process honest
// across midnights.
func RegisterSweepJob(svc *booking.Service) error {
	if svc == nil {
		return fmt.Errorf("sweep job requires booking service")
	}

	jobLogger := log.With().
		Str("component", sweepJobName).
		Str("job_name", sweepJobName).
		Str("cron", sweepCronExpr).
		Logger()

	_, err := AddJob(sweepJobName, sweepCronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		count, err := svc.ExpireStale(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Stale reservation sweep failed")
			return
		}
		jobLogger.Info().Int64("cancelled", count).Msg("Stale reservation sweep completed")
	})
	return err
}
