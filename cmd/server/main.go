// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mrivero/courtbook/internal/booking"
	"github.com/mrivero/courtbook/internal/config"
	"github.com/mrivero/courtbook/internal/db"
	"github.com/mrivero/courtbook/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	bookingService := booking.NewService(database, cfg.Pricing.HourlyRateCents, cfg.Courts)

	// Reservations left active past their day are cancelled before the
	// server takes traffic. A failed sweep is logged, not fatal; the
	// nightly job retries.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	if count, err := bookingService.ExpireStale(log.Logger.WithContext(startupCtx)); err != nil {
		log.Error().Err(err).Msg("Startup stale reservation sweep failed")
	} else {
		log.Info().Int64("cancelled", count).Msg("Startup stale reservation sweep completed")
	}
	cancelStartup()

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := scheduler.RegisterSweepJob(bookingService); err != nil {
		log.Fatal().Err(err).Msg("Failed to register stale reservation sweep")
	}
	if err := scheduler.RegisterSessionCleanupJob(database); err != nil {
		log.Fatal().Err(err).Msg("Failed to register session cleanup")
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	server := newServer(cfg, database, bookingService)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown failed")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
