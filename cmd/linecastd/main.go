/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Command linecastd is the composition root: it loads configuration, opens
// the database, runs migrations, wires the three core engines, and drives
// a polling loop that keeps every channel's timeline anchored. No HTTP
// admin surface is exposed here — that is an explicit non-goal of the core
// — only the metrics listener, mirroring cmd/grimnirradio/main.go's shape
// in friendsincode-grimnir_radio.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/friendsincode/linecast/internal/catalog"
	"github.com/friendsincode/linecast/internal/config"
	coredb "github.com/friendsincode/linecast/internal/db"
	"github.com/friendsincode/linecast/internal/logging"
	"github.com/friendsincode/linecast/internal/playlist"
	"github.com/friendsincode/linecast/internal/schedule"
	"github.com/friendsincode/linecast/internal/telemetry"
	"github.com/friendsincode/linecast/internal/timeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Environment)
	logger.Info().Str("environment", cfg.Environment).Msg("linecastd starting")
	for _, warning := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warning)
	}

	database, err := coredb.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := coredb.Close(database); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}()

	if err := coredb.Migrate(database); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	loc := cfg.Location()
	scheduleResolver := schedule.New(database, logger, loc)
	catalogStore := catalog.New(database)
	playlistResolver := playlist.New(database, scheduleResolver, catalogStore, logger, loc)
	timelineService := timeline.New(database, logger)

	engine := newTickEngine(database, scheduleResolver, playlistResolver, timelineService, logger)

	metricsServer := &http.Server{
		Addr:    cfg.MetricsBind,
		Handler: telemetry.Handler(),
	}
	go func() {
		logger.Info().Str("addr", cfg.MetricsBind).Msg("metrics listener starting")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("metrics server error")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	logger.Info().Dur("interval", cfg.PollInterval).Msg("tick loop running")
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			engine.tick(ctx)
			coredb.UpdateConnectionMetrics(database)
		}
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics server shutdown failed")
	}

	logger.Info().Msg("linecastd stopped")
}
