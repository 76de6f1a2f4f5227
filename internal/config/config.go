/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	DBBackend   DatabaseBackend
	DBDSN       string

	// Timezone is the single global configuration parameter that schedule
	// times and weekday calculations are interpreted against (spec.md §6).
	Timezone string

	// PollInterval is how often the composition root's tick loop calls
	// into the core to advance/observe channel timelines.
	PollInterval time.Duration

	// NextTransitionHorizon bounds how far into the future ScheduleResolver
	// searches when no transition is found (spec.md §4.A).
	NextTransitionHorizon time.Duration

	MetricsBind       string
	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:            getEnvAny([]string{"LINECAST_ENV", "RLM_ENV"}, "development"),
		DBBackend:              DatabaseBackend(getEnvAny([]string{"LINECAST_DB_BACKEND", "RLM_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:                  getEnvAny([]string{"LINECAST_DB_DSN", "RLM_DB_DSN"}, ""),
		Timezone:               getEnvAny([]string{"LINECAST_TIMEZONE", "RLM_TIMEZONE"}, "UTC"),
		PollInterval:           time.Duration(getEnvIntAny([]string{"LINECAST_POLL_INTERVAL_SECONDS", "RLM_POLL_INTERVAL_SECONDS"}, 30)) * time.Second,
		NextTransitionHorizon:  time.Duration(getEnvIntAny([]string{"LINECAST_TRANSITION_HORIZON_HOURS", "RLM_TRANSITION_HORIZON_HOURS"}, 7*24)) * time.Hour,
		MetricsBind:            getEnvAny([]string{"LINECAST_METRICS_BIND", "RLM_METRICS_BIND"}, "127.0.0.1:9000"),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("LINECAST_DB_DSN or RLM_DB_DSN must be provided")
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid LINECAST_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT": "use LINECAST_ENV (or RLM_ENV)",
		"DB_DSN":      "use LINECAST_DB_DSN (or RLM_DB_DSN)",
		"TIMEZONE":    "use LINECAST_TIMEZONE (or RLM_TIMEZONE)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// Location loads the configured timezone, falling back to UTC. Load()
// already validates the zone parses, so the error here should never
// trigger outside of tests that construct a Config by hand.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

