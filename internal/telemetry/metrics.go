/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry holds the process's prometheus metric vectors.
// Registered once at composition time via promauto against the default
// registerer, matching the package-level metric vars
// internal/db/callbacks.go calls into (telemetry.DatabaseQueryDuration,
// telemetry.DatabaseErrorsTotal, telemetry.DatabaseConnectionsActive).
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linecast"

var (
	// DatabaseQueryDuration tracks GORM operation latency, labeled by
	// operation (query/create/update/delete) and table name.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Duration of database operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts non-NotFound database errors, labeled by
	// operation and a coarse reason.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "errors_total",
		Help:      "Database errors, excluding record-not-found.",
	}, []string{"operation", "reason"})

	// DatabaseConnectionsActive is the current open-connection count of
	// the pool, sampled periodically by UpdateConnectionMetrics.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "connections_active",
		Help:      "Open connections in the database pool.",
	})

	// ScheduleResolutionsTotal counts ActiveBlock outcomes, labeled by
	// whether a block was found, none was active, or a row was skipped
	// for ConfigInvalid.
	ScheduleResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "schedule",
		Name:      "resolutions_total",
		Help:      "ScheduleResolver.ActiveBlock outcomes.",
	}, []string{"outcome"})

	// PlaylistFallbacksTotal counts PlaylistResolver resolutions by which
	// cascade tier produced the result (spec.md §4.B tiers 1-4, or "empty").
	PlaylistFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "playlist",
		Name:      "fallback_tier_total",
		Help:      "PlaylistResolver resolutions by cascade tier.",
	}, []string{"tier"})

	// TimelinePositionDuration tracks how long CurrentPosition takes to
	// compute, end to end including the anchor read.
	TimelinePositionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "timeline",
		Name:      "position_duration_seconds",
		Help:      "Duration of TimelineService.CurrentPosition calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler exposes the default prometheus registry over HTTP, served on the
// configuration's dedicated metrics bind address (spec.md §6 — no admin
// HTTP surface belongs to the core, but a metrics listener is ambient
// infrastructure every component in this stack ships).
func Handler() http.Handler {
	return promhttp.Handler()
}
