// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package metrics registers the Prometheus collectors for Warbler.
//
// Collectors are package-level promauto vectors; callers use the Record*
// helpers so label sets stay consistent.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/warbler/internal/models"
)

var (
	// Store
	StoreTxDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warbler_store_tx_duration_seconds",
			Help:    "Duration of store transactions in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"}, // "read", "write"
	)

	StoreTxResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_store_tx_total",
			Help: "Store write transactions by result",
		},
		[]string{"result"}, // "committed", "conflict", "unavailable", "aborted"
	)

	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_store_gc_runs_total",
			Help: "Value log GC runs by result",
		},
		[]string{"result"}, // "rewritten", "nothing", "error"
	)

	// Engine operations
	EngineOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_engine_operations_total",
			Help: "Engine operations by name and outcome",
		},
		[]string{"operation", "outcome"},
	)

	EngineOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warbler_engine_operation_duration_seconds",
			Help:    "Engine operation latency in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)

	// Cascade sweep
	SweepEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_sweep_entries_total",
			Help: "Sweep journal entries by result",
		},
		[]string{"result"}, // "written", "confirmed", "failed", "abandoned"
	)

	SweepRecordsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warbler_sweep_records_cleaned_total",
			Help: "Engagement index records rewritten by sweeps",
		},
	)

	SweepBookmarksPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warbler_sweep_bookmarks_purged_total",
			Help: "Bookmarks of deleted tweets removed by sweeps",
		},
	)

	SweepPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warbler_sweep_pending_entries",
			Help: "Sweep journal entries waiting to run",
		},
	)

	// Notifier
	NotifyDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_notify_deliveries_total",
			Help: "Notification deliveries by sink and result",
		},
		[]string{"sink", "result"}, // result: "ok", "error", "timeout", "open", "panic"
	)

	NotifyBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warbler_notify_breaker_state",
			Help: "Circuit breaker state per sink (0=closed, 1=half-open, 2=open)",
		},
		[]string{"sink"},
	)

	// WebSocket
	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warbler_websocket_clients",
			Help: "Connected websocket clients",
		},
	)

	WSMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_websocket_messages_total",
			Help: "Websocket messages by direction",
		},
		[]string{"direction"}, // "sent", "dropped", "received"
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warbler_api_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warbler_api_active_requests",
			Help: "In-flight HTTP requests",
		},
	)

	// Authorization
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_authz_decisions_total",
			Help: "Uncached authorization decisions by result",
		},
		[]string{"result"}, // "allow", "deny", "error"
	)
)

// RecordStoreTx records one transaction.
func RecordStoreTx(write bool, duration time.Duration, err error) {
	mode := "read"
	if write {
		mode = "write"
	}
	StoreTxDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if write {
		StoreTxResults.WithLabelValues(TxResult(err)).Inc()
	}
}

// TxResult classifies a transaction error into a label value.
func TxResult(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "aborted"
	}
}

// Outcome classifies an engine error into a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	case errors.Is(err, models.ErrSelfReference):
		return "self_reference"
	case errors.Is(err, models.ErrConflict):
		return "conflict"
	case errors.Is(err, models.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// RecordOperation records an engine operation.
func RecordOperation(operation string, start time.Time, err error) {
	EngineOperations.WithLabelValues(operation, Outcome(err)).Inc()
	EngineOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordOperationOutcome records an operation whose outcome is not an error,
// such as a declined delete.
func RecordOperationOutcome(operation, outcome string, start time.Time) {
	EngineOperations.WithLabelValues(operation, outcome).Inc()
	EngineOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordDelivery records one notifier delivery attempt.
func RecordDelivery(sink, result string) {
	NotifyDeliveries.WithLabelValues(sink, result).Inc()
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
