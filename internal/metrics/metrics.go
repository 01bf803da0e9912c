// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytodon_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytodon_db_query_errors_total",
			Help: "Total number of failed DuckDB queries",
		},
		[]string{"operation", "table"},
	)

	// HTTP API

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytodon_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytodon_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytodon_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Response cache

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytodon_cache_hits_total",
			Help: "Total number of stats response cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytodon_cache_misses_total",
			Help: "Total number of stats response cache misses",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytodon_cache_entries",
			Help: "Current number of cached responses",
		},
	)

	// Mastodon upstream

	MastodonRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytodon_mastodon_requests_total",
			Help: "Total number of Mastodon API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analytodon_circuit_breaker_state",
			Help: "Circuit breaker state per Mastodon host (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytodon_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Jobs

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytodon_job_runs_total",
			Help: "Total number of collector job runs by job and result",
		},
		[]string{"job", "result"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytodon_job_duration_seconds",
			Help:    "Duration of collector job runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"job"},
	)

	JobAccountErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytodon_job_account_errors_total",
			Help: "Total number of per-account failures inside collector jobs",
		},
		[]string{"job"},
	)

	// Events and mail

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytodon_events_published_total",
			Help: "Total number of events published by topic",
		},
		[]string{"topic"},
	)

	MailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytodon_mails_sent_total",
			Help: "Total number of mails handed to the mailer by kind and result",
		},
		[]string{"kind", "result"},
	)

	// Process

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analytodon_app_info",
			Help: "Application version information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery observes one query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest observes one HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordJobRun observes one collector job run.
func RecordJobRun(job string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	JobRuns.WithLabelValues(job, result).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordMail counts one mail delivery attempt.
func RecordMail(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	MailsSent.WithLabelValues(kind, result).Inc()
}
