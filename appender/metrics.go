package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appender_events_processed_total",
			Help: "Total storage events processed by outcome",
		},
		[]string{"status"}, // success, invalid, failure
	)

	rowsAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "appender_rows_appended_total",
			Help: "Total rows appended to the accumulated dataset",
		},
	)

	rowsDeduplicatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "appender_rows_deduplicated_total",
			Help: "Total incoming rows dropped because their record_hash was already present",
		},
	)

	appendDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "appender_append_duration_seconds",
			Help:    "Duration of one reconcile-and-rewrite cycle",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)
)
