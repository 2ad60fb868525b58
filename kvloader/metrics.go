package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvloader_notifications_processed_total",
			Help: "Total storage notifications processed by outcome",
		},
		[]string{"status"}, // success, invalid, failure
	)

	rowsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kvloader_rows_written_total",
			Help: "Total rows written to the key-value store",
		},
	)

	loadDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kvloader_load_duration_seconds",
			Help:    "Duration of one CSV-to-store load",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)
)
