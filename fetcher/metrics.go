package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_runs_total",
			Help: "Total fetch runs by outcome",
		},
		[]string{"status"}, // success, partial, failure
	)

	recordsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetcher_records_fetched_total",
			Help: "Total records returned by the upstream source",
		},
	)

	recordsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_records_published_total",
			Help: "Total records published to the delivery queue",
		},
		[]string{"status"}, // success, failure
	)

	fetchDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetcher_run_duration_seconds",
			Help:    "Duration of one full fetch-and-publish run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)
