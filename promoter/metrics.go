package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promoter_batches_processed_total",
			Help: "Total record batches processed by outcome",
		},
		[]string{"status"}, // success, partial, failure
	)

	messagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promoter_messages_processed_total",
			Help: "Total queue messages processed by outcome",
		},
		[]string{"status"}, // enriched, failed
	)

	batchSizeHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promoter_batch_size",
			Help:    "Size of collected record batches",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	partitionsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "promoter_partitions_written_total",
			Help: "Total partition objects written to the production bucket",
		},
	)
)
