// The promoter consumes batches of observation records from the queue,
// enriches each with geohash buckets and an arrival date key, partitions the
// batch by date key and writes one CSV per partition to the production
// bucket. Failed messages are nacked individually so the queue redelivers
// just those.
package main

import (
	"context"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"snowobs-pipeline/internal/config"
	"snowobs-pipeline/internal/enrich"
	"snowobs-pipeline/internal/ops"
	"snowobs-pipeline/internal/queue"
	"snowobs-pipeline/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ops.StartHealthServer("promoter", cfg.HealthPort)
	ops.StartMetricsServer(cfg.MetricsPort)

	ctx := context.Background()
	store, err := storage.NewMinioStore(ctx, storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioSSL,
	})
	if err != nil {
		log.Fatalf("object store: %v", err)
	}
	if err := store.EnsureBucket(ctx, cfg.ProdBucket); err != nil {
		log.Fatalf("bucket: %v", err)
	}

	conn, err := queue.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit: %v", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit ch: %v", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.ObservationsQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.ObservationsQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	writer := &enrich.Writer{Store: store, Bucket: cfg.ProdBucket}

	log.Printf("promoter up, waiting for records on queue %q", cfg.ObservationsQueue)
	for {
		batch := queue.Collect(msgs, cfg.BatchSize, cfg.BatchIdle)
		if batch == nil {
			log.Printf("queue channel closed, exiting")
			return
		}
		processBatch(ctx, writer, batch)
	}
}

// processBatch enriches a collected batch and settles every delivery.
func processBatch(ctx context.Context, writer *enrich.Writer, batch []amqp.Delivery) {
	batchSizeHistogram.Observe(float64(len(batch)))

	rows := make([]map[string]string, 0, len(batch))
	rowOwner := make([]int, 0, len(batch)) // row index -> delivery index
	failed := map[int]bool{}

	for i, d := range batch {
		eventTime := d.Timestamp
		if eventTime.IsZero() {
			eventTime = time.Now().UTC()
		}
		row, err := enrich.Message(d.Body, eventTime)
		if err != nil {
			log.Printf("message %d failed enrichment: %v", i, err)
			messagesProcessedTotal.WithLabelValues("failed").Inc()
			failed[i] = true
			continue
		}
		rows = append(rows, row)
		rowOwner = append(rowOwner, i)
		messagesProcessedTotal.WithLabelValues("enriched").Inc()
	}

	if len(rows) == 0 {
		queue.AckBatch(batch, failed)
		batchesProcessedTotal.WithLabelValues("failure").Inc()
		return
	}

	// A non-uniform record set fails the whole batch: nothing is written and
	// every message goes back for redelivery.
	if err := enrich.ValidateUniform(rows); err != nil {
		log.Printf("batch rejected: %v", err)
		for i := range batch {
			failed[i] = true
		}
		queue.AckBatch(batch, failed)
		batchesProcessedTotal.WithLabelValues("failure").Inc()
		return
	}

	parts := enrich.PartitionByDateKey(rows)
	if err := writer.WritePartitions(ctx, parts); err != nil {
		log.Printf("partition write failed: %v", err)
		for _, owner := range rowOwner {
			failed[owner] = true
		}
		queue.AckBatch(batch, failed)
		batchesProcessedTotal.WithLabelValues("failure").Inc()
		return
	}
	partitionsWrittenTotal.Add(float64(len(parts)))

	queue.AckBatch(batch, failed)
	if len(failed) > 0 {
		batchesProcessedTotal.WithLabelValues("partial").Inc()
	} else {
		batchesProcessedTotal.WithLabelValues("success").Inc()
	}
	log.Printf("batch done: %d enriched, %d failed, %d partitions", len(rows), len(failed), len(parts))
}
