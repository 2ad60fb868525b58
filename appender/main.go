// The appender consumes storage-object-created events for newly promoted
// partition files and merges each file into the accumulated observations
// dataset, dropping rows whose content hash is already present.
package main

import (
	"context"
	"log"
	"time"

	"snowobs-pipeline/internal/appender"
	"snowobs-pipeline/internal/config"
	"snowobs-pipeline/internal/enrich"
	"snowobs-pipeline/internal/envelope"
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

	ops.StartHealthServer("appender", cfg.HealthPort)
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

	app := &appender.Appender{Store: store, Bucket: cfg.ProdBucket, Key: cfg.AccumulatedKey}
	if err := bootstrapAccumulated(ctx, store, cfg.ProdBucket, cfg.AccumulatedKey); err != nil {
		log.Fatalf("bootstrap accumulated dataset: %v", err)
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

	if _, err := ch.QueueDeclare(cfg.StorageEventsQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}
	// One unacked event at a time: the accumulated dataset is a shared
	// read-modify-write object, so appends must not interleave.
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	msgs, err := ch.Consume(cfg.StorageEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	log.Printf("appender up, waiting for storage events on queue %q", cfg.StorageEventsQueue)
	for d := range msgs {
		start := time.Now()

		ev, err := envelope.UnwrapQueueMessage(d.Body)
		if err != nil {
			// Malformed envelopes can never succeed; drop instead of
			// poisoning the queue.
			log.Printf("bad storage event: %v", err)
			eventsProcessedTotal.WithLabelValues("invalid").Inc()
			d.Ack(false)
			continue
		}

		added, dropped, err := app.Append(ctx, ev.Bucket, ev.Key)
		appendDurationSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			log.Printf("append %s/%s failed: %v", ev.Bucket, ev.Key, err)
			eventsProcessedTotal.WithLabelValues("failure").Inc()
			d.Nack(false, true)
			continue
		}

		rowsAppendedTotal.Add(float64(added))
		rowsDeduplicatedTotal.Add(float64(dropped))
		eventsProcessedTotal.WithLabelValues("success").Inc()
		log.Printf("appended %s/%s in %s (added=%d, dropped=%d)", ev.Bucket, ev.Key, time.Since(start), added, dropped)
		d.Ack(false)
	}
}

// bootstrapAccumulated writes a header-only dataset on first deployment so
// the read side of the reconcile cycle always has an object to load.
func bootstrapAccumulated(ctx context.Context, store storage.ObjectStore, bucket, key string) error {
	if _, err := store.Get(ctx, bucket, key); err == nil {
		return nil
	}
	empty, err := storage.Table{Header: enrich.Header}.Encode()
	if err != nil {
		return err
	}
	log.Printf("accumulated dataset missing, writing empty table to s3://%s/%s", bucket, key)
	return store.Put(ctx, bucket, key, empty, "text/csv")
}
