// The kvloader consumes notification-wrapped storage events for promoted
// CSV files and mirrors their rows into the key-value store, one hash per
// row keyed by record_hash.
package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"snowobs-pipeline/internal/config"
	"snowobs-pipeline/internal/envelope"
	"snowobs-pipeline/internal/kvstore"
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

	ops.StartHealthServer("kvloader", cfg.HealthPort)
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

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}
	loader := &kvstore.Loader{Client: rdb, KeyPrefix: cfg.KVKeyPrefix}

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

	if _, err := ch.QueueDeclare(cfg.NotificationsQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.NotificationsQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	log.Printf("kvloader up, waiting for notifications on queue %q", cfg.NotificationsQueue)
	for d := range msgs {
		start := time.Now()

		ev, err := envelope.UnwrapSNSEvent(d.Body)
		if err != nil {
			log.Printf("bad notification: %v", err)
			notificationsProcessedTotal.WithLabelValues("invalid").Inc()
			d.Ack(false)
			continue
		}

		n, err := loadObject(ctx, store, loader, ev)
		loadDurationSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			log.Printf("load %s/%s failed: %v", ev.Bucket, ev.Key, err)
			notificationsProcessedTotal.WithLabelValues("failure").Inc()
			d.Nack(false, true)
			continue
		}

		rowsWrittenTotal.Add(float64(n))
		notificationsProcessedTotal.WithLabelValues("success").Inc()
		log.Printf("loaded %d rows from s3://%s/%s in %s", n, ev.Bucket, ev.Key, time.Since(start))
		d.Ack(false)
	}
}

// loadObject reads the referenced CSV and batch-writes its rows.
func loadObject(ctx context.Context, store storage.ObjectStore, loader *kvstore.Loader, ev envelope.StorageEvent) (int, error) {
	body, err := store.Get(ctx, ev.Bucket, ev.Key)
	if err != nil {
		return 0, err
	}
	tbl, err := storage.ReadTable(body)
	if err != nil {
		return 0, err
	}
	log.Printf("read s3://%s/%s: %d rows, %d columns", ev.Bucket, ev.Key, len(tbl.Rows), len(tbl.Header))
	return loader.LoadTable(ctx, tbl)
}
