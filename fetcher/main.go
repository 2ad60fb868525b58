// The fetcher pulls observation records from the upstream Airtable base on a
// schedule, normalizes them, assigns duplicate-window counts and content
// hashes, and publishes one message per record to the observations queue.
package main

import (
	"context"
	"log"
	"time"

	"snowobs-pipeline/internal/airtable"
	"snowobs-pipeline/internal/config"
	"snowobs-pipeline/internal/observation"
	"snowobs-pipeline/internal/ops"
	"snowobs-pipeline/internal/queue"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.RequireAirtable(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ops.StartHealthServer("fetcher", cfg.HealthPort)
	ops.StartMetricsServer(cfg.MetricsPort)

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

	pub, err := queue.NewPublisher(ch, cfg.ObservationsQueue)
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	cli := &airtable.Client{
		BaseURL: cfg.AirtableBaseURL,
		BaseID:  cfg.AirtableBaseID,
		TableID: cfg.AirtableTableID,
		Token:   cfg.AirtableToken,
	}

	runFetch(context.Background(), cli, pub)
	if cfg.RunOnce {
		return
	}

	ticker := time.NewTicker(cfg.FetchInterval)
	defer ticker.Stop()
	for range ticker.C {
		runFetch(context.Background(), cli, pub)
	}
}

// runFetch performs one full fetch-and-publish cycle for the lookback window.
func runFetch(ctx context.Context, cli *airtable.Client, pub *queue.Publisher) {
	start := time.Now()
	defer func() { fetchDurationSeconds.Observe(time.Since(start).Seconds()) }()

	dates := airtable.LookbackWindow(start.UTC())
	log.Printf("fetch run: dates=%v", dates)

	status := "success"
	for _, date := range dates {
		res, err := cli.FetchDate(ctx, date)
		if err != nil {
			log.Printf("fetch date=%s failed: %v", date, err)
			status = "failure"
			continue
		}
		if res.Partial {
			log.Printf("fetch date=%s truncated by upstream status %d, keeping %d records", date, res.Status, len(res.Records))
			status = "partial"
		}
		log.Printf("fetch date=%s returned %d records", date, len(res.Records))
		recordsFetchedTotal.Add(float64(len(res.Records)))
		if len(res.Records) == 0 {
			continue
		}

		recs := observation.NormalizeBatch(res.Records)
		observation.AssignDuplicates(recs)
		observation.ComputeHashes(recs)

		items := make([]any, len(recs))
		for i := range recs {
			items[i] = recs[i]
		}
		failed := pub.PublishEach(ctx, items)
		recordsPublishedTotal.WithLabelValues("success").Add(float64(len(items) - len(failed)))
		recordsPublishedTotal.WithLabelValues("failure").Add(float64(len(failed)))
		if len(failed) > 0 {
			log.Printf("fetch date=%s: %d of %d records failed to publish", date, len(failed), len(items))
		}
	}

	fetchRunsTotal.WithLabelValues(status).Inc()
	log.Printf("fetch run done in %s (status=%s)", time.Since(start), status)
}
