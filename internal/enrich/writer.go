package enrich

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"snowobs-pipeline/internal/storage"
)

// Writer lands partitioned CSVs in the production bucket under the
// {year}/{month}/{day}/{id}_{unixts}.csv layout. Object names come from a
// fresh random identifier plus a timestamp, never from content, so replays
// produce new objects instead of overwrites.
type Writer struct {
	Store  storage.ObjectStore
	Bucket string

	// NewID and Now are injectable for tests; nil means uuid/wall clock.
	NewID func() string
	Now   func() time.Time
}

// WritePartitions writes one object per date_key group.
func (w *Writer) WritePartitions(ctx context.Context, parts map[string][]map[string]string) error {
	newID := w.NewID
	if newID == nil {
		newID = func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}

	for dateKey, rows := range parts {
		segs := strings.SplitN(dateKey, "_", 3)
		if len(segs) != 3 {
			return fmt.Errorf("malformed date_key %q", dateKey)
		}
		key := fmt.Sprintf("%s/%s/%s/%s_%d.csv", segs[0], segs[1], segs[2], newID(), now().Unix())

		body, err := storage.Table{Header: Header, Rows: rows}.Encode()
		if err != nil {
			return fmt.Errorf("encode partition %s: %w", dateKey, err)
		}
		if err := w.Store.Put(ctx, w.Bucket, key, body, "text/csv"); err != nil {
			return fmt.Errorf("write partition %s: %w", dateKey, err)
		}
		log.Printf("saved: s3://%s/%s (date_key=%s, rows=%d)", w.Bucket, key, dateKey, len(rows))
	}
	return nil
}
