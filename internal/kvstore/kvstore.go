// Package kvstore mirrors accumulated observation rows into the key-value
// store, one hash per row keyed by record_hash.
package kvstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"snowobs-pipeline/internal/storage"
)

// missingValueSentinel replaces NaN and empty cells before the write; the
// store's numeric columns reject NaN and empty strings.
const missingValueSentinel = "0"

// hashSetter is the slice of the redis client the row writer needs; both
// *redis.Client and redis.Pipeliner satisfy it.
type hashSetter interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// Loader batch-writes tabular rows into the store.
type Loader struct {
	Client    *redis.Client
	KeyPrefix string
}

// NormalizeValue applies the store's numeric type requirements: NaN and
// empty become the default sentinel, and floating values in scientific
// notation are rewritten as exact decimals.
func NormalizeValue(v string) string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" || strings.EqualFold(trimmed, "nan") {
		return missingValueSentinel
	}
	if strings.ContainsAny(trimmed, "eE") {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return trimmed
}

// LoadTable writes every row of the table through one pipeline. Returns the
// number of rows written.
func (l *Loader) LoadTable(ctx context.Context, tbl storage.Table) (int, error) {
	written := 0
	_, err := l.Client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		n, err := writeRows(ctx, pipe, l.KeyPrefix, tbl)
		written = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("kvstore batch write: %w", err)
	}
	return written, nil
}

func writeRows(ctx context.Context, hs hashSetter, prefix string, tbl storage.Table) (int, error) {
	written := 0
	for i, row := range tbl.Rows {
		hash := row["record_hash"]
		if hash == "" {
			return written, fmt.Errorf("row %d has no record_hash", i)
		}
		values := make([]any, 0, 2*len(tbl.Header))
		for _, col := range tbl.Header {
			values = append(values, col, NormalizeValue(row[col]))
		}
		if err := hs.HSet(ctx, prefix+":"+hash, values...).Err(); err != nil {
			return written, fmt.Errorf("write row %d: %w", i, err)
		}
		written++
	}
	return written, nil
}
