// Package enrich computes the geospatial buckets for promoted observation
// records and partitions them by arrival date for object storage.
package enrich

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"snowobs-pipeline/internal/geo"
	"snowobs-pipeline/internal/observation"
)

// Header is the column layout of promoted partition files. record_hash stays
// last, matching the accumulated dataset.
var Header = []string{
	"id", "createdtime", "name", "latitude", "user", "longitude",
	"submitted_time", "local_time", "submitted_date", "local_date",
	"comment", "time", "timestamp", "duplicate_id", "duplicate_count",
	"geohash5", "geohash12", "date_key", "record_hash",
}

// DateKey renders an arrival time as the partition key (year_month_day).
func DateKey(t time.Time) string {
	return fmt.Sprintf("%d_%02d_%02d", t.Year(), int(t.Month()), t.Day())
}

// Message enriches one queued record: it decodes the JSON body, computes the
// coarse (~4.9 km cell) and near-exact geohashes from the record coordinates,
// and attaches the date_key derived from the triggering event's timestamp.
func Message(body []byte, eventTime time.Time) (map[string]string, error) {
	var rec observation.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode record message: %w", err)
	}

	lat, err := strconv.ParseFloat(rec.Latitude, 64)
	if err != nil {
		return nil, fmt.Errorf("record %s: bad latitude %q: %w", rec.ID, rec.Latitude, err)
	}
	lon, err := strconv.ParseFloat(rec.Longitude, 64)
	if err != nil {
		return nil, fmt.Errorf("record %s: bad longitude %q: %w", rec.ID, rec.Longitude, err)
	}

	row := make(map[string]string, len(Header))
	for _, col := range Header[:15] {
		row[col] = rec.Field(col)
	}
	row["geohash5"] = geo.Encode(lat, lon, 5)
	row["geohash12"] = geo.Encode(lat, lon, 12)
	row["date_key"] = DateKey(eventTime)
	row["record_hash"] = rec.RecordHash
	return row, nil
}

// PartitionByDateKey groups enriched rows by their date_key, preserving
// encounter order within each group.
func PartitionByDateKey(rows []map[string]string) map[string][]map[string]string {
	parts := map[string][]map[string]string{}
	for _, row := range rows {
		parts[row["date_key"]] = append(parts[row["date_key"]], row)
	}
	return parts
}

// ValidateUniform checks that a collected batch forms a uniform record set:
// every row must carry the identity column. A violation fails the whole
// batch so nothing is committed and the queue redelivers everything.
func ValidateUniform(rows []map[string]string) error {
	for i, row := range rows {
		if row["record_hash"] == "" {
			return fmt.Errorf("batch row %d has no record_hash; schema mismatch", i)
		}
	}
	return nil
}
