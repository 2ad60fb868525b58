package observation

import (
	"strconv"
	"time"
)

// fieldMapping maps the nested Airtable field names onto the canonical
// column set. The "datetime_received_pacific" column actually carries the
// UTC datetime; it is authoritative for ordering.
var fieldMapping = map[string]string{
	"phase":                     "name",
	"latitude":                  "latitude",
	"user":                      "user",
	"longitude":                 "longitude",
	"time_submitted_local":      "local_time",
	"date_submitted_local":      "local_date",
	"time_submitted_utc":        "submitted_time",
	"date_submitted_utc":        "submitted_date",
	"comment":                   "comment",
	"datetime_received_pacific": "time",
}

// timeLayouts are the datetime shapes seen in the upstream "time" column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04pm",
}

// Normalize maps one raw upstream row onto the canonical field set. Rows
// look like {id, createdTime, fields:{...}}. Any canonical field absent from
// the source is left as the empty string, never an error.
func Normalize(raw map[string]any) Record {
	rec := Record{
		ID:          stringify(raw["id"]),
		CreatedTime: stringify(raw["createdTime"]),
	}

	fields, _ := raw["fields"].(map[string]any)
	canon := map[string]string{}
	for src, dst := range fieldMapping {
		if v, ok := fields[src]; ok {
			canon[dst] = stringify(v)
		}
	}

	rec.Name = canon["name"]
	rec.Latitude = canon["latitude"]
	rec.User = canon["user"]
	rec.Longitude = canon["longitude"]
	rec.SubmittedTime = canon["submitted_time"]
	rec.LocalTime = canon["local_time"]
	rec.SubmittedDate = canon["submitted_date"]
	rec.LocalDate = canon["local_date"]
	rec.Comment = canon["comment"]
	rec.Time = canon["time"]

	rec.Timestamp = epochSeconds(rec.Time)
	return rec
}

// NormalizeBatch normalizes a page of raw rows in arrival order.
func NormalizeBatch(raw []map[string]any) []Record {
	out := make([]Record, 0, len(raw))
	for _, row := range raw {
		out = append(out, Normalize(row))
	}
	return out
}

// epochSeconds converts the canonical UTC timestamp string to seconds since
// epoch, formatted as an exact decimal. Unparseable input yields "".
func epochSeconds(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			secs := float64(t.UTC().UnixNano()) / float64(time.Second)
			return strconv.FormatFloat(secs, 'f', -1, 64)
		}
	}
	return ""
}

// stringify pins the value-to-string rules for upstream JSON values: numbers
// are rendered as exact decimals, null as the empty string.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
