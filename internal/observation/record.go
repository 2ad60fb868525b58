package observation

// Record is one crowd-sourced rain/snow field report, normalized from an
// upstream Airtable row. All values are carried as strings: the wire message,
// the CSV layout and the hash input all use the string form, so converting
// once at normalization time keeps every downstream stage consistent.
type Record struct {
	ID            string `json:"id"`
	CreatedTime   string `json:"createdtime"`
	Name          string `json:"name"`
	Latitude      string `json:"latitude"`
	User          string `json:"user"`
	Longitude     string `json:"longitude"`
	SubmittedTime string `json:"submitted_time"`
	LocalTime     string `json:"local_time"`
	SubmittedDate string `json:"submitted_date"`
	LocalDate     string `json:"local_date"`
	Comment       string `json:"comment"`
	Time          string `json:"time"`

	// Derived before queueing.
	Timestamp      string `json:"timestamp"`
	DuplicateID    string `json:"duplicate_id"`
	DuplicateCount string `json:"duplicate_count"`
	RecordHash     string `json:"record_hash"`
}

// CanonicalFields is the fixed upstream-facing column set, in canonical order.
var CanonicalFields = []string{
	"id", "createdtime", "name", "latitude", "user", "longitude",
	"submitted_time", "local_time", "submitted_date", "local_date",
	"comment", "time",
}

// canonicalMap returns the full derived field map used for hashing and CSV
// output. record_hash itself is excluded; it is a function of this map.
func (r Record) canonicalMap() map[string]string {
	return map[string]string{
		"id":              r.ID,
		"createdtime":     r.CreatedTime,
		"name":            r.Name,
		"latitude":        r.Latitude,
		"user":            r.User,
		"longitude":       r.Longitude,
		"submitted_time":  r.SubmittedTime,
		"local_time":      r.LocalTime,
		"submitted_date":  r.SubmittedDate,
		"local_date":      r.LocalDate,
		"comment":         r.Comment,
		"time":            r.Time,
		"timestamp":       r.Timestamp,
		"duplicate_id":    r.DuplicateID,
		"duplicate_count": r.DuplicateCount,
	}
}

// Field returns the record value for a canonical or derived column name.
func (r Record) Field(name string) string {
	switch name {
	case "record_hash":
		return r.RecordHash
	default:
		return r.canonicalMap()[name]
	}
}
