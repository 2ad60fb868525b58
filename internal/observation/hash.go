package observation

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CanonicalSerialization renders a field map as a deterministic string:
// keys sorted byte-wise, one "key=value" per line, joined with "\n".
// The form is pinned here so the resulting hash is stable across process
// restarts and reimplementations, independent of any map iteration order.
func CanonicalSerialization(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// HashFields is the content fingerprint: SHA-256 over the UTF-8 bytes of the
// canonical serialization, rendered as lowercase hex.
func HashFields(fields map[string]string) string {
	sum := sha256.Sum256([]byte(CanonicalSerialization(fields)))
	return hex.EncodeToString(sum[:])
}

// ComputeHash derives record_hash from every normalized field including
// duplicate_id and duplicate_count, excluding record_hash itself.
func (r *Record) ComputeHash() {
	r.RecordHash = HashFields(r.canonicalMap())
}

// ComputeHashes fills record_hash for a whole batch.
func ComputeHashes(recs []Record) {
	for i := range recs {
		recs[i].ComputeHash()
	}
}
