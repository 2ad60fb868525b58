package observation

import (
	"regexp"
	"strconv"
)

// nonWordRuns matches every run of non-word characters (underscore included),
// which the sanitizer collapses to a single underscore.
var nonWordRuns = regexp.MustCompile(`[\W_]+`)

// SanitizeTime rewrites the time component of a duplicate id so it is safe to
// use in keys and filenames.
func SanitizeTime(s string) string {
	return nonWordRuns.ReplaceAllString(s, "_")
}

// AssignDuplicates fills duplicate_id and duplicate_count for an ordered
// fetch batch. Records sharing a (user, time) identity get increasing 1-based
// counts in encounter order, so legitimately repeated submissions survive
// downstream dedup while staying distinguishable.
func AssignDuplicates(recs []Record) {
	seen := map[string]int{}
	for i := range recs {
		id := recs[i].User + "_" + SanitizeTime(recs[i].Time)
		seen[id]++
		recs[i].DuplicateID = id
		recs[i].DuplicateCount = strconv.Itoa(seen[id])
	}
}
