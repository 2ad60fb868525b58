package observation

import (
	"strings"
	"testing"
)

func sampleRaw() map[string]any {
	return map[string]any{
		"id":          "rec4pVBLnNgxeT1Nj",
		"createdTime": "2023-12-01T18:04:08.000Z",
		"fields": map[string]any{
			"phase":                     "Snow",
			"latitude":                  39.1911,
			"longitude":                 -120.2356,
			"user":                      "user_8821",
			"time_submitted_local":      "10:04:08",
			"date_submitted_local":      "12/01/23",
			"time_submitted_utc":        "18:04:08",
			"date_submitted_utc":        "12/01/23",
			"comment":                   "heavy wet snow",
			"datetime_received_pacific": "2023-12-01T18:04:10",
		},
	}
}

func TestNormalizeMapsCanonicalFields(t *testing.T) {
	t.Parallel()

	rec := Normalize(sampleRaw())

	if rec.ID != "rec4pVBLnNgxeT1Nj" {
		t.Errorf("id = %q", rec.ID)
	}
	if rec.Name != "Snow" {
		t.Errorf("name = %q", rec.Name)
	}
	if rec.Latitude != "39.1911" || rec.Longitude != "-120.2356" {
		t.Errorf("coords = %q, %q", rec.Latitude, rec.Longitude)
	}
	if rec.SubmittedDate != "12/01/23" || rec.SubmittedTime != "18:04:08" {
		t.Errorf("submitted = %q %q", rec.SubmittedDate, rec.SubmittedTime)
	}
	if rec.Time != "2023-12-01T18:04:10" {
		t.Errorf("time = %q", rec.Time)
	}
	if rec.Timestamp == "" {
		t.Error("timestamp not derived")
	}
}

func TestNormalizeMissingFieldsAreEmptyNotError(t *testing.T) {
	t.Parallel()

	rec := Normalize(map[string]any{"id": "recX"})
	if rec.ID != "recX" {
		t.Errorf("id = %q", rec.ID)
	}
	for _, name := range CanonicalFields[1:] {
		if got := rec.Field(name); got != "" {
			t.Errorf("field %s = %q, want empty", name, got)
		}
	}
	if rec.Timestamp != "" {
		t.Errorf("timestamp = %q, want empty", rec.Timestamp)
	}
}

func TestSanitizeTimeCollapsesNonWordRuns(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"2023-12-01T18:04:10":   "2023_12_01T18_04_10",
		"a  b..c":               "a_b_c",
		"already_underscored":   "already_underscored",
		"mixed -_- separators!": "mixed_separators_",
	}
	for in, want := range cases {
		if got := SanitizeTime(in); got != want {
			t.Errorf("SanitizeTime(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAssignDuplicatesRanksInEncounterOrder(t *testing.T) {
	t.Parallel()

	recs := []Record{
		{User: "alice", Time: "2023-12-01T18:04:10"},
		{User: "bob", Time: "2023-12-01T18:04:10"},
		{User: "alice", Time: "2023-12-01T18:04:10"},
		{User: "alice", Time: "2023-12-01T19:00:00"},
	}
	AssignDuplicates(recs)

	if recs[0].DuplicateCount != "1" || recs[2].DuplicateCount != "2" {
		t.Errorf("alice counts = %s, %s", recs[0].DuplicateCount, recs[2].DuplicateCount)
	}
	if recs[1].DuplicateCount != "1" || recs[3].DuplicateCount != "1" {
		t.Errorf("first-occurrence counts = %s, %s", recs[1].DuplicateCount, recs[3].DuplicateCount)
	}
	if recs[0].DuplicateID != "alice_2023_12_01T18_04_10" {
		t.Errorf("duplicate_id = %q", recs[0].DuplicateID)
	}

	// #records with count==1 must equal #distinct duplicate ids.
	distinct := map[string]bool{}
	firsts := 0
	for _, r := range recs {
		distinct[r.DuplicateID] = true
		if r.DuplicateCount == "1" {
			firsts++
		}
	}
	if firsts != len(distinct) {
		t.Errorf("firsts = %d, distinct = %d", firsts, len(distinct))
	}
}

func TestHashDeterministicAndFieldSensitive(t *testing.T) {
	t.Parallel()

	r1 := Normalize(sampleRaw())
	r2 := Normalize(sampleRaw())
	AssignDuplicates([]Record{r1})
	AssignDuplicates([]Record{r2})
	r1.ComputeHash()
	r2.ComputeHash()

	if r1.RecordHash == "" || len(r1.RecordHash) != 64 {
		t.Fatalf("record_hash = %q", r1.RecordHash)
	}
	if r1.RecordHash != r2.RecordHash {
		t.Errorf("identical records hash differently: %s vs %s", r1.RecordHash, r2.RecordHash)
	}
	if strings.ToLower(r1.RecordHash) != r1.RecordHash {
		t.Errorf("hash not lowercase hex: %s", r1.RecordHash)
	}

	r2.Comment = "light snow"
	r2.ComputeHash()
	if r1.RecordHash == r2.RecordHash {
		t.Error("hash unchanged after field edit")
	}
}

func TestHashIndependentOfMapOrder(t *testing.T) {
	t.Parallel()

	a := map[string]string{"user": "alice", "time": "t1", "comment": ""}
	b := map[string]string{"comment": "", "time": "t1", "user": "alice"}
	if HashFields(a) != HashFields(b) {
		t.Error("hash depends on map construction order")
	}

	want := "comment=\ntime=t1\nuser=alice"
	if got := CanonicalSerialization(a); got != want {
		t.Errorf("serialization = %q, want %q", got, want)
	}
}
