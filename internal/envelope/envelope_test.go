package envelope

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func notificationJSON(t *testing.T, bucket, key, eventTime string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"Records": []map[string]any{{
			"eventTime": eventTime,
			"s3": map[string]any{
				"bucket": map[string]any{"name": bucket},
				"object": map[string]any{"key": key},
			},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestUnwrapQueueMessageTwoLevels(t *testing.T) {
	t.Parallel()

	inner := notificationJSON(t, "prod-bucket", "2023/12/01/abc_1701456000.csv", "2023-12-01T19:37:27.192Z")
	body, _ := json.Marshal(map[string]string{"Message": inner})

	ev, err := UnwrapQueueMessage(body)
	if err != nil {
		t.Fatalf("UnwrapQueueMessage: %v", err)
	}
	if ev.Bucket != "prod-bucket" || ev.Key != "2023/12/01/abc_1701456000.csv" {
		t.Errorf("event = %+v", ev)
	}
	got := ev.Time(func() time.Time { t.Fatal("fallback used"); return time.Time{} })
	if got.Year() != 2023 || got.Month() != 12 {
		t.Errorf("event time = %v", got)
	}
}

func TestUnwrapSNSEvent(t *testing.T) {
	t.Parallel()

	inner := notificationJSON(t, "prod-bucket", "2023/12/01/abc.csv", "")
	body, _ := json.Marshal(map[string]any{
		"Records": []map[string]any{{"Sns": map[string]any{"Message": inner}}},
	})

	ev, err := UnwrapSNSEvent(body)
	if err != nil {
		t.Fatalf("UnwrapSNSEvent: %v", err)
	}
	if ev.Bucket != "prod-bucket" || ev.Key != "2023/12/01/abc.csv" {
		t.Errorf("event = %+v", ev)
	}

	// Missing event time falls back to the supplied clock.
	fallback := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := ev.Time(func() time.Time { return fallback }); !got.Equal(fallback) {
		t.Errorf("fallback time = %v", got)
	}
}

func TestUnwrapNamedErrorKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want error
	}{
		{"no message", `{}`, ErrMissingMessage},
		{"empty records", `{"Message":"{\"Records\":[]}"}`, ErrNoEventRecords},
		{"no object key", `{"Message":"{\"Records\":[{\"s3\":{\"bucket\":{\"name\":\"b\"}}}]}"}`, ErrMissingObject},
	}
	for _, tc := range cases {
		if _, err := UnwrapQueueMessage([]byte(tc.body)); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}

	if _, err := UnwrapQueueMessage([]byte(`{"Message":"not json"}`)); err == nil {
		t.Error("malformed inner level accepted")
	}
	if _, err := UnwrapQueueMessage([]byte(`not json`)); err == nil {
		t.Error("malformed outer level accepted")
	}
}
