package appender

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"snowobs-pipeline/internal/storage"
)

// memStore is an in-memory ObjectStore double.
type memStore struct {
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	b, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such object %s/%s", bucket, key)
	}
	return b, nil
}

func (m *memStore) Put(_ context.Context, bucket, key string, body []byte, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[bucket+"/"+key] = body
	return nil
}

func TestReconcileDropsKnownHashes(t *testing.T) {
	t.Parallel()

	accumulated := storage.Table{
		Header: []string{"user", "record_hash"},
		Rows:   []map[string]string{{"user": "alice", "record_hash": "abc"}},
	}
	incoming := storage.Table{
		Header: []string{"user", "record_hash"},
		Rows: []map[string]string{
			{"user": "alice-redelivered", "record_hash": "abc"},
			{"user": "bob", "record_hash": "def"},
		},
	}

	merged, added := Reconcile(accumulated, incoming)
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	if len(merged.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(merged.Rows))
	}
	// The original "abc" row wins; the redelivered copy is dropped.
	if merged.Rows[0]["user"] != "alice" || merged.Rows[1]["user"] != "bob" {
		t.Errorf("rows = %v", merged.Rows)
	}
}

func TestAppendIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.objects["prod/accumulated.csv"] = []byte("user,record_hash\nalice,abc\n")
	store.objects["stage/incoming.csv"] = []byte("user,record_hash\nalice,abc\nbob,def\n")

	a := &Appender{Store: store, Bucket: "prod", Key: "accumulated.csv"}

	added, dropped, err := a.Append(context.Background(), "stage", "incoming.csv")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if added != 1 || dropped != 1 {
		t.Errorf("first run added = %d dropped = %d, want 1 and 1", added, dropped)
	}
	afterFirst := string(store.objects["prod/accumulated.csv"])

	// Second delivery of the same batch must change nothing.
	added, dropped, err = a.Append(context.Background(), "stage", "incoming.csv")
	if err != nil {
		t.Fatalf("Append (second): %v", err)
	}
	if added != 0 || dropped != 2 {
		t.Errorf("second run added = %d dropped = %d, want 0 and 2", added, dropped)
	}
	if got := string(store.objects["prod/accumulated.csv"]); got != afterFirst {
		t.Errorf("accumulated changed on replay:\n%s\nvs\n%s", afterFirst, got)
	}

	tbl, err := storage.ReadTable(store.objects["prod/accumulated.csv"])
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Rows) != 2 {
		t.Errorf("final rows = %d, want 2", len(tbl.Rows))
	}
}

func TestAppendFailuresPropagate(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	a := &Appender{Store: store, Bucket: "prod", Key: "accumulated.csv"}

	// Missing incoming object.
	if _, _, err := a.Append(context.Background(), "stage", "missing.csv"); err == nil {
		t.Error("missing input did not fail")
	}

	// Missing accumulated object.
	store.objects["stage/incoming.csv"] = []byte("user,record_hash\nbob,def\n")
	if _, _, err := a.Append(context.Background(), "stage", "incoming.csv"); err == nil {
		t.Error("missing accumulated dataset did not fail")
	}

	// Write failure.
	store.objects["prod/accumulated.csv"] = []byte("user,record_hash\nalice,abc\n")
	store.putErr = errors.New("scripted write failure")
	if _, _, err := a.Append(context.Background(), "stage", "incoming.csv"); err == nil {
		t.Error("write failure did not propagate")
	}
}
