// Package envelope unwraps the nested notification wrappers that deliver
// storage-object-created events through the queue. The wire format nests a
// JSON-encoded string inside a JSON document twice before the actual
// bucket/key appears, so each level is decoded into a typed structure and
// malformed input fails fast with a named error kind.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingMessage means the outer wrapper carried no inner payload.
	ErrMissingMessage = errors.New("envelope: missing Message payload")
	// ErrNoEventRecords means the storage event held no record entries.
	ErrNoEventRecords = errors.New("envelope: no event records")
	// ErrMissingObject means a record named no bucket or object key.
	ErrMissingObject = errors.New("envelope: missing bucket or object key")
)

// eventTimeLayout matches the storage service's notification timestamps.
const eventTimeLayout = "2006-01-02T15:04:05.000Z"

// StorageEvent is the fully unwrapped object-created notification.
type StorageEvent struct {
	Bucket    string
	Key       string
	EventTime string
}

// Time parses the notification timestamp, falling back to now when the
// event carried none or an unparseable one.
func (e StorageEvent) Time(now func() time.Time) time.Time {
	if e.EventTime != "" {
		if t, err := time.Parse(eventTimeLayout, e.EventTime); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, e.EventTime); err == nil {
			return t
		}
	}
	return now()
}

type outerWrapper struct {
	Message string `json:"Message"`
}

type snsWrapper struct {
	Records []struct {
		Sns struct {
			Message string `json:"Message"`
		} `json:"Sns"`
	} `json:"Records"`
}

type storageNotification struct {
	Records []struct {
		EventTime string `json:"eventTime"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// UnwrapQueueMessage decodes a queue message body whose outer document holds
// a JSON-encoded storage notification in its Message field.
func UnwrapQueueMessage(body []byte) (StorageEvent, error) {
	var outer outerWrapper
	if err := json.Unmarshal(body, &outer); err != nil {
		return StorageEvent{}, fmt.Errorf("envelope: decode outer wrapper: %w", err)
	}
	if outer.Message == "" {
		return StorageEvent{}, ErrMissingMessage
	}
	return unwrapNotificationJSON([]byte(outer.Message))
}

// UnwrapSNSEvent decodes the SNS-style wrapper used on the key-value load
// path: Records[0].Sns.Message is the JSON-encoded storage notification.
func UnwrapSNSEvent(body []byte) (StorageEvent, error) {
	var wrapper snsWrapper
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return StorageEvent{}, fmt.Errorf("envelope: decode sns wrapper: %w", err)
	}
	if len(wrapper.Records) == 0 || wrapper.Records[0].Sns.Message == "" {
		return StorageEvent{}, ErrMissingMessage
	}
	return unwrapNotificationJSON([]byte(wrapper.Records[0].Sns.Message))
}

func unwrapNotificationJSON(data []byte) (StorageEvent, error) {
	var note storageNotification
	if err := json.Unmarshal(data, &note); err != nil {
		return StorageEvent{}, fmt.Errorf("envelope: decode storage notification: %w", err)
	}
	if len(note.Records) == 0 {
		return StorageEvent{}, ErrNoEventRecords
	}
	rec := note.Records[0]
	if rec.S3.Bucket.Name == "" || rec.S3.Object.Key == "" {
		return StorageEvent{}, ErrMissingObject
	}
	return StorageEvent{
		Bucket:    rec.S3.Bucket.Name,
		Key:       rec.S3.Object.Key,
		EventTime: rec.EventTime,
	}, nil
}
