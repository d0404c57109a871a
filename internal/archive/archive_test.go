package archive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finance-assistant/internal/jobs"
)

type mockWriter struct {
	WriteObjectFunc func(ctx context.Context, bucket, object string, data []byte, contentType string) error
}

func (m *mockWriter) WriteObject(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	return m.WriteObjectFunc(ctx, bucket, object, data, contentType)
}

func TestObjectName(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	rec := &TurnRecord{
		TurnID:    "turn-1",
		UserID:    "user_abc",
		CreatedAt: time.Date(2025, 3, 1, 2, 0, 0, 0, jakarta),
	}
	want := "chats/user_abc/2025/02/28/turn-1.json"
	if got := ObjectName(rec); got != want {
		t.Errorf("ObjectName() = %q, want %q", got, want)
	}
}

func TestArchiver_Archive(t *testing.T) {
	var gotBucket, gotObject, gotType string
	var gotData []byte
	w := &mockWriter{
		WriteObjectFunc: func(ctx context.Context, bucket, object string, data []byte, contentType string) error {
			gotBucket, gotObject, gotData, gotType = bucket, object, data, contentType
			return nil
		},
	}

	rec := &TurnRecord{
		TurnID:      "t1",
		UserID:      "u1",
		CreatedAt:   time.Date(2025, 7, 9, 10, 0, 0, 0, time.UTC),
		UserMessage: "beli kopi 25 ribu",
		Intent:      json.RawMessage(`{"intent":"record_transaction"}`),
		Outcome:     json.RawMessage(`null`),
		Reply:       "Sudah dicatat!",
	}

	uri, err := New(w, "finance-chats").Archive(context.Background(), rec)
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if uri != "gs://finance-chats/chats/u1/2025/07/09/t1.json" {
		t.Errorf("uri = %q", uri)
	}
	if gotBucket != "finance-chats" || gotObject != "chats/u1/2025/07/09/t1.json" || gotType != "application/json" {
		t.Errorf("unexpected write: %s %s %s", gotBucket, gotObject, gotType)
	}

	var decoded TurnRecord
	if err := json.Unmarshal(gotData, &decoded); err != nil {
		t.Fatalf("archived object is not JSON: %v", err)
	}
	if decoded.Reply != "Sudah dicatat!" || decoded.UserMessage != rec.UserMessage {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestArchiver_HandleJob(t *testing.T) {
	writeErr := errors.New("bucket does not exist")
	calls := 0
	w := &mockWriter{
		WriteObjectFunc: func(ctx context.Context, bucket, object string, data []byte, contentType string) error {
			calls++
			return writeErr
		},
	}
	a := New(w, "b")

	job, err := jobs.NewJob(jobs.JobTypeTurnArchive, "u1", &TurnRecord{TurnID: "t1", UserID: "u1", Intent: json.RawMessage(`{}`), Outcome: json.RawMessage(`null`)})
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}
	if err := a.HandleJob(context.Background(), job); !errors.Is(err, writeErr) {
		t.Errorf("HandleJob() error = %v, want wrapped write error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}

	bad := &jobs.ExportJob{Type: jobs.JobTypeTurnArchive, Payload: json.RawMessage(`[`)}
	if err := a.HandleJob(context.Background(), bad); err == nil {
		t.Error("expected decode error")
	}
}
