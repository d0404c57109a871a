// Package archive writes one JSON object per chat turn to a Cloud Storage bucket.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/finance-assistant/internal/jobs"
)

// TurnRecord is the archived form of one chat turn.
type TurnRecord struct {
	TurnID        string          `json:"turn_id"`
	UserID        string          `json:"user_id"`
	RequestID     string          `json:"request_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UserMessage   string          `json:"user_message"`
	RawClassifier string          `json:"raw_classifier_output"`
	Intent        json.RawMessage `json:"intent"`
	Outcome       json.RawMessage `json:"outcome"`
	Reply         string          `json:"reply"`
}

// ObjectName returns chats/<user_id>/<YYYY>/<MM>/<DD>/<turn_id>.json, dated in UTC.
func ObjectName(rec *TurnRecord) string {
	t := rec.CreatedAt.UTC()
	return path.Join(
		"chats",
		rec.UserID,
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%02d", t.Day()),
		rec.TurnID+".json",
	)
}

// ObjectWriter stores bytes under a bucket and object name.
type ObjectWriter interface {
	WriteObject(ctx context.Context, bucket, object string, data []byte, contentType string) error
}

// Archiver writes TurnRecords to one bucket.
type Archiver struct {
	writer ObjectWriter
	bucket string
}

// New creates an Archiver for bucket.
func New(writer ObjectWriter, bucket string) *Archiver {
	return &Archiver{writer: writer, bucket: bucket}
}

// Archive stores rec and returns its gs:// URI.
func (a *Archiver) Archive(ctx context.Context, rec *TurnRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("Archive: encoding turn %s: %w", rec.TurnID, err)
	}

	name := ObjectName(rec)
	if err := a.writer.WriteObject(ctx, a.bucket, name, data, "application/json"); err != nil {
		return "", fmt.Errorf("Archive: writing %s: %w", name, err)
	}
	return "gs://" + a.bucket + "/" + name, nil
}

// HandleJob is the jobs.JobHandler for turn_archive jobs.
func (a *Archiver) HandleJob(ctx context.Context, job *jobs.ExportJob) error {
	var rec TurnRecord
	if err := job.Decode(&rec); err != nil {
		return err
	}
	_, err := a.Archive(ctx, &rec)
	return err
}

// GCSWriter writes objects with a shared Cloud Storage client.
type GCSWriter struct {
	client *storage.Client
}

// NewGCSWriter creates a storage client using Application Default Credentials.
func NewGCSWriter(ctx context.Context) (*GCSWriter, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSWriter{client: client}, nil
}

// WriteObject uploads data to bucket/object.
func (w *GCSWriter) WriteObject(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	ow := w.client.Bucket(bucket).Object(object).NewWriter(ctx)
	ow.ContentType = contentType

	if _, err := ow.Write(data); err != nil {
		_ = ow.Close()
		return fmt.Errorf("write GCS object: %w", err)
	}

	// Close finalizes the upload.
	if err := ow.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// Close closes the storage client.
func (w *GCSWriter) Close() error {
	return w.client.Close()
}
