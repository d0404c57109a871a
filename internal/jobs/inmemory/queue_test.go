package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ExportJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s did not reach %s, last state: %+v", jobID, want, job)
	return nil
}

func TestQueue_ProcessesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 2, store, zerolog.Nop())

	var seen atomic.Value
	if err := q.Start(ctx, func(ctx context.Context, job *jobs.ExportJob) error {
		var payload map[string]string
		if err := job.Decode(&payload); err != nil {
			return err
		}
		seen.Store(payload["transaction_id"])
		return nil
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer q.Stop(context.Background())

	job, err := jobs.NewJob(jobs.JobTypeNotionExport, "u1", map[string]string{"transaction_id": "tx-1"})
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}
	if err := q.Publish(ctx, job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if job.JobID == "" || job.MaxRetries != jobs.DefaultMaxRetries {
		t.Errorf("defaults not applied: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.CompletedAt == nil || done.StartedAt == nil {
		t.Error("expected timestamps on completed job")
	}
	if seen.Load() != "tx-1" {
		t.Errorf("handler saw %v", seen.Load())
	}
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store, zerolog.Nop()).WithBackoff(time.Millisecond)

	var attempts int32
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.ExportJob) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("notion unavailable")
		}
		return nil
	})
	defer q.Stop(context.Background())

	job := &jobs.ExportJob{Type: jobs.JobTypeTurnArchive, UserID: "u1", Payload: []byte(`{}`)}
	if err := q.Publish(ctx, job); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", done.RetryCount)
	}
	if done.Error != "" {
		t.Errorf("Error = %q, want cleared", done.Error)
	}
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store, zerolog.Nop()).WithBackoff(time.Millisecond)

	var attempts int32
	_ = q.Start(ctx, func(ctx context.Context, job *jobs.ExportJob) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("bucket missing")
	})
	defer q.Stop(context.Background())

	job := &jobs.ExportJob{Type: jobs.JobTypeTurnArchive, UserID: "u1", MaxRetries: 2}
	_ = q.Publish(ctx, job)

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.Error != "bucket missing" {
		t.Errorf("Error = %q", failed.Error)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(1, 1, nil, zerolog.Nop())
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := q.Publish(context.Background(), &jobs.ExportJob{}); err == nil {
		t.Error("expected error publishing to a closed queue")
	}
	if err := q.Start(context.Background(), nil); err == nil {
		t.Error("expected error starting a closed queue")
	}
}

func TestMux(t *testing.T) {
	var called jobs.JobType
	mux := jobs.Mux{
		jobs.JobTypeNotionExport: func(ctx context.Context, job *jobs.ExportJob) error {
			called = job.Type
			return nil
		},
	}

	if err := mux.Handle(context.Background(), &jobs.ExportJob{Type: jobs.JobTypeNotionExport}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if called != jobs.JobTypeNotionExport {
		t.Errorf("called = %q", called)
	}
	if err := mux.Handle(context.Background(), &jobs.ExportJob{Type: "unknown"}); err == nil {
		t.Error("expected error for unregistered type")
	}
}

func TestQueue_TryPublishFullFailsJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(1, 1, store, zerolog.Nop())
	defer q.Stop(context.Background())

	first := &jobs.ExportJob{Type: jobs.JobTypeTurnArchive, UserID: "u1"}
	if err := q.TryPublish(context.Background(), first); err != nil {
		t.Fatalf("TryPublish() error = %v", err)
	}

	second := &jobs.ExportJob{Type: jobs.JobTypeTurnArchive, UserID: "u1"}
	start := time.Now()
	err := q.NonBlocking().Publish(context.Background(), second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Publish() error = %v, want ErrQueueFull", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("full queue blocked the publisher for %v", elapsed)
	}

	got, err := store.GetJob(context.Background(), second.JobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != jobs.JobStatusFailed || got.Error != ErrQueueFull.Error() {
		t.Errorf("dropped job = %+v", got)
	}
}

func TestQueue_StopWhilePublishBlocked(t *testing.T) {
	q := NewQueue(1, 1, nil, zerolog.Nop())
	if err := q.Publish(context.Background(), &jobs.ExportJob{Type: jobs.JobTypeTurnArchive}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- q.Publish(context.Background(), &jobs.ExportJob{Type: jobs.JobTypeTurnArchive})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrQueueClosed) {
			t.Errorf("blocked Publish() error = %v, want ErrQueueClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Publish() did not return after Stop")
	}
}

func TestQueue_StopDrainsBufferedJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(5, 1, store, zerolog.Nop())

	var ids []string
	for i := 0; i < 3; i++ {
		job := &jobs.ExportJob{Type: jobs.JobTypeNotionExport, UserID: "u1"}
		if err := q.Publish(context.Background(), job); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		ids = append(ids, job.JobID)
	}

	var handled int32
	if err := q.Start(context.Background(), func(ctx context.Context, job *jobs.ExportJob) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := atomic.LoadInt32(&handled); got != 3 {
		t.Errorf("handled = %d, want 3", got)
	}
	for _, id := range ids {
		job, err := store.GetJob(context.Background(), id)
		if err != nil || job.Status != jobs.JobStatusCompleted {
			t.Errorf("job %s = %+v, %v", id, job, err)
		}
	}
}
