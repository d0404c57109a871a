package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/jobs"
)

// Queue is a channel-backed job publisher and consumer for single-instance
// deployments. Failed jobs are re-enqueued with linear backoff.
type Queue struct {
	jobChan   chan *jobs.ExportJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	log       zerolog.Logger
	workers   int
	backoff   time.Duration
	closed    bool
}

// NewQueue creates a new in-memory job queue. bufferSize determines how many
// jobs can be queued before Publish blocks and TryPublish fails; workers is
// the consumer count.
func NewQueue(bufferSize, workers int, store jobs.JobStore, log zerolog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		jobChan:   make(chan *jobs.ExportJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		log:       log,
		workers:   workers,
		backoff:   time.Second,
	}
}

// WithBackoff sets the base retry delay; attempt n waits n times base.
func (q *Queue) WithBackoff(base time.Duration) *Queue {
	q.backoff = base
	return q
}

var (
	// ErrQueueClosed is returned by publishes after Stop.
	ErrQueueClosed = errors.New("queue is closed")
	// ErrQueueFull is returned by TryPublish when the buffer has no room.
	ErrQueueFull = errors.New("queue is full")
)

// Publish enqueues a job, waiting for buffer space until ctx is done or the
// queue is stopped.
func (q *Queue) Publish(ctx context.Context, job *jobs.ExportJob) error {
	if err := q.prepare(ctx, job); err != nil {
		return err
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		q.markDropped(job, ctx.Err())
		return ctx.Err()
	case <-q.closeChan:
		q.markDropped(job, ErrQueueClosed)
		return ErrQueueClosed
	}
}

// TryPublish enqueues a job without waiting. A full buffer fails the job with
// ErrQueueFull instead of blocking the caller.
func (q *Queue) TryPublish(ctx context.Context, job *jobs.ExportJob) error {
	if err := q.prepare(ctx, job); err != nil {
		return err
	}

	select {
	case q.jobChan <- job:
		return nil
	default:
		q.markDropped(job, ErrQueueFull)
		return ErrQueueFull
	}
}

// NonBlocking returns a Publisher whose Publish is TryPublish, for callers
// that must never wait on the queue.
func (q *Queue) NonBlocking() jobs.Publisher {
	return nonBlocking{q}
}

type nonBlocking struct{ q *Queue }

func (n nonBlocking) Publish(ctx context.Context, job *jobs.ExportJob) error {
	return n.q.TryPublish(ctx, job)
}

func (n nonBlocking) Close() error { return n.q.Close() }

// prepare applies defaults and records the job as pending. The lock is only
// held for the closed check.
func (q *Queue) prepare(ctx context.Context, job *jobs.ExportJob) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}
	return nil
}

// markDropped records a job that never reached the buffer as failed.
func (q *Queue) markDropped(job *jobs.ExportJob, reason error) {
	q.log.Warn().
		Err(reason).
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Msg("job not queued")
	if q.store != nil {
		_ = q.store.UpdateJobStatus(context.Background(), job.JobID, jobs.JobStatusFailed, reason.Error())
	}
}

// Start launches the worker goroutines.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			q.drain(ctx, handler)
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// drain processes the jobs still buffered when the queue is stopped.
func (q *Queue) drain(ctx context.Context, handler jobs.JobHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		default:
			return
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.ExportJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	log := q.log.With().
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Str("user_id", job.UserID).
		Logger()

	if err != nil {
		job.Error = err.Error()

		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Status = jobs.JobStatusRetrying
			log.Warn().Err(err).Int("retry", job.RetryCount).Msg("job failed, retrying")

			retry := *job
			time.AfterFunc(time.Duration(job.RetryCount)*q.backoff, func() {
				retry.Status = jobs.JobStatusPending
				retry.StartedAt = nil
				retry.CompletedAt = nil
				if err := q.Publish(ctx, &retry); errors.Is(err, ErrQueueClosed) {
					q.markDropped(&retry, err)
				}
			})
		} else {
			job.Status = jobs.JobStatusFailed
			log.Error().Err(err).Msg("job failed")
		}
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Debug().Msg("job completed")
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop closes the queue, lets the workers finish the buffered jobs and waits
// for them until ctx is done. Retries scheduled after Stop are dropped.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
