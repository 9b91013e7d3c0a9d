// Package jobqueue implements the background job queue and worker
// (C10): three logical sub-queues (pending, processing, dlq), atomic
// claim-and-transition, exponential backoff retry, graceful worker
// shutdown, and TTL-lease leader election for singleton workers.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusDead      Status = "DEAD"
	StatusCancelled Status = "CANCELLED"
)

// Queue name is the sub-queue a job row currently lives in. This is a
// distinct axis from Status: a PENDING job with Queue == QueuePending
// is waiting to be claimed; a RUNNING job with Queue == QueueProcessing
// is in flight; a DEAD job with Queue == QueueDLQ has exhausted its
// retries.
type QueueName string

const (
	QueuePending    QueueName = "pending"
	QueueProcessing QueueName = "processing"
	QueueDLQ        QueueName = "dlq"
	// QueueDone holds terminal, non-retryable history (completed or
	// cancelled jobs) once removed from processing; it is not one of
	// the three operational sub-queues a worker claims from.
	QueueDone QueueName = "done"
)

// Job is a unit of background work.
type Job struct {
	ID         string
	TenantID   string
	Task       string
	Payload    json.RawMessage
	Status     Status
	Queue      QueueName
	Priority   int
	Attempts   int
	MaxRetries int
	Result     json.RawMessage
	LastError  string
	RunAfter   time.Time
	ClaimedBy  string
	ClaimedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PayloadMap decodes Payload as a JSON object, returning an empty map
// on malformed or absent payload rather than an error -- handlers read
// optional fields out of it with the payloadString/payloadBool helpers.
func (j Job) PayloadMap() map[string]any {
	if len(j.Payload) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(j.Payload, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("jobqueue: job not found")

// ErrNotCancellable is returned by Cancel when the job is no longer in
// PENDING or RUNNING status -- cancellation is only meaningful before
// or during execution.
var ErrNotCancellable = errors.New("jobqueue: job is not cancellable from its current status")

// SubmitOptions customizes a submitted job. The zero value uses
// priority 0 and the default max-retry count.
type SubmitOptions struct {
	Priority   int
	MaxRetries int
	RunAfter   time.Time
}

const defaultMaxRetries = 3

// Queue is the job persistence and transition contract.
type Queue interface {
	// Submit enqueues a new job as PENDING in the pending sub-queue.
	Submit(ctx context.Context, tenantID, task string, payload any, opts SubmitOptions) (Job, error)

	// Claim atomically moves up to batchSize eligible jobs (run_after
	// <= now, queue == pending, highest priority first) from pending
	// to processing, marking them RUNNING and claimed by workerID.
	Claim(ctx context.Context, workerID string, batchSize int) ([]Job, error)

	// Complete marks a claimed job COMPLETED and removes it from
	// processing, recording result.
	Complete(ctx context.Context, id string, result any) error

	// Fail records a failed attempt. If attempts remain (< MaxRetries),
	// the job returns to pending after an exponential backoff delay;
	// otherwise it moves to the dead-letter queue. retry=false (e.g.
	// unknown task) forces immediate dead-lettering regardless of
	// attempts remaining.
	Fail(ctx context.Context, id string, errMsg string, retry bool) error

	// Cancel moves a PENDING or RUNNING job to CANCELLED. Returns
	// ErrNotCancellable otherwise.
	Cancel(ctx context.Context, id string) error

	// Get fetches a single job by id.
	Get(ctx context.Context, id string) (Job, error)
}

// Backoff computes the retry delay for the given attempt count (the
// number of attempts already made, so the first retry passes attempt
// == 1): base 1s, factor 2, capped at 60s, plus jitter in [0, base) to
// avoid thundering-herd reclaims.
func Backoff(attempt int) time.Duration {
	const (
		base    = time.Second
		factor  = 2
		maxWait = 60 * time.Second
	)
	d := base
	for i := 1; i < attempt; i++ {
		d *= factor
		if d >= maxWait {
			d = maxWait
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(base)))
	return d + jitter
}
