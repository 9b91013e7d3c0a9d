package httpapi

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/titan-aas/titan-aas/internal/jobqueue"
)

// memQueue is a minimal in-memory jobqueue.Queue double for exercising
// the always-async operation-invocation handlers in tests.
type memQueue struct {
	mu   sync.Mutex
	jobs map[string]jobqueue.Job
	seq  int
}

func newMemQueue() *memQueue {
	return &memQueue{jobs: make(map[string]jobqueue.Job)}
}

func (q *memQueue) Submit(ctx context.Context, tenantID, task string, payload any, opts jobqueue.SubmitOptions) (jobqueue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	raw, _ := json.Marshal(payload)
	job := jobqueue.Job{
		ID:       "job-" + strconv.Itoa(q.seq),
		TenantID: tenantID,
		Task:     task,
		Payload:  raw,
		Status:   jobqueue.StatusPending,
		Queue:    jobqueue.QueuePending,
	}
	q.jobs[job.ID] = job
	return job, nil
}

func (q *memQueue) Claim(ctx context.Context, workerID string, batchSize int) ([]jobqueue.Job, error) {
	return nil, nil
}

func (q *memQueue) Complete(ctx context.Context, id string, result any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return jobqueue.ErrNotFound
	}
	job.Status = jobqueue.StatusCompleted
	job.Result, _ = json.Marshal(result)
	q.jobs[id] = job
	return nil
}

func (q *memQueue) Fail(ctx context.Context, id string, errMsg string, retry bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return jobqueue.ErrNotFound
	}
	job.Status = jobqueue.StatusDead
	job.LastError = errMsg
	q.jobs[id] = job
	return nil
}

func (q *memQueue) Cancel(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return jobqueue.ErrNotFound
	}
	job.Status = jobqueue.StatusCancelled
	q.jobs[id] = job
	return nil
}

func (q *memQueue) Get(ctx context.Context, id string) (jobqueue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return jobqueue.Job{}, jobqueue.ErrNotFound
	}
	return job, nil
}
