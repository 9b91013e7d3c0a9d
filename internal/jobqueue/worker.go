package jobqueue

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/titan-aas/titan-aas/internal/logging"
	"github.com/titan-aas/titan-aas/pkg/metrics"
)

// Handler processes one job and returns its result payload, or an
// error if the job failed. Handlers are looked up by Job.Task.
type Handler func(ctx context.Context, job Job) (any, error)

// WorkerConfig configures a Worker's polling and retry behavior.
type WorkerConfig struct {
	Name         string
	BatchSize    int
	PollInterval time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	return c
}

// Worker claims and processes jobs from a Queue. Unknown task types
// fail permanently (no retry); registered handlers run concurrently up
// to BatchSize in flight, and Stop waits for in-flight jobs to finish
// before returning.
type Worker struct {
	queue    Queue
	config   WorkerConfig
	handlers map[string]Handler
	leader   *Lease
	logger   *logging.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Worker. Pass a non-nil leader to make this worker a
// singleton participant in leader election: it only claims jobs while
// it holds the lease. logger may be nil, in which case a default JSON
// logger is used.
func New(queue Queue, config WorkerConfig, leader *Lease, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewFromEnv("jobqueue")
	}
	return &Worker{
		queue:    queue,
		config:   config.withDefaults(),
		handlers: make(map[string]Handler),
		leader:   leader,
		logger:   logger,
	}
}

// RegisterHandler associates handler with task.
func (w *Worker) RegisterHandler(task string, handler Handler) {
	w.handlers[task] = handler
}

// Run blocks, polling and processing jobs until ctx is cancelled or a
// SIGTERM/SIGINT is received, then waits for in-flight jobs before
// returning.
func (w *Worker) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	defer cancel()

	w.logger.WithField("worker", w.config.Name).Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.WithField("worker", w.config.Name).Info("worker stopped")
			return nil
		default:
		}

		if w.leader != nil && !w.leader.IsLeader() {
			if !sleepOrDone(ctx, w.config.PollInterval) {
				w.wg.Wait()
				return nil
			}
			continue
		}

		jobs, err := w.queue.Claim(ctx, w.config.Name, w.config.BatchSize)
		if err != nil {
			w.logger.WithField("worker", w.config.Name).WithError(err).Error("claim error")
			if !sleepOrDone(ctx, w.config.PollInterval) {
				w.wg.Wait()
				return nil
			}
			continue
		}

		for _, job := range jobs {
			job := job
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				w.process(ctx, job)
			}()
		}
		w.wg.Wait()

		if len(jobs) == 0 {
			if !sleepOrDone(ctx, w.config.PollInterval) {
				w.wg.Wait()
				return nil
			}
		}
	}
}

// Stop cancels the run loop's context; Run returns once in-flight jobs
// drain.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	handler, ok := w.handlers[job.Task]
	if !ok {
		metrics.RecordJobExecution(job.Task, "unknown_task", 0)
		if err := w.queue.Fail(ctx, job.ID, fmt.Sprintf("unknown task type: %s", job.Task), false); err != nil {
			w.logger.WithContext(ctx).WithField("job_id", job.ID).WithError(err).Error("fail unknown task")
		}
		return
	}

	w.logger.LogJobTransition(ctx, job.ID, job.Task, string(job.Status), "running")
	start := time.Now()
	result, err := handler(ctx, job)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordJobExecution(job.Task, "failed", duration)
		w.logger.WithContext(ctx).WithField("job_id", job.ID).WithError(err).Warn("job handler failed")
		if ferr := w.queue.Fail(ctx, job.ID, err.Error(), true); ferr != nil {
			w.logger.WithContext(ctx).WithField("job_id", job.ID).WithError(ferr).Error("fail job")
		}
		return
	}

	metrics.RecordJobExecution(job.Task, "succeeded", duration)
	if result == nil {
		result = map[string]any{}
	}
	w.logger.LogJobTransition(ctx, job.ID, job.Task, string(job.Status), "succeeded")
	if err := w.queue.Complete(ctx, job.ID, result); err != nil {
		w.logger.WithContext(ctx).WithField("job_id", job.ID).WithError(err).Error("complete job")
	}
}

// sleepOrDone sleeps for d, returning false immediately if ctx is
// cancelled first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Shutdown requests the worker stop and blocks, with a timeout, until
// in-flight processing drains. Intended for callers outside Run's own
// signal handling (e.g. tests, or composing with an outer supervisor).
func (w *Worker) Shutdown(timeout time.Duration) error {
	w.Stop()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("jobqueue: shutdown timed out after %s", timeout)
	}
}
