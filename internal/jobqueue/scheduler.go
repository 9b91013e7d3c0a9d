package jobqueue

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/titan-aas/titan-aas/internal/logging"
)

// ScheduledJob describes a job submitted on a recurring cron schedule.
type ScheduledJob struct {
	// Spec is a standard 5-field cron expression.
	Spec     string
	TenantID string
	Task     string
	Payload  any
	Options  SubmitOptions
}

// Scheduler submits jobs to a Queue on cron schedules, for recurring
// background work (cache warming, cleanup, reports) rather than
// one-off submissions triggered by API requests.
type Scheduler struct {
	queue  Queue
	cron   *cron.Cron
	logger *logging.Logger
}

// NewScheduler constructs a Scheduler backed by queue. logger may be
// nil, in which case a default JSON logger is used.
func NewScheduler(queue Queue, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewFromEnv("jobqueue-scheduler")
	}
	return &Scheduler{queue: queue, cron: cron.New(), logger: logger}
}

// Register adds a recurring submission. Returns an error if job.Spec
// is not a valid cron expression.
func (s *Scheduler) Register(job ScheduledJob) error {
	_, err := s.cron.AddFunc(job.Spec, func() {
		if _, err := s.queue.Submit(context.Background(), job.TenantID, job.Task, job.Payload, job.Options); err != nil {
			s.logger.WithField("task", job.Task).WithError(err).Error("scheduler submit failed")
		}
	})
	return err
}

// Start begins running scheduled submissions in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler, waiting for any in-progress submission
// callback to finish.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }
