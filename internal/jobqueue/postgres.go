package jobqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/titan-aas/titan-aas/internal/tenancy"
)

// PostgresQueue implements Queue on top of a jobs table, using
// `FOR UPDATE SKIP LOCKED` so concurrent workers never double-claim a
// row -- the same atomicity guarantee the repository layer gets from
// a single conditional UPDATE, adapted here to a claim-a-batch query.
type PostgresQueue struct {
	db *sqlx.DB
}

// NewPostgresQueue wraps an *sqlx.DB.
func NewPostgresQueue(db *sqlx.DB) *PostgresQueue {
	return &PostgresQueue{db: db}
}

type jobRow struct {
	ID         string          `db:"id"`
	TenantID   string          `db:"tenant_id"`
	Task       string          `db:"task"`
	Payload    json.RawMessage `db:"payload"`
	Status     string          `db:"status"`
	Queue      string          `db:"queue"`
	Priority   int             `db:"priority"`
	Attempts   int             `db:"attempts"`
	MaxRetries int             `db:"max_retries"`
	Result     json.RawMessage `db:"result"`
	LastError  sql.NullString  `db:"last_error"`
	RunAfter   time.Time       `db:"run_after"`
	ClaimedBy  sql.NullString  `db:"claimed_by"`
	ClaimedAt  sql.NullTime    `db:"claimed_at"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

func (r jobRow) toJob() Job {
	j := Job{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Task:       r.Task,
		Payload:    r.Payload,
		Status:     Status(r.Status),
		Queue:      QueueName(r.Queue),
		Priority:   r.Priority,
		Attempts:   r.Attempts,
		MaxRetries: r.MaxRetries,
		Result:     r.Result,
		LastError:  r.LastError.String,
		RunAfter:   r.RunAfter,
		ClaimedBy:  r.ClaimedBy.String,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.ClaimedAt.Valid {
		t := r.ClaimedAt.Time
		j.ClaimedAt = &t
	}
	return j
}

func (q *PostgresQueue) Submit(ctx context.Context, tenantID, task string, payload any, opts SubmitOptions) (Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("jobqueue: marshal payload: %w", err)
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	runAfter := opts.RunAfter
	if runAfter.IsZero() {
		runAfter = time.Now().UTC()
	}

	id := uuid.NewString()
	const q1 = `
		INSERT INTO jobs (id, tenant_id, task, payload, status, queue, priority, attempts, max_retries, run_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)
		RETURNING id, tenant_id, task, payload, status, queue, priority, attempts, max_retries, result, last_error, run_after, claimed_by, claimed_at, created_at, updated_at`

	var row jobRow
	if err := q.db.GetContext(ctx, &row, q1, id, tenantID, task, data, StatusPending, QueuePending, opts.Priority, maxRetries, runAfter); err != nil {
		return Job{}, fmt.Errorf("jobqueue: submit: %w", err)
	}
	return row.toJob(), nil
}

func (q *PostgresQueue) Claim(ctx context.Context, workerID string, batchSize int) ([]Job, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	tenantID, _ := tenancy.Lookup(ctx)

	const q1 = `
		WITH claimed AS (
			SELECT id FROM jobs
			WHERE queue = $1 AND run_after <= now()
			  AND ($4 = '' OR tenant_id = $4)
			ORDER BY priority DESC, run_after ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE jobs SET queue = $5, status = $6, claimed_by = $3, claimed_at = now(), updated_at = now()
		WHERE id IN (SELECT id FROM claimed)
		RETURNING id, tenant_id, task, payload, status, queue, priority, attempts, max_retries, result, last_error, run_after, claimed_by, claimed_at, created_at, updated_at`

	var rows []jobRow
	if err := q.db.SelectContext(ctx, &rows, q1, QueuePending, batchSize, workerID, tenantID, QueueProcessing, StatusRunning); err != nil {
		return nil, fmt.Errorf("jobqueue: claim: %w", err)
	}
	jobs := make([]Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, r.toJob())
	}
	return jobs, nil
}

func (q *PostgresQueue) Complete(ctx context.Context, id string, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("jobqueue: marshal result: %w", err)
	}
	const q1 = `UPDATE jobs SET status = $2, queue = $3, result = $4, updated_at = now() WHERE id = $1`
	res, err := q.db.ExecContext(ctx, q1, id, StatusCompleted, QueueDone, data)
	if err != nil {
		return fmt.Errorf("jobqueue: complete: %w", err)
	}
	return checkAffected(res, id)
}

func (q *PostgresQueue) Fail(ctx context.Context, id string, errMsg string, retry bool) error {
	job, err := q.Get(ctx, id)
	if err != nil {
		return err
	}

	attempts := job.Attempts + 1
	if retry && attempts < job.MaxRetries {
		runAfter := time.Now().UTC().Add(Backoff(attempts))
		const q1 = `UPDATE jobs SET status = $2, queue = $3, attempts = $4, last_error = $5, run_after = $6, claimed_by = NULL, claimed_at = NULL, updated_at = now() WHERE id = $1`
		res, err := q.db.ExecContext(ctx, q1, id, StatusPending, QueuePending, attempts, errMsg, runAfter)
		if err != nil {
			return fmt.Errorf("jobqueue: fail (retry): %w", err)
		}
		return checkAffected(res, id)
	}

	const q2 = `UPDATE jobs SET status = $2, queue = $3, attempts = $4, last_error = $5, updated_at = now() WHERE id = $1`
	res, err := q.db.ExecContext(ctx, q2, id, StatusDead, QueueDLQ, attempts, errMsg)
	if err != nil {
		return fmt.Errorf("jobqueue: fail (dead-letter): %w", err)
	}
	return checkAffected(res, id)
}

func (q *PostgresQueue) Cancel(ctx context.Context, id string) error {
	const q1 = `UPDATE jobs SET status = $2, queue = $3, updated_at = now() WHERE id = $1 AND status IN ($4, $5)`
	res, err := q.db.ExecContext(ctx, q1, id, StatusCancelled, QueueDone, StatusPending, StatusRunning)
	if err != nil {
		return fmt.Errorf("jobqueue: cancel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("jobqueue: cancel: %w", err)
	}
	if n == 0 {
		if _, err := q.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotCancellable
	}
	return nil
}

func (q *PostgresQueue) Get(ctx context.Context, id string) (Job, error) {
	const q1 = `
		SELECT id, tenant_id, task, payload, status, queue, priority, attempts, max_retries, result, last_error, run_after, claimed_by, claimed_at, created_at, updated_at
		FROM jobs WHERE id = $1`
	var row jobRow
	if err := q.db.GetContext(ctx, &row, q1, id); err != nil {
		if err == sql.ErrNoRows {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("jobqueue: get: %w", err)
	}
	return row.toJob(), nil
}

func checkAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("jobqueue: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
