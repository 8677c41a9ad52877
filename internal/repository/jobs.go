package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// JobRecord is the relational projection of one queue job, keyed by the
// deterministic job key. It backs order job-status lookups without touching
// the queue store's own tables.
type JobRecord struct {
	ID          int64
	OrderID     uuid.UUID
	JobKey      string
	JobID       int64
	Task        string
	Queue       string
	State       string
	Attempt     int
	LastError   string
	ScheduledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Projection states. Deliberately coarser than the queue store's own
// lifecycle: customers only care whether work is waiting, running, done, or
// dead.
const (
	JobStatePending   = "pending"
	JobStateRunning   = "running"
	JobStateCompleted = "completed"
	JobStateFailed    = "failed"
	JobStateCancelled = "cancelled"
)

// RecordJob upserts the projection row at submission time. A resubmit of the
// same key (duplicate suppressed by the queue) refreshes the row in place.
func (r *Repository) RecordJob(ctx context.Context, rec *JobRecord) error {
	const query = `
		INSERT INTO order_jobs (order_id, job_key, job_id, task, queue, state, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_key) DO UPDATE SET
			job_id = EXCLUDED.job_id,
			state = EXCLUDED.state,
			scheduled_at = EXCLUDED.scheduled_at,
			updated_at = now()`

	_, err := r.db.Exec(ctx, query,
		rec.OrderID, rec.JobKey, rec.JobID, rec.Task, rec.Queue, rec.State, rec.ScheduledAt,
	)
	if err != nil {
		return fmt.Errorf("repository: record job: %w", err)
	}
	return nil
}

// MarkJobRunning advances the projection when a worker picks the job up.
func (r *Repository) MarkJobRunning(ctx context.Context, key string, attempt int) error {
	return r.updateJob(ctx, key, sq.Eq{"state": JobStateRunning, "attempt": attempt})
}

// MarkJobCompleted records a successful run.
func (r *Repository) MarkJobCompleted(ctx context.Context, key string) error {
	return r.updateJob(ctx, key, sq.Eq{"state": JobStateCompleted, "last_error": ""})
}

// MarkJobFailed records an errored attempt. Non-final failures stay pending
// because the queue will retry them.
func (r *Repository) MarkJobFailed(ctx context.Context, key string, errMsg string, final bool) error {
	state := JobStatePending
	if final {
		state = JobStateFailed
	}
	return r.updateJob(ctx, key, sq.Eq{"state": state, "last_error": errMsg})
}

// MarkJobCancelled records a cancellation (schedule cancel or reschedule).
func (r *Repository) MarkJobCancelled(ctx context.Context, key string) error {
	return r.updateJob(ctx, key, sq.Eq{"state": JobStateCancelled})
}

// ListOrderJobs returns all projection rows for an order, newest first.
func (r *Repository) ListOrderJobs(ctx context.Context, orderID uuid.UUID) ([]JobRecord, error) {
	query, args, err := psql.
		Select("id", "order_id", "job_key", "job_id", "task", "queue", "state", "attempt", "last_error", "scheduled_at", "created_at", "updated_at").
		From("order_jobs").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: build list jobs: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: list jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var rec JobRecord
		if err := rows.Scan(
			&rec.ID, &rec.OrderID, &rec.JobKey, &rec.JobID, &rec.Task, &rec.Queue,
			&rec.State, &rec.Attempt, &rec.LastError, &rec.ScheduledAt, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("repository: scan job: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) updateJob(ctx context.Context, key string, set sq.Eq) error {
	builder := psql.Update("order_jobs").Set("updated_at", sq.Expr("now()"))
	for col, val := range set {
		builder = builder.Set(col, val)
	}
	query, args, err := builder.Where(sq.Eq{"job_key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("repository: build job update: %w", err)
	}

	// Missing rows are tolerated: maintenance jobs carry no projection.
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("repository: update job: %w", err)
	}
	return nil
}
