package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river/rivertype"
)

// waitingStates are the states in which a job has not yet started its current
// attempt and can still be cancelled cleanly.
var waitingStates = map[rivertype.JobState]bool{
	rivertype.JobStateScheduled: true,
	rivertype.JobStateAvailable: true,
	rivertype.JobStatePending:   true,
	rivertype.JobStateRetryable: true,
}

// IsTerminal reports whether a job state is final: the queue store will take
// no further action on the job.
func IsTerminal(state rivertype.JobState) bool {
	switch state {
	case rivertype.JobStateCompleted, rivertype.JobStateCancelled, rivertype.JobStateDiscarded:
		return true
	default:
		return false
	}
}

// Lookup returns the job row for the given id, or ErrJobNotFound.
func (e *Enqueuer) Lookup(ctx context.Context, jobID int64) (*rivertype.JobRow, error) {
	job, err := e.client.JobGet(ctx, jobID)
	if err != nil {
		if errors.Is(err, rivertype.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("queue: lookup job %d: %w", jobID, err)
	}
	return job, nil
}

// CancelWaitingJobTx cancels a job within a transaction, but only while it
// has not started running. It returns true only when the job was still
// waiting (scheduled, available, retryable, or pending) and is now cancelled.
// A running job is left alone: its side effect should complete or fail on its
// own, so false is returned and the caller decides whether to roll back.
// Terminal and missing jobs also return false.
//
// Running the check and the cancel on one transaction lets callers pair the
// cancel with their own row updates so neither lands without the other.
func (e *Enqueuer) CancelWaitingJobTx(ctx context.Context, tx pgx.Tx, jobID int64) (bool, error) {
	job, err := e.client.JobGetTx(ctx, tx, jobID)
	if err != nil {
		if errors.Is(err, rivertype.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("queue: get job %d: %w", jobID, err)
	}

	if !waitingStates[job.State] {
		return false, nil
	}

	if _, err := e.client.JobCancelTx(ctx, tx, jobID); err != nil {
		if errors.Is(err, rivertype.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("queue: cancel job %d: %w", jobID, err)
	}

	return true, nil
}

// CancelJobTx cancels a job within a transaction. A missing job is not an
// error; the cancel is then a no-op. Used by transactional replace
// (cancel-then-resubmit) flows.
func (e *Enqueuer) CancelJobTx(ctx context.Context, tx pgx.Tx, jobID int64) error {
	if _, err := e.client.JobCancelTx(ctx, tx, jobID); err != nil {
		if errors.Is(err, rivertype.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("queue: cancel job %d in tx: %w", jobID, err)
	}
	return nil
}
