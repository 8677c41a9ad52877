package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river/rivertype"

	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/internal/repository"
	"github.com/linkmint/linkmint/pkg/queue"
)

// scheduleStore is the slice of the repository reconciliation needs.
type scheduleStore interface {
	ListScheduledPublishes(ctx context.Context) ([]repository.ScheduledPublish, error)
	SetScheduledJobID(ctx context.Context, id uuid.UUID, jobID int64) error
}

// jobInspector resolves persisted job ids against the queue store.
type jobInspector interface {
	Lookup(ctx context.Context, jobID int64) (*rivertype.JobRow, error)
}

// publishSubmitter re-submits missing publication jobs. Deterministic keys
// make a redundant submit a no-op, so the reconciler never needs to check
// for races with concurrent submissions.
type publishSubmitter interface {
	SubmitScheduledPublish(ctx context.Context, order *domain.Order, versionID uuid.UUID, fireAt time.Time) (*queue.JobHandle, error)
}

// Reconciler repairs the queue store against the relational state on
// startup. The orders table is the source of truth for which publications
// are owed; the queue store is a disposable execution engine that can be
// wiped and rebuilt from it.
type Reconciler struct {
	store     scheduleStore
	inspector jobInspector
	submitter publishSubmitter
	logger    *slog.Logger
}

// NewReconciler creates a startup reconciler.
func NewReconciler(store scheduleStore, inspector jobInspector, submitter publishSubmitter, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, inspector: inspector, submitter: submitter, logger: logger}
}

// Run walks every order still awaiting its scheduled publication and makes
// sure a live queue job backs it. A fire time already in the past is
// re-submitted as-is and becomes immediately runnable, which is the catch-up
// path after an outage. Per-order errors are logged and skipped; startup is
// never blocked by a single bad row.
func (r *Reconciler) Run(ctx context.Context) error {
	pending, err := r.store.ListScheduledPublishes(ctx)
	if err != nil {
		return fmt.Errorf("worker: list scheduled publishes: %w", err)
	}

	var repaired, intact int
	for _, sp := range pending {
		ok, err := r.reconcile(ctx, sp)
		if err != nil {
			r.logger.ErrorContext(ctx, "schedule reconciliation failed",
				slog.String("order_id", sp.OrderID.String()),
				slog.Any("error", err),
			)
			continue
		}
		if ok {
			repaired++
		} else {
			intact++
		}
	}

	r.logger.InfoContext(ctx, "schedule reconciliation done",
		slog.Int("pending", len(pending)),
		slog.Int("repaired", repaired),
		slog.Int("intact", intact),
	)
	return nil
}

// reconcile checks one pending publication and reports whether a repair was
// made.
func (r *Reconciler) reconcile(ctx context.Context, sp repository.ScheduledPublish) (bool, error) {
	if sp.JobID != nil {
		job, err := r.inspector.Lookup(ctx, *sp.JobID)
		switch {
		case errors.Is(err, queue.ErrJobNotFound):
			// Queue store lost the job (wiped, or retention pruned it before
			// it ran). Fall through to re-submission.
		case err != nil:
			return false, err
		case !queue.IsTerminal(job.State):
			// Job alive and waiting or running; nothing to do.
			return false, nil
		default:
			// Job reached a terminal state while the order still says
			// pending: the run was lost (e.g. cancelled by an operator
			// directly in the queue store). Replace it.
		}
	}

	handle, err := r.submitter.SubmitScheduledPublish(ctx, &domain.Order{
		ID:        sp.OrderID,
		ArticleID: sp.ArticleID,
		DomainID:  sp.DomainID,
	}, sp.VersionID, sp.PublishAt)
	if err != nil {
		return false, err
	}

	// A duplicate handle means a live job with the same key already exists,
	// so the persisted id was just stale; repoint either way.
	if err := r.store.SetScheduledJobID(ctx, sp.OrderID, handle.JobID); err != nil {
		return false, err
	}

	r.logger.InfoContext(ctx, "scheduled publish restored",
		slog.String("order_id", sp.OrderID.String()),
		slog.Int64("job_id", handle.JobID),
		slog.Time("publish_at", sp.PublishAt),
		slog.Bool("duplicate", handle.Duplicate),
	)
	return true, nil
}
