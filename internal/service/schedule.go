package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/linkmint/linkmint/internal/domain"
	"github.com/linkmint/linkmint/internal/jobs"
	"github.com/linkmint/linkmint/internal/repository"
)

// CancelSchedule cancels a pending scheduled publication before it fires.
// Nothing is ever published for a cancelled schedule. A cancellation that
// loses the race against the firing job returns ErrPublishInFlight and
// leaves the order alone.
func (s *Service) CancelSchedule(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.ScheduledStatus != domain.ScheduledPending || order.ScheduledJobID == nil || order.CurrentVersionID == nil {
		return ErrNotScheduled
	}
	jobID := *order.ScheduledJobID
	versionID := *order.CurrentVersionID

	// The queue cancel and the row updates commit together. A crash can never
	// leave the order saying pending while its job is already cancelled, a
	// state startup reconciliation would read as a lost job and resurrect.
	err = s.inTx(ctx, func(tx pgx.Tx, ts txStore) error {
		cancelled, err := s.orch.CancelPendingPublishTx(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if !cancelled {
			return ErrPublishInFlight
		}
		if err := ts.MarkJobCancelled(ctx, jobs.PublishKey(versionID)); err != nil {
			return err
		}
		return ts.CancelSchedule(ctx, orderID)
	})
	if err != nil {
		return err
	}
	s.notifier.ScheduleCancelled(ctx, order.CustomerEmail, order)

	s.logger.InfoContext(ctx, "scheduled publication cancelled",
		slog.String("order_id", orderID.String()))
	return nil
}

// Reschedule moves a pending publication to a new fire time. The old job's
// cancellation and the new job's insertion commit atomically, so no
// crash-window exists in which the order has either two live jobs or none.
func (s *Service) Reschedule(ctx context.Context, orderID uuid.UUID, newAt time.Time) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.ScheduledStatus != domain.ScheduledPending || order.ScheduledJobID == nil || order.CurrentVersionID == nil {
		return ErrNotScheduled
	}
	versionID := *order.CurrentVersionID
	oldJobID := *order.ScheduledJobID
	newAt = newAt.UTC()

	err = s.inTx(ctx, func(tx pgx.Tx, ts txStore) error {
		if err := s.orch.CancelScheduledPublishTx(ctx, tx, oldJobID); err != nil {
			return err
		}
		handle, err := s.orch.SubmitScheduledPublishTx(ctx, tx, order, versionID, newAt)
		if err != nil {
			return err
		}
		// The replacement job reuses the version's deterministic key, so the
		// projection row is refreshed by the submission itself.
		return ts.Reschedule(ctx, orderID, newAt, handle.JobID)
	})
	if err != nil {
		return fmt.Errorf("service: reschedule order %s: %w", orderID, err)
	}

	s.logger.InfoContext(ctx, "publication rescheduled",
		slog.String("order_id", orderID.String()),
		slog.Time("publish_at", newAt),
	)
	return nil
}

// OrderJobStatus is the customer-facing view of an order's background work.
type OrderJobStatus struct {
	Order *domain.Order
	Jobs  []repository.JobRecord
	// HasActiveJob reports whether any job is still pending or running.
	HasActiveJob bool
	// HasFailedJob reports whether any job exhausted its attempts.
	HasFailedJob bool
}

// GetOrderJobStatus returns the order and its job projection rows, newest
// first.
func (s *Service) GetOrderJobStatus(ctx context.Context, orderID uuid.UUID) (*OrderJobStatus, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListOrderJobs(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := &OrderJobStatus{Order: order, Jobs: records}
	for _, rec := range records {
		switch rec.State {
		case repository.JobStatePending, repository.JobStateRunning:
			status.HasActiveJob = true
		case repository.JobStateFailed:
			status.HasFailedJob = true
		}
	}
	return status, nil
}
