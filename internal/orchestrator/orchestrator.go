// Package orchestrator submits pipeline jobs to the durable queue with
// deterministic identities and mirrors every submission into the order_jobs
// projection. It is the only package that decides job keys, queues, and
// priorities; processors and triggers never enqueue directly.
package orchestrator

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
	"github.com/linkmint/linkmint/pkg/queue"
)

// queueClient is the slice of the queue manager the orchestrator needs.
type queueClient interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...queue.EnqueueOption) (*queue.JobHandle, error)
	EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...queue.EnqueueOption) (*queue.JobHandle, error)
	CancelWaitingJobTx(ctx context.Context, tx pgx.Tx, jobID int64) (bool, error)
	CancelJobTx(ctx context.Context, tx pgx.Tx, jobID int64) error
}

// jobRecorder is the slice of the repository the orchestrator needs.
type jobRecorder interface {
	RecordJob(ctx context.Context, rec *repository.JobRecord) error
}

// Orchestrator submits and replaces pipeline jobs.
type Orchestrator struct {
	queue  queueClient
	repo   jobRecorder
	logger *slog.Logger
}

// New creates an orchestrator.
func New(q queueClient, repo jobRecorder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{queue: q, repo: repo, logger: logger}
}

// SubmitGeneration submits the article-generation job for an order. The key
// is deterministic per order, so resubmitting while a prior generation is
// still pending or running is an idempotent no-op.
func (o *Orchestrator) SubmitGeneration(ctx context.Context, order *domain.Order) (*queue.JobHandle, error) {
	if order.Request.Article == nil {
		return nil, fmt.Errorf("orchestrator: order %s has no article request", order.ID)
	}

	payload := jobs.GeneratePayload{
		OrderID:       order.ID,
		ArticleID:     order.ArticleID,
		DomainID:      order.DomainID,
		Params:        *order.Request.Article,
		CustomerEmail: order.CustomerEmail,
	}
	key := jobs.GenerateKey(order.ID)

	handle, err := o.queue.Enqueue(ctx, jobs.TaskGenerateArticle, payload,
		queue.WithKey(key),
		queue.InQueue(jobs.QueueGeneration),
		queue.Priority(jobs.PriorityDefault),
	)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: submit generation: %w", err)
	}

	o.record(ctx, order, handle, jobs.TaskGenerateArticle)
	return handle, nil
}

// SubmitIntegration submits a backlink-integration job. regeneration is 0 for
// the first attempt; regenerations get a timestamped key so a fresh attempt
// is never suppressed by a just-completed prior one, and they jump the queue
// with urgent priority.
func (o *Orchestrator) SubmitIntegration(ctx context.Context, order *domain.Order, regeneration int) (*queue.JobHandle, error) {
	if order.Request.Backlink == nil {
		return nil, fmt.Errorf("orchestrator: order %s has no backlink request", order.ID)
	}

	payload := jobs.IntegratePayload{
		OrderID:       order.ID,
		ArticleID:     order.ArticleID,
		Params:        *order.Request.Backlink,
		CustomerEmail: order.CustomerEmail,
		Regeneration:  regeneration,
	}

	key := jobs.IntegrateKey(order.ID)
	priority := jobs.PriorityDefault
	if regeneration > 0 {
		key = jobs.RegenerateKey(order.ID, time.Now().UTC())
		priority = jobs.PriorityUrgent
	}

	handle, err := o.queue.Enqueue(ctx, jobs.TaskIntegrateBacklink, payload,
		queue.WithKey(key),
		queue.InQueue(jobs.QueueIntegration),
		queue.Priority(priority),
	)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: submit integration: %w", err)
	}

	o.record(ctx, order, handle, jobs.TaskIntegrateBacklink)
	return handle, nil
}

// SubmitScheduledPublish submits a version's publication at the given fire
// time. A fire time in the past is submitted as-is: the queue makes it
// immediately runnable, which is the catch-up behavior after outages.
func (o *Orchestrator) SubmitScheduledPublish(ctx context.Context, order *domain.Order, versionID uuid.UUID, fireAt time.Time) (*queue.JobHandle, error) {
	return o.submitPublish(ctx, nil, order, versionID, fireAt)
}

// SubmitScheduledPublishTx is SubmitScheduledPublish inside a transaction.
// Used by transactional replace during reschedules.
func (o *Orchestrator) SubmitScheduledPublishTx(ctx context.Context, tx pgx.Tx, order *domain.Order, versionID uuid.UUID, fireAt time.Time) (*queue.JobHandle, error) {
	return o.submitPublish(ctx, tx, order, versionID, fireAt)
}

func (o *Orchestrator) submitPublish(ctx context.Context, tx pgx.Tx, order *domain.Order, versionID uuid.UUID, fireAt time.Time) (*queue.JobHandle, error) {
	payload := jobs.PublishPayload{
		OrderID:   order.ID,
		VersionID: versionID,
		ArticleID: order.ArticleID,
		DomainID:  order.DomainID,
	}
	opts := []queue.EnqueueOption{
		queue.WithKey(jobs.PublishKey(versionID)),
		queue.InQueue(jobs.QueuePublishing),
		queue.Priority(jobs.PriorityDefault),
		queue.At(fireAt),
	}

	var (
		handle *queue.JobHandle
		err    error
	)
	if tx != nil {
		handle, err = o.queue.EnqueueTx(ctx, tx, jobs.TaskPublishVersion, payload, opts...)
	} else {
		handle, err = o.queue.Enqueue(ctx, jobs.TaskPublishVersion, payload, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("orchestrator: submit scheduled publish: %w", err)
	}

	o.record(ctx, order, handle, jobs.TaskPublishVersion)
	return handle, nil
}

// CancelPendingPublishTx cancels a pending publication job on the caller's
// transaction. It returns true only when the job was still waiting; a job
// already running is left to finish on its own and false is returned so the
// caller can roll back. The caller updates the projection row on the same
// transaction, so the queue cancel and the row state commit together.
func (o *Orchestrator) CancelPendingPublishTx(ctx context.Context, tx pgx.Tx, jobID int64) (bool, error) {
	cancelled, err := o.queue.CancelWaitingJobTx(ctx, tx, jobID)
	if err != nil {
		return false, fmt.Errorf("orchestrator: cancel pending publish: %w", err)
	}
	return cancelled, nil
}

// CancelScheduledPublishTx cancels a publication job inside a transaction,
// as the first half of a transactional replace. A missing job is a no-op.
func (o *Orchestrator) CancelScheduledPublishTx(ctx context.Context, tx pgx.Tx, jobID int64) error {
	if err := o.queue.CancelJobTx(ctx, tx, jobID); err != nil {
		return fmt.Errorf("orchestrator: cancel scheduled publish in tx: %w", err)
	}
	return nil
}

// record mirrors the submission into the order_jobs projection. Projection
// writes are best-effort: the queue row is the source of truth and the
// projection is repaired on the next state change.
func (o *Orchestrator) record(ctx context.Context, order *domain.Order, handle *queue.JobHandle, task string) {
	if handle.Duplicate {
		o.logger.InfoContext(ctx, "duplicate submission suppressed",
			slog.String("key", handle.Key),
			slog.Int64("job_id", handle.JobID),
		)
		return
	}

	scheduledAt := handle.ScheduledAt
	err := o.repo.RecordJob(ctx, &repository.JobRecord{
		OrderID:     order.ID,
		JobKey:      handle.Key,
		JobID:       handle.JobID,
		Task:        task,
		Queue:       handle.Queue,
		State:       repository.JobStatePending,
		ScheduledAt: &scheduledAt,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "job projection write failed",
			slog.String("key", handle.Key), slog.Any("error", err))
	}
}
