package orchestrator

import (
	"context"
	"log/slog"

	"github.com/linkmint/linkmint/pkg/queue"
)

// projectionStore is the slice of the repository the observer needs.
type projectionStore interface {
	MarkJobRunning(ctx context.Context, key string, attempt int) error
	MarkJobCompleted(ctx context.Context, key string) error
	MarkJobFailed(ctx context.Context, key string, errMsg string, final bool) error
}

// ProjectionObserver mirrors job lifecycle events into the order_jobs
// projection. Projection writes are best-effort; failures are logged and the
// queue store stays the source of truth.
type ProjectionObserver struct {
	store  projectionStore
	logger *slog.Logger
}

// NewProjectionObserver creates the observer.
func NewProjectionObserver(store projectionStore, logger *slog.Logger) *ProjectionObserver {
	return &ProjectionObserver{store: store, logger: logger}
}

func (o *ProjectionObserver) JobStarted(ctx context.Context, meta queue.JobMeta) {
	if meta.Key == "" {
		return // periodic maintenance jobs carry no projection
	}
	if err := o.store.MarkJobRunning(ctx, meta.Key, meta.Attempt); err != nil {
		o.logProjectionError(ctx, meta, err)
	}
}

func (o *ProjectionObserver) JobCompleted(ctx context.Context, meta queue.JobMeta) {
	if meta.Key == "" {
		return
	}
	if err := o.store.MarkJobCompleted(ctx, meta.Key); err != nil {
		o.logProjectionError(ctx, meta, err)
	}
}

func (o *ProjectionObserver) JobFailed(ctx context.Context, meta queue.JobMeta, jobErr error, final bool) {
	if meta.Key == "" {
		return
	}
	if err := o.store.MarkJobFailed(ctx, meta.Key, jobErr.Error(), final); err != nil {
		o.logProjectionError(ctx, meta, err)
	}
}

func (o *ProjectionObserver) logProjectionError(ctx context.Context, meta queue.JobMeta, err error) {
	o.logger.ErrorContext(ctx, "job projection update failed",
		slog.String("key", meta.Key),
		slog.String("task", meta.Task),
		slog.Any("error", err),
	)
}
