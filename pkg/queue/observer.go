package queue

import (
	"context"
	"log/slog"
)

// JobMeta describes a job to observers and handlers.
type JobMeta struct {
	JobID       int64
	Key         string
	Task        string
	Queue       string
	Attempt     int
	MaxAttempts int
}

// FinalAttempt reports whether this attempt is the job's last: if it fails,
// the queue store will not retry it again.
func (m JobMeta) FinalAttempt() bool {
	return m.Attempt >= m.MaxAttempts
}

// Observer receives job lifecycle events. Callbacks run synchronously on the
// worker goroutine around job execution. Observers exist for logging and for
// maintaining queue-state projections; they must never mutate domain state.
type Observer interface {
	JobStarted(ctx context.Context, meta JobMeta)
	JobCompleted(ctx context.Context, meta JobMeta)
	JobFailed(ctx context.Context, meta JobMeta, jobErr error, final bool)
}

// LogObserver logs job lifecycle events.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an observer that logs lifecycle events to l.
func NewLogObserver(l *slog.Logger) *LogObserver {
	return &LogObserver{logger: l}
}

func (o *LogObserver) JobStarted(ctx context.Context, meta JobMeta) {
	o.logger.DebugContext(ctx, "job started",
		slog.String("task", meta.Task),
		slog.String("key", meta.Key),
		slog.Int64("job_id", meta.JobID),
		slog.Int("attempt", meta.Attempt),
	)
}

func (o *LogObserver) JobCompleted(ctx context.Context, meta JobMeta) {
	o.logger.InfoContext(ctx, "job completed",
		slog.String("task", meta.Task),
		slog.String("key", meta.Key),
		slog.Int64("job_id", meta.JobID),
		slog.Int("attempt", meta.Attempt),
	)
}

func (o *LogObserver) JobFailed(ctx context.Context, meta JobMeta, jobErr error, final bool) {
	o.logger.ErrorContext(ctx, "job failed",
		slog.String("task", meta.Task),
		slog.String("key", meta.Key),
		slog.Int64("job_id", meta.JobID),
		slog.Int("attempt", meta.Attempt),
		slog.Int("max_attempts", meta.MaxAttempts),
		slog.Bool("final", final),
		slog.Any("error", jobErr),
	)
}

type metaContextKey struct{}

func withJobMeta(ctx context.Context, meta JobMeta) context.Context {
	return context.WithValue(ctx, metaContextKey{}, meta)
}

// MetaFromContext returns the metadata of the job currently being executed.
// It is only populated inside task handlers.
func MetaFromContext(ctx context.Context) (JobMeta, bool) {
	meta, ok := ctx.Value(metaContextKey{}).(JobMeta)
	return meta, ok
}

// ContextWithMeta returns a context carrying job metadata, as handlers see it
// inside a worker. Intended for testing handlers directly.
func ContextWithMeta(ctx context.Context, meta JobMeta) context.Context {
	return withJobMeta(ctx, meta)
}
