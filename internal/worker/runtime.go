// Package worker runs the background processing side of the system: startup
// reconciliation followed by the queue manager's worker loop.
package worker

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/linkmint/linkmint/pkg/queue"
)

// jobManager is the slice of the queue manager the runtime needs.
type jobManager interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runtime ties reconciliation and the queue manager into one run loop.
type Runtime struct {
	manager    jobManager
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewRuntime creates a worker runtime.
func NewRuntime(manager jobManager, reconciler *Reconciler, logger *slog.Logger) *Runtime {
	return &Runtime{manager: manager, reconciler: reconciler, logger: logger}
}

// Run reconciles persisted schedules against the queue store, then starts
// processing and blocks until the context is cancelled. Reconciliation runs
// before the workers start so a repaired job cannot race its own replacement.
// A failed sweep is logged and left for the next restart; workers start
// regardless, since deterministic keys make a late repair harmless.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.reconciler.Run(ctx); err != nil {
		r.logger.ErrorContext(ctx, "startup reconciliation failed", slog.Any("error", err))
	}

	if err := r.manager.Start(ctx); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "worker runtime started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()

		// Stop with a fresh context: the run context is already cancelled
		// and in-flight jobs deserve a drain window.
		stopCtx, cancel := context.WithTimeout(context.Background(), queue.DrainTimeout)
		defer cancel()

		if err := r.manager.Stop(stopCtx); err != nil {
			return err
		}
		r.logger.Info("worker runtime stopped")
		return nil
	})

	return g.Wait()
}
