// Package queue provides durable background job processing using River
// (Postgres-native queue).
//
// The package wraps River behind a small, type-safe API: tasks are registered
// as ordinary structs with Name() and Handle() methods, enqueued by name, and
// executed by a single multiplexing River worker. Jobs survive process
// restarts, retry with exponential backoff, and can be deduplicated with
// deterministic keys.
//
// # Task Definition
//
// Tasks are defined as structs with Name() and Handle() methods. No interface
// import is required - the package uses structural typing:
//
//	type GenerateArticle struct {
//	    generator content.Generator
//	    repo      *repository.Repository
//	}
//
//	func (t *GenerateArticle) Name() string { return "generate_article" }
//
//	func (t *GenerateArticle) Handle(ctx context.Context, p GeneratePayload) error {
//	    ...
//	}
//
// # Deterministic Job Keys
//
// A job enqueued with WithKey is unique among non-terminal jobs: while a job
// with the same key is still waiting, retryable, or running, enqueueing again
// is a no-op that returns the existing job's handle. This is the mechanism
// behind at-most-one-active-job-per-order guarantees:
//
//	handle, err := m.Enqueue(ctx, "generate_article", payload,
//	    queue.WithKey("generate:"+orderID),
//	    queue.InQueue("generation"),
//	)
//	if handle.Duplicate {
//	    // an equivalent job was already pending or running
//	}
//
// # Queues and Concurrency
//
// Each named queue has its own worker count. A queue with one worker
// serializes its jobs system-wide, which is how downstream rate limits and
// publish races are handled:
//
//	queue.WithQueue("generation", 1)
//	queue.WithQueue("publishing", 1)
//
// # Scheduled and Periodic Jobs
//
// One-shot jobs can be scheduled with At(); a fire time in the past inserts
// an immediately-runnable job rather than returning an error. Periodic tasks
// implement Schedule() returning a cron expression and are re-registered on
// every start, so redeploys never accumulate duplicate schedules.
//
// # Observers
//
// Observers receive started/completed/failed callbacks with job metadata.
// Observers must not mutate domain state; they exist for logging and for
// maintaining queue-state projections.
//
// # Retry Policy
//
// Jobs default to 3 attempts with exponential backoff starting at 2s
// (2s, 4s, 8s). After the last attempt the job is discarded and not retried
// further. Handlers that need to act on the final attempt can read the
// attempt counters from MetaFromContext.
//
// # Database Migrations
//
// River requires its own tables (river_job, river_leader, river_queue). Run
// River's migrations before using this package; see
// https://riverqueue.com/docs/migrations
package queue
