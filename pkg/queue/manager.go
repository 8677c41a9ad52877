package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"github.com/robfig/cron/v3"
)

const (
	defaultQueue       = river.QueueDefault
	defaultMaxWorkers  = 10
	defaultMaxAttempts = 3

	defaultJobTimeout  = 15 * time.Minute
	defaultRescueAfter = 30 * time.Minute

	// Completed jobs are kept for a day and discarded (terminally failed)
	// jobs for a week, purely for observability.
	defaultCompletedRetention = 24 * time.Hour
	defaultDiscardedRetention = 7 * 24 * time.Hour
)

// DrainTimeout is how long a stopping worker waits for in-flight jobs before
// giving up. Interrupted jobs are rescued and retried after restart.
const DrainTimeout = 30 * time.Second

// Manager handles background job processing using River.
// It combines enqueueing and worker processing capabilities.
// Manager embeds Enqueuer for job enqueueing methods.
type Manager struct {
	*Enqueuer
	registry  *taskRegistry
	workers   *river.Workers
	observers []Observer
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewManager creates a new job manager with the given options.
// The River client is created immediately, allowing jobs to be enqueued
// before Start() is called. Call Start() to begin processing jobs.
func NewManager(pool *pgxpool.Pool, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	queues := map[string]river.QueueConfig{
		defaultQueue: {MaxWorkers: cfg.maxWorkers},
	}
	for name, workers := range cfg.queues {
		queues[name] = river.QueueConfig{MaxWorkers: workers}
	}

	var periodicJobs []*river.PeriodicJob
	for _, sched := range cfg.schedules {
		cronSchedule, err := parseCronSchedule(sched.schedule)
		if err != nil {
			return nil, fmt.Errorf("queue: invalid cron schedule %q: %w", sched.schedule, err)
		}

		insertOpts := buildInsertOpts(&enqueueConfig{queue: sched.queue})
		periodicJobs = append(periodicJobs, river.NewPeriodicJob(
			cronSchedule,
			func() (river.JobArgs, *river.InsertOpts) {
				return &taskArgs{Task: sched.name}, insertOpts
			},
			// Periodic definitions live in memory and are re-registered on
			// every start, so redeploys never accumulate duplicate schedules.
			&river.PeriodicJobOpts{RunOnStart: false},
		))

		cfg.registry.register(sched.name, &scheduledTaskExecutor{handler: sched.handler})
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &taskWorker{
		registry:  cfg.registry,
		observers: cfg.observers,
		logger:    cfg.logger,
	})

	// Client created immediately, allowing enqueue() before Start().
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:                      queues,
		Workers:                     workers,
		PeriodicJobs:                periodicJobs,
		Logger:                      cfg.logger,
		MaxAttempts:                 defaultMaxAttempts,
		RetryPolicy:                 &retryPolicy{},
		JobTimeout:                  cfg.jobTimeout,
		RescueStuckJobsAfter:        cfg.rescueAfter,
		CompletedJobRetentionPeriod: defaultCompletedRetention,
		DiscardedJobRetentionPeriod: defaultDiscardedRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: create client: %w", err)
	}

	return &Manager{
		Enqueuer: &Enqueuer{
			pool:   pool,
			client: client,
			logger: cfg.logger,
		},
		registry:  cfg.registry,
		workers:   workers,
		observers: cfg.observers,
		logger:    cfg.logger,
	}, nil
}

// Start begins processing jobs.
// Jobs can be enqueued before Start() is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}

	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("queue: start client: %w", err)
	}

	m.started = true
	m.logger.Info("queue manager started",
		slog.Int("tasks", len(m.registry.names())),
	)

	return nil
}

// Stop gracefully shuts down the job manager.
// It stops fetching new work and waits for in-flight jobs to complete.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}

	if err := m.client.Stop(ctx); err != nil {
		return fmt.Errorf("queue: stop client: %w", err)
	}

	m.started = false
	m.logger.Info("queue manager stopped")
	return nil
}

// Enqueue adds a job to the queue for processing.
// The task must be registered on this manager.
func (m *Manager) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) (*JobHandle, error) {
	if _, ok := m.registry.get(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return m.Enqueuer.Enqueue(ctx, name, payload, opts...)
}

// EnqueueTx adds a job to the queue within a transaction.
// The job is only visible after the transaction commits.
func (m *Manager) EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...EnqueueOption) (*JobHandle, error) {
	if _, ok := m.registry.get(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return m.Enqueuer.EnqueueTx(ctx, tx, name, payload, opts...)
}

// taskArgs is the River job arguments type for all linkmint tasks.
// It uses a unified format with task name and JSON payload. Key carries the
// deterministic job identity and is the only field River hashes for
// uniqueness checks.
type taskArgs struct {
	Task    string          `json:"task"`
	Key     string          `json:"key,omitempty" river:"unique"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (taskArgs) Kind() string {
	return "linkmint:task"
}

// taskWorker processes all linkmint tasks through the registry.
type taskWorker struct {
	river.WorkerDefaults[taskArgs]
	registry  *taskRegistry
	observers []Observer
	logger    *slog.Logger
}

func (w *taskWorker) Work(ctx context.Context, job *river.Job[taskArgs]) error {
	executor, ok := w.registry.get(job.Args.Task)
	if !ok || executor == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, job.Args.Task)
	}

	meta := JobMeta{
		JobID:       job.ID,
		Key:         job.Args.Key,
		Task:        job.Args.Task,
		Queue:       job.Queue,
		Attempt:     job.Attempt,
		MaxAttempts: job.MaxAttempts,
	}
	ctx = withJobMeta(ctx, meta)

	for _, o := range w.observers {
		o.JobStarted(ctx, meta)
	}

	if err := executor.Execute(ctx, job.Args.Payload); err != nil {
		final := job.Attempt >= job.MaxAttempts
		for _, o := range w.observers {
			o.JobFailed(ctx, meta, err, final)
		}
		return err
	}

	for _, o := range w.observers {
		o.JobCompleted(ctx, meta)
	}

	return nil
}

type scheduledTaskExecutor struct {
	handler scheduledHandler
}

func (e *scheduledTaskExecutor) Execute(ctx context.Context, _ json.RawMessage) error {
	return e.handler(ctx)
}

type cronScheduleAdapter struct {
	schedule cron.Schedule
}

func (a *cronScheduleAdapter) Next(current time.Time) time.Time {
	return a.schedule.Next(current)
}

func parseCronSchedule(expr string) (river.PeriodicSchedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &cronScheduleAdapter{schedule: schedule}, nil
}

// Shutdown returns a shutdown function for the job manager.
func (m *Manager) Shutdown() func(context.Context) error {
	return func(ctx context.Context) error {
		return m.Stop(ctx)
	}
}

// nonTerminalStates are the states a unique key blocks resubmission in.
// Completed, cancelled and discarded jobs never block a new submission with
// the same key.
var nonTerminalStates = []rivertype.JobState{
	rivertype.JobStateAvailable,
	rivertype.JobStatePending,
	rivertype.JobStateRetryable,
	rivertype.JobStateRunning,
	rivertype.JobStateScheduled,
}
