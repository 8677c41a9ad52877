package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

// JobHandle describes a job accepted by the queue store.
type JobHandle struct {
	// JobID is the queue store's identifier for the job row.
	JobID int64
	// Key is the deterministic identity the job was enqueued with, if any.
	Key string
	// Queue the job was placed on.
	Queue string
	// State of the job at insert time (scheduled, available, ...).
	State rivertype.JobState
	// ScheduledAt is when the job becomes runnable.
	ScheduledAt time.Time
	// Duplicate reports that an equivalent job with the same key was still
	// pending or running, so the insert was skipped and this handle refers
	// to the existing job.
	Duplicate bool
}

func handleFromInsert(res *rivertype.JobInsertResult, key string) *JobHandle {
	return &JobHandle{
		JobID:       res.Job.ID,
		Key:         key,
		Queue:       res.Job.Queue,
		State:       res.Job.State,
		ScheduledAt: res.Job.ScheduledAt,
		Duplicate:   res.UniqueSkippedAsDuplicate,
	}
}

// Enqueuer provides job enqueueing without worker processing.
// Use this for processes that only dispatch jobs to be processed
// by a separate worker (e.g. the HTTP API).
type Enqueuer struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	logger *slog.Logger
}

// EnqueuerOption configures the enqueuer.
type EnqueuerOption func(*enqueuerConfig)

type enqueuerConfig struct {
	logger *slog.Logger
}

// WithEnqueuerLogger sets the logger for the enqueuer.
func WithEnqueuerLogger(l *slog.Logger) EnqueuerOption {
	return func(c *enqueuerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewEnqueuer creates a new enqueue-only client.
// The River client is created in insert-only mode (no workers).
func NewEnqueuer(pool *pgxpool.Pool, opts ...EnqueuerOption) (*Enqueuer, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := &enqueuerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger:      cfg.logger,
		MaxAttempts: defaultMaxAttempts,
		RetryPolicy: &retryPolicy{},
	})
	if err != nil {
		return nil, fmt.Errorf("queue: create enqueuer client: %w", err)
	}

	return &Enqueuer{
		pool:   pool,
		client: client,
		logger: cfg.logger,
	}, nil
}

// Enqueue adds a job to the queue for processing by workers.
// Task name validation happens on the worker side.
func (e *Enqueuer) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) (*JobHandle, error) {
	args, insertOpts, err := buildJobArgs(name, payload, opts...)
	if err != nil {
		return nil, err
	}

	res, err := e.client.Insert(ctx, args, insertOpts)
	if err != nil {
		return nil, fmt.Errorf("queue: enqueue: %w", err)
	}

	return handleFromInsert(res, args.Key), nil
}

// EnqueueTx adds a job to the queue within a transaction.
// The job is only visible after the transaction commits. This ensures
// atomicity between database changes and job enqueueing.
func (e *Enqueuer) EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...EnqueueOption) (*JobHandle, error) {
	args, insertOpts, err := buildJobArgs(name, payload, opts...)
	if err != nil {
		return nil, err
	}

	res, err := e.client.InsertTx(ctx, tx, args, insertOpts)
	if err != nil {
		return nil, fmt.Errorf("queue: enqueue tx: %w", err)
	}

	return handleFromInsert(res, args.Key), nil
}

// buildJobArgs creates River job arguments from the task name and payload.
// This is shared between Enqueuer and Manager.
func buildJobArgs(name string, payload any, opts ...EnqueueOption) (*taskArgs, *river.InsertOpts, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("queue: marshal payload: %w", err)
		}
	}

	enqCfg := &enqueueConfig{}
	for _, opt := range opts {
		opt(enqCfg)
	}

	args := &taskArgs{
		Task:    name,
		Key:     enqCfg.key,
		Payload: payloadBytes,
	}

	return args, buildInsertOpts(enqCfg), nil
}

func buildInsertOpts(cfg *enqueueConfig) *river.InsertOpts {
	insertOpts := &river.InsertOpts{}
	if cfg.queue != "" {
		insertOpts.Queue = cfg.queue
	}
	if cfg.scheduledAt != nil {
		// A fire time in the past is deliberately allowed: River inserts the
		// job as immediately available, which is the catch-up behavior
		// reconciliation relies on after outages.
		insertOpts.ScheduledAt = *cfg.scheduledAt
	}
	if cfg.maxAttempts > 0 {
		insertOpts.MaxAttempts = cfg.maxAttempts
	}
	if cfg.priority > 0 {
		insertOpts.Priority = cfg.priority
	}
	if len(cfg.tags) > 0 {
		insertOpts.Tags = cfg.tags
	}
	if cfg.key != "" {
		insertOpts.UniqueOpts = river.UniqueOpts{
			ByArgs:  true,
			ByState: nonTerminalStates,
		}
	}
	return insertOpts
}
