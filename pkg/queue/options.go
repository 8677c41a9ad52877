package queue

import (
	"context"
	"log/slog"
	"time"
)

// config holds job manager configuration.
type config struct {
	registry    *taskRegistry
	queues      map[string]int
	logger      *slog.Logger
	schedules   []scheduleConfig
	observers   []Observer
	maxWorkers  int
	jobTimeout  time.Duration
	rescueAfter time.Duration
}

// newConfig creates a config with defaults.
func newConfig() *config {
	return &config{
		registry:    newTaskRegistry(),
		queues:      make(map[string]int),
		maxWorkers:  defaultMaxWorkers,
		jobTimeout:  defaultJobTimeout,
		rescueAfter: defaultRescueAfter,
	}
}

// scheduleConfig holds scheduled task configuration.
type scheduleConfig struct {
	handler  scheduledHandler
	name     string
	schedule string
	queue    string
}

// scheduledHandler is a function type for scheduled task handlers.
type scheduledHandler func(context.Context) error

// Option configures the job manager.
type Option func(*config)

// WithTask registers a task handler using structural typing.
// The task must implement Name() and Handle(ctx, P) methods.
// The payload type P is inferred from the Handle method signature.
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		wrapper := newTaskWrapper[P, T](task)
		c.registry.register(task.Name(), wrapper)
	}
}

// WithScheduledTask registers a periodic task using structural typing.
// The task must implement Name(), Schedule(), and Handle(ctx) methods.
// Schedule() should return a cron expression (5 fields: min hour day month
// weekday). The optional queue name routes the periodic job onto a specific
// queue.
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T, queueName string) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, scheduleConfig{
			name:     task.Name(),
			schedule: task.Schedule(),
			handler:  task.Handle,
			queue:    queueName,
		})
	}
}

// WithQueue configures a named queue with the specified number of workers.
// A queue with one worker serializes its jobs system-wide.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithObserver registers an observer for job lifecycle events.
// Observers are invoked synchronously around job execution and must not
// mutate domain state.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithLogger sets the logger for job processing.
// If not set, a noop logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers sets the worker count for the default queue.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithJobTimeout caps how long a single job attempt may run.
// Generation jobs can legitimately take minutes; the default is 15m.
func WithJobTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.jobTimeout = d
		}
	}
}

// WithRescueAfter sets the stall watchdog: jobs still marked running after
// this long are assumed stuck (crashed worker) and requeued, consuming one
// attempt.
func WithRescueAfter(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.rescueAfter = d
		}
	}
}
