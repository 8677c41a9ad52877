package queue

import "time"

// enqueueConfig holds options for enqueueing a job.
type enqueueConfig struct {
	scheduledAt *time.Time
	queue       string
	key         string
	tags        []string
	maxAttempts int
	priority    int
}

// EnqueueOption configures job enqueueing.
type EnqueueOption func(*enqueueConfig)

// InQueue specifies which queue to use for the job.
// If not specified, the default queue is used.
func InQueue(name string) EnqueueOption {
	return func(c *enqueueConfig) {
		if name != "" {
			c.queue = name
		}
	}
}

// At schedules the job to run at a specific time.
// A time in the past makes the job immediately runnable; it is never an
// error.
func At(t time.Time) EnqueueOption {
	return func(c *enqueueConfig) {
		c.scheduledAt = &t
	}
}

// In schedules the job to run after a duration.
func In(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		t := time.Now().Add(d)
		c.scheduledAt = &t
	}
}

// MaxAttempts overrides the default maximum number of attempts (3) for the
// job.
func MaxAttempts(n int) EnqueueOption {
	return func(c *enqueueConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithKey sets the job's deterministic identity. While a job with the same
// key is still pending, retryable, or running, enqueueing again is a no-op
// that returns the existing job's handle. Completed, cancelled, and discarded
// jobs never block a new submission.
//
// Example:
//
//	m.Enqueue(ctx, "generate_article", payload,
//	    queue.WithKey("generate:"+orderID))
func WithKey(key string) EnqueueOption {
	return func(c *enqueueConfig) {
		c.key = key
	}
}

// Priority sets the job priority in the range 1-4. Lower numbers are worked
// first: a priority-1 job is dispatched before a priority-2 job waiting on
// the same queue. Defaults to River's default (1) if not set.
func Priority(p int) EnqueueOption {
	return func(c *enqueueConfig) {
		if p > 0 {
			c.priority = p
		}
	}
}

// Tags adds metadata tags to the job.
// Tags can be used for filtering, monitoring, and debugging.
func Tags(tags ...string) EnqueueOption {
	return func(c *enqueueConfig) {
		c.tags = append(c.tags, tags...)
	}
}

// CapturedOptions is the resolved view of a set of enqueue options. Fakes
// standing in for the manager use it to assert what callers asked for
// without reimplementing option handling.
type CapturedOptions struct {
	Queue       string
	Key         string
	Tags        []string
	MaxAttempts int
	Priority    int
	ScheduledAt *time.Time
}

// CaptureOptions applies the options to an empty config and returns the
// resolved values.
func CaptureOptions(opts ...EnqueueOption) CapturedOptions {
	cfg := &enqueueConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return CapturedOptions{
		Queue:       cfg.queue,
		Key:         cfg.key,
		Tags:        cfg.tags,
		MaxAttempts: cfg.maxAttempts,
		Priority:    cfg.priority,
		ScheduledAt: cfg.scheduledAt,
	}
}
