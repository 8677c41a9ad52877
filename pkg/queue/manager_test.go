package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_NilPool(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil)
	assert.ErrorIs(t, err, ErrPoolRequired)
}

func TestParseCronSchedule_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
	}{
		{name: "every minute", expr: "* * * * *"},
		{name: "every hour", expr: "0 * * * *"},
		{name: "daily at 3am", expr: "0 3 * * *"},
		{name: "weekly on Sunday", expr: "0 0 * * 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			schedule, err := parseCronSchedule(tt.expr)
			require.NoError(t, err)

			now := time.Now()
			assert.True(t, schedule.Next(now).After(now))
		})
	}
}

func TestParseCronSchedule_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
	}{
		{name: "empty", expr: ""},
		{name: "too few fields", expr: "* * *"},
		{name: "six fields", expr: "* * * * * *"},
		{name: "garbage", expr: "not a cron expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parseCronSchedule(tt.expr)
			assert.Error(t, err)
		})
	}
}

type recordingObserver struct {
	started   []JobMeta
	completed []JobMeta
	failed    []JobMeta
	finals    []bool
}

func (o *recordingObserver) JobStarted(_ context.Context, meta JobMeta)   { o.started = append(o.started, meta) }
func (o *recordingObserver) JobCompleted(_ context.Context, meta JobMeta) { o.completed = append(o.completed, meta) }
func (o *recordingObserver) JobFailed(_ context.Context, meta JobMeta, _ error, final bool) {
	o.failed = append(o.failed, meta)
	o.finals = append(o.finals, final)
}

type workerTestTask struct {
	err     error
	gotMeta JobMeta
	metaOK  bool
}

func (t *workerTestTask) Name() string { return "worker_test" }

func (t *workerTestTask) Handle(ctx context.Context, _ struct{}) error {
	t.gotMeta, t.metaOK = MetaFromContext(ctx)
	return t.err
}

func newTestWorker(task *workerTestTask, obs Observer) *taskWorker {
	registry := newTaskRegistry()
	registry.register(task.Name(), newTaskWrapper[struct{}](task))
	w := &taskWorker{
		registry: registry,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if obs != nil {
		w.observers = []Observer{obs}
	}
	return w
}

func makeRiverJob(task, key string, attempt, maxAttempts int) *river.Job[taskArgs] {
	return &river.Job[taskArgs]{
		JobRow: &rivertype.JobRow{
			ID:          42,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
			Queue:       "test",
		},
		Args: taskArgs{Task: task, Key: key},
	}
}

func TestTaskWorker_ObserversAndMeta(t *testing.T) {
	t.Parallel()

	t.Run("success notifies completed", func(t *testing.T) {
		t.Parallel()

		task := &workerTestTask{}
		obs := &recordingObserver{}
		w := newTestWorker(task, obs)

		job := makeRiverJob("worker_test", "generate:o1", 1, 3)
		require.NoError(t, w.Work(context.Background(), job))

		require.Len(t, obs.started, 1)
		require.Len(t, obs.completed, 1)
		assert.Empty(t, obs.failed)

		require.True(t, task.metaOK, "handler should see job meta in context")
		assert.Equal(t, "generate:o1", task.gotMeta.Key)
		assert.Equal(t, 1, task.gotMeta.Attempt)
		assert.False(t, task.gotMeta.FinalAttempt())
	})

	t.Run("failure on last attempt is final", func(t *testing.T) {
		t.Parallel()

		task := &workerTestTask{err: errors.New("boom")}
		obs := &recordingObserver{}
		w := newTestWorker(task, obs)

		job := makeRiverJob("worker_test", "", 3, 3)
		require.Error(t, w.Work(context.Background(), job))

		require.Len(t, obs.failed, 1)
		assert.True(t, obs.finals[0])
		assert.True(t, task.gotMeta.FinalAttempt())
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()

		w := newTestWorker(&workerTestTask{}, nil)

		job := makeRiverJob("nope", "", 1, 3)
		assert.ErrorIs(t, w.Work(context.Background(), job), ErrUnknownTask)
	})
}

func TestErrors(t *testing.T) {
	t.Parallel()

	assert.Contains(t, ErrUnknownTask.Error(), "unknown task")
	assert.Contains(t, ErrInvalidPayload.Error(), "invalid payload")
	assert.Contains(t, ErrAlreadyStarted.Error(), "already started")
	assert.Contains(t, ErrNotStarted.Error(), "not started")
	assert.Contains(t, ErrJobNotFound.Error(), "not found")
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTerminal(rivertype.JobStateCompleted))
	assert.True(t, IsTerminal(rivertype.JobStateCancelled))
	assert.True(t, IsTerminal(rivertype.JobStateDiscarded))
	assert.False(t, IsTerminal(rivertype.JobStateScheduled))
	assert.False(t, IsTerminal(rivertype.JobStateAvailable))
	assert.False(t, IsTerminal(rivertype.JobStateRunning))
	assert.False(t, IsTerminal(rivertype.JobStateRetryable))
}
