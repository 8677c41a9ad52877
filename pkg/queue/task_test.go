package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wrapperTestPayload struct {
	Value string `json:"value"`
}

type wrapperTestTask struct {
	got wrapperTestPayload
	err error
}

func (t *wrapperTestTask) Name() string { return "wrapper_test" }

func (t *wrapperTestTask) Handle(_ context.Context, p wrapperTestPayload) error {
	t.got = p
	return t.err
}

func TestTaskWrapper_Execute(t *testing.T) {
	t.Parallel()

	t.Run("decodes payload", func(t *testing.T) {
		t.Parallel()

		task := &wrapperTestTask{}
		w := newTaskWrapper[wrapperTestPayload](task)

		raw, err := json.Marshal(wrapperTestPayload{Value: "hello"})
		require.NoError(t, err)

		require.NoError(t, w.Execute(context.Background(), raw))
		assert.Equal(t, "hello", task.got.Value)
	})

	t.Run("empty payload yields zero value", func(t *testing.T) {
		t.Parallel()

		task := &wrapperTestTask{}
		w := newTaskWrapper[wrapperTestPayload](task)

		require.NoError(t, w.Execute(context.Background(), nil))
		assert.Empty(t, task.got.Value)
	})

	t.Run("invalid payload", func(t *testing.T) {
		t.Parallel()

		task := &wrapperTestTask{}
		w := newTaskWrapper[wrapperTestPayload](task)

		err := w.Execute(context.Background(), json.RawMessage(`{not json`))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("handler error propagates", func(t *testing.T) {
		t.Parallel()

		want := errors.New("handler failed")
		task := &wrapperTestTask{err: want}
		w := newTaskWrapper[wrapperTestPayload](task)

		assert.ErrorIs(t, w.Execute(context.Background(), nil), want)
	})
}

func TestTaskRegistry(t *testing.T) {
	t.Parallel()

	registry := newTaskRegistry()

	_, ok := registry.get("missing")
	assert.False(t, ok)

	task := &wrapperTestTask{}
	registry.register(task.Name(), newTaskWrapper[wrapperTestPayload](task))

	executor, ok := registry.get("wrapper_test")
	assert.True(t, ok)
	assert.NotNil(t, executor)
	assert.Contains(t, registry.names(), "wrapper_test")
}

func TestWithTaskOption(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	WithTask[wrapperTestPayload](&wrapperTestTask{})(cfg)

	_, ok := cfg.registry.get("wrapper_test")
	assert.True(t, ok)
}

type scheduledOptionTask struct{}

func (scheduledOptionTask) Name() string                      { return "sweep" }
func (scheduledOptionTask) Schedule() string                  { return "0 3 * * *" }
func (scheduledOptionTask) Handle(_ context.Context) error    { return nil }

func TestWithScheduledTaskOption(t *testing.T) {
	t.Parallel()

	cfg := newConfig()
	WithScheduledTask(scheduledOptionTask{}, "maintenance")(cfg)

	require.Len(t, cfg.schedules, 1)
	assert.Equal(t, "sweep", cfg.schedules[0].name)
	assert.Equal(t, "0 3 * * *", cfg.schedules[0].schedule)
	assert.Equal(t, "maintenance", cfg.schedules[0].queue)
	assert.NotNil(t, cfg.schedules[0].handler)
}

func TestWithQueueOption(t *testing.T) {
	t.Parallel()

	cfg := newConfig()

	WithQueue("generation", 1)(cfg)
	assert.Equal(t, 1, cfg.queues["generation"])

	WithQueue("bogus", 0)(cfg)
	_, ok := cfg.queues["bogus"]
	assert.False(t, ok, "queue with 0 workers should not be added")
}
