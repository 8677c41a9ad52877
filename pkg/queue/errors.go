package queue

import "errors"

// Queue errors.
var (
	// ErrUnknownTask is returned when attempting to enqueue or execute a task
	// that has not been registered.
	ErrUnknownTask = errors.New("queue: unknown task")

	// ErrInvalidPayload is returned when a task payload cannot be
	// unmarshaled into the expected type.
	ErrInvalidPayload = errors.New("queue: invalid payload")

	// ErrAlreadyStarted is returned when attempting to start a manager
	// that is already running.
	ErrAlreadyStarted = errors.New("queue: already started")

	// ErrNotStarted is returned when attempting to stop a manager
	// that is not running.
	ErrNotStarted = errors.New("queue: not started")

	// ErrPoolRequired is returned when attempting to create a manager
	// without providing a database pool.
	ErrPoolRequired = errors.New("queue: pool is required")

	// ErrJobNotFound is returned when a job id does not exist in the store.
	ErrJobNotFound = errors.New("queue: job not found")
)
