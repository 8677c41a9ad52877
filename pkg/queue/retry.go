package queue

import (
	"time"

	"github.com/riverqueue/river/rivertype"
)

const retryBase = 2 * time.Second

// retryPolicy retries failed jobs with exponential backoff starting at 2s:
// attempt 1 retries after 2s, attempt 2 after 4s, attempt 3 after 8s.
// With the default of 3 attempts a job is discarded after roughly 14s of
// total backoff.
type retryPolicy struct{}

// NextRetry implements river.ClientRetryPolicy.
func (retryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	return time.Now().Add(backoffForAttempt(job.Attempt))
}

func backoffForAttempt(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Cap the shift so a rescued job with a runaway attempt counter cannot
	// overflow into a negative duration.
	if attempt > 16 {
		attempt = 16
	}
	return retryBase << (attempt - 1)
}
