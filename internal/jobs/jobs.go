// Package jobs is a small durable work queue backed by the background_jobs
// table. Handlers are keyed by job type; failures retry with exponential
// backoff and land in dead_letter_jobs after MaxAttempts.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusRetry   = "retry"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job represents a background job
type Job struct {
	ID          string  `json:"id" db:"id"`
	Type        string  `json:"type" db:"type"`
	Payload     RawJSON `json:"payload" db:"payload"`
	Status      string  `json:"status" db:"status"`
	Attempts    int     `json:"attempts" db:"attempts"`
	MaxAttempts int     `json:"max_attempts" db:"max_attempts"`
	Priority    int     `json:"priority" db:"priority"`
	ScheduledAt int64   `json:"scheduled_at" db:"scheduled_at"`
	NextTryAt   *int64  `json:"next_try_at,omitempty" db:"next_try_at"`
	LastError   *string `json:"last_error,omitempty" db:"last_error"`
	Created     int64   `json:"created_at" db:"created_at"`
	Updated     int64   `json:"updated_at" db:"updated_at"`
}

// DeadLetter is a job that exhausted its attempts or had no handler.
type DeadLetter struct {
	ID        string  `json:"id" db:"id"`
	JobID     string  `json:"job_id" db:"job_id"`
	Type      string  `json:"type" db:"type"`
	Payload   RawJSON `json:"payload" db:"payload"`
	Attempts  int     `json:"attempts" db:"attempts"`
	LastError *string `json:"last_error,omitempty" db:"last_error"`
	FailedAt  int64   `json:"failed_at" db:"failed_at"`
}

// RawJSON is a JSON document stored in a TEXT column.
type RawJSON []byte

func (r *RawJSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case string:
		*r = RawJSON(v)
	case []byte:
		*r = append(RawJSON(nil), v...)
	default:
		return fmt.Errorf("unsupported payload column type %T", src)
	}
	return nil
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// Handler is the function that processes a job
type Handler func(ctx context.Context, j *Job) error

// Enqueuer is what producers depend on.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (string, error)
}

// ErrMaxAttempts indicates the job reached max attempts
var ErrMaxAttempts = errors.New("max attempts reached")

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt > 16 {
		attempt = 16
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	max := 5 * time.Minute
	if d > max {
		return max
	}
	return d
}
