package queue

import (
	"context"
	"time"
)

// Handler processes one delivered job. A nil return acknowledges the job; an
// error schedules a redelivery after backoff, or dead-letters the job once its
// attempts are exhausted.
type Handler func(ctx context.Context, job *Job) error

// EnqueueOptions control retry policy and scheduling for one job.
type EnqueueOptions struct {
	// MaxAttempts caps deliveries of the job (default 3).
	MaxAttempts int
	// Backoff is the initial redelivery delay; it doubles per failed attempt
	// (default 2s).
	Backoff time.Duration
	// Delay postpones the first delivery.
	Delay time.Duration
	// Headers are carried opaquely to the handler (trace propagation).
	Headers map[string]string
}

func (o EnqueueOptions) withDefaults() EnqueueOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// ConsumeOptions control job processing for one consumer.
type ConsumeOptions struct {
	// Concurrency bounds parallel handler invocations (default 1).
	Concurrency int
	// JobTimeout cancels the handler context after the given duration; the
	// timed-out delivery counts as a failed attempt (default 60s).
	JobTimeout time.Duration
}

func (o ConsumeOptions) withDefaults() ConsumeOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 60 * time.Second
	}
	return o
}

// JobQueue is a durable, at-least-once job channel keyed by job name. A job
// may be delivered more than once; handlers must tolerate duplicates.
type JobQueue interface {
	// Enqueue schedules a job and returns its id immediately; it never blocks
	// on job execution.
	Enqueue(ctx context.Context, name string, payload []byte, opts EnqueueOptions) (string, error)
	// Consume starts processing jobs of the given name. It returns once the
	// consumer is running; processing stops when ctx is canceled.
	Consume(ctx context.Context, name string, handler Handler, opts ConsumeOptions) error
	// DeadLetters exposes jobs that exhausted their attempts. The channel is
	// drained by the supervisor; sends never block and may be dropped if the
	// supervisor lags (the transport's dead-letter destination is the durable
	// copy).
	DeadLetters() <-chan *Job
	// Close releases transport resources.
	Close() error
}

// retention bounds how many completed and dead jobs a transport keeps in
// memory for observability. The publish log is the audit trail of record.
const retention = 100
