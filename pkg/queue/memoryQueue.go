package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MemoryQueue is the in-process transport. It implements the full contract
// (backoff redelivery, attempt caps, dead-lettering, bounded retention) and
// backs single-binary deployments and the test suite. Durability is limited to
// the process lifetime.
type MemoryQueue struct {
	mu        sync.Mutex
	queues    map[string]chan *Job
	consuming map[string]bool
	completed []*Job
	dead      []*Job
	deadCh    chan *Job
	closed    bool
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		queues:    make(map[string]chan *Job),
		consuming: make(map[string]bool),
		deadCh:    make(chan *Job, retention),
	}
}

func (q *MemoryQueue) channelFor(name string) chan *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.queues[name]
	if !ok {
		ch = make(chan *Job, 1024)
		q.queues[name] = ch
	}
	return ch
}

func (q *MemoryQueue) Enqueue(ctx context.Context, name string, payload []byte, opts EnqueueOptions) (string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", fmt.Errorf("queue is closed")
	}
	q.mu.Unlock()

	opts = opts.withDefaults()
	job := &Job{
		ID:          uuid.New().String(),
		Name:        name,
		Payload:     payload,
		Attempt:     0,
		MaxAttempts: opts.MaxAttempts,
		Backoff:     opts.Backoff,
		Headers:     opts.Headers,
		EnqueuedAt:  time.Now(),
	}

	q.schedule(job, opts.Delay)
	return job.ID, nil
}

func (q *MemoryQueue) schedule(job *Job, delay time.Duration) {
	if delay <= 0 {
		q.push(job)
		return
	}
	time.AfterFunc(delay, func() { q.push(job) })
}

func (q *MemoryQueue) push(job *Job) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	ch := q.channelFor(job.Name)
	select {
	case ch <- job:
	default:
		// Buffer full; hand off without blocking the scheduler.
		go func() { ch <- job }()
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, name string, handler Handler, opts ConsumeOptions) error {
	q.mu.Lock()
	if q.consuming[name] {
		q.mu.Unlock()
		return fmt.Errorf("already consuming %q", name)
	}
	q.consuming[name] = true
	q.mu.Unlock()

	opts = opts.withDefaults()
	ch := q.channelFor(name)
	for i := 0; i < opts.Concurrency; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-ch:
					q.process(ctx, job, handler, opts)
				}
			}
		}()
	}
	return nil
}

func (q *MemoryQueue) process(ctx context.Context, job *Job, handler Handler, opts ConsumeOptions) {
	job.Attempt++

	jobCtx, cancel := context.WithTimeout(ctx, opts.JobTimeout)
	err := handler(jobCtx, job)
	cancel()

	if err == nil {
		q.retain(&q.completed, job)
		return
	}

	if job.Attempt >= job.MaxAttempts {
		job.LastError = err.Error()
		logrus.WithError(err).WithFields(logrus.Fields{
			"job":     job.Name,
			"jobId":   job.ID,
			"attempt": job.Attempt,
		}).Error("job exhausted attempts, dead-lettering")
		q.retain(&q.dead, job)
		select {
		case q.deadCh <- job:
		default:
		}
		return
	}

	delay := backoffDelay(job.Backoff, job.Attempt)
	logrus.WithError(err).WithFields(logrus.Fields{
		"job":     job.Name,
		"jobId":   job.ID,
		"attempt": job.Attempt,
		"delay":   delay,
	}).Warn("job failed, scheduling redelivery")
	time.AfterFunc(delay, func() { q.push(job) })
}

func (q *MemoryQueue) retain(list *[]*Job, job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	*list = append(*list, job)
	if len(*list) > retention {
		*list = (*list)[len(*list)-retention:]
	}
}

func (q *MemoryQueue) DeadLetters() <-chan *Job {
	return q.deadCh
}

// Dead returns the retained dead-lettered jobs, newest last.
func (q *MemoryQueue) Dead() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Job, len(q.dead))
	copy(out, q.dead)
	return out
}

// Completed returns the retained completed jobs, newest last.
func (q *MemoryQueue) Completed() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Job, len(q.completed))
	copy(out, q.completed)
	return out
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
