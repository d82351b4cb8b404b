package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryQueue_DeliverAndComplete(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var delivered atomic.Int32
	err := q.Consume(ctx, "test-job", func(ctx context.Context, job *Job) error {
		assert.Equal(t, "test-job", job.Name)
		assert.Equal(t, []byte(`{"post_id":"post-1"}`), job.Payload)
		assert.Equal(t, 1, job.Attempt)
		delivered.Add(1)
		return nil
	}, ConsumeOptions{})
	assert.NoError(t, err)

	id, err := q.Enqueue(ctx, "test-job", []byte(`{"post_id":"post-1"}`), EnqueueOptions{})
	assert.NoError(t, err)
	assert.NotEmpty(t, id)

	assert.Eventually(t, func() bool {
		return delivered.Load() == 1 && len(q.Completed()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryQueue_RetriesUntilSuccess(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	err := q.Consume(ctx, "flaky-job", func(ctx context.Context, job *Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient failure")
		}
		return nil
	}, ConsumeOptions{})
	assert.NoError(t, err)

	_, err = q.Enqueue(ctx, "flaky-job", []byte(`{}`), EnqueueOptions{
		MaxAttempts: 5,
		Backoff:     time.Millisecond,
	})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(q.Completed()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(3), attempts.Load())
	assert.Empty(t, q.Dead())
}

func TestMemoryQueue_DeadLettersAfterExhaustion(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	err := q.Consume(ctx, "doomed-job", func(ctx context.Context, job *Job) error {
		attempts.Add(1)
		return errors.New("permanent failure")
	}, ConsumeOptions{})
	assert.NoError(t, err)

	_, err = q.Enqueue(ctx, "doomed-job", []byte(`{}`), EnqueueOptions{
		MaxAttempts: 2,
		Backoff:     time.Millisecond,
	})
	assert.NoError(t, err)

	select {
	case job := <-q.DeadLetters():
		assert.Equal(t, "doomed-job", job.Name)
		assert.Equal(t, 2, job.Attempt)
		assert.Equal(t, "permanent failure", job.LastError)
	case <-time.After(time.Second):
		t.Fatal("expected a dead-lettered job")
	}

	assert.Equal(t, int32(2), attempts.Load())
	assert.Len(t, q.Dead(), 1)
	assert.Empty(t, q.Completed())
}

func TestMemoryQueue_DelayedDelivery(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deliveredAt atomic.Int64
	err := q.Consume(ctx, "delayed-job", func(ctx context.Context, job *Job) error {
		deliveredAt.Store(time.Now().UnixNano())
		return nil
	}, ConsumeOptions{})
	assert.NoError(t, err)

	enqueuedAt := time.Now()
	_, err = q.Enqueue(ctx, "delayed-job", []byte(`{}`), EnqueueOptions{
		Delay: 50 * time.Millisecond,
	})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return deliveredAt.Load() != 0
	}, time.Second, 5*time.Millisecond)

	elapsed := time.Duration(deliveredAt.Load() - enqueuedAt.UnixNano())
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestMemoryQueue_DuplicateConsumer(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(ctx context.Context, job *Job) error { return nil }

	assert.NoError(t, q.Consume(ctx, "some-job", handler, ConsumeOptions{}))
	assert.Error(t, q.Consume(ctx, "some-job", handler, ConsumeOptions{}))
}

func TestMemoryQueue_EnqueueAfterClose(t *testing.T) {
	q := NewMemoryQueue()
	assert.NoError(t, q.Close())

	_, err := q.Enqueue(context.Background(), "test-job", []byte(`{}`), EnqueueOptions{})
	assert.Error(t, err)
}
