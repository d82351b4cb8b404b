package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zoff-tech/go-crosspost/pkg/config"
)

type recordingQueue struct {
	name    string
	payload []byte
	opts    EnqueueOptions
}

func (r *recordingQueue) Enqueue(ctx context.Context, name string, payload []byte, opts EnqueueOptions) (string, error) {
	r.name = name
	r.payload = payload
	r.opts = opts
	return "job-1", nil
}

func (r *recordingQueue) Consume(ctx context.Context, name string, handler Handler, opts ConsumeOptions) error {
	return nil
}

func (r *recordingQueue) DeadLetters() <-chan *Job { return nil }

func (r *recordingQueue) Close() error { return nil }

func TestEnqueuePublishJob(t *testing.T) {
	q := &recordingQueue{}
	p := NewProducer(q, config.WorkerSettings{
		PublishMaxAttempts: 4,
		PublishBackoff:     3 * time.Second,
	})

	ctx := context.Background()
	id, err := p.EnqueuePublishJob(ctx, "post-1")
	assert.NoError(t, err)
	assert.Equal(t, "job-1", id)

	assert.Equal(t, JobPublishPosts, q.name)
	assert.JSONEq(t, `{"post_id":"post-1"}`, string(q.payload))
	assert.Equal(t, 4, q.opts.MaxAttempts)
	assert.Equal(t, 3*time.Second, q.opts.Backoff)
	assert.Zero(t, q.opts.Delay)
}

func TestEnqueueMetricsJob(t *testing.T) {
	q := &recordingQueue{}
	p := NewProducer(q, config.WorkerSettings{})

	ctx := context.Background()
	id, err := p.EnqueueMetricsJob(ctx, "post-1", "twitter", "1801", 15*time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, "job-1", id)

	assert.Equal(t, JobCollectMetrics, q.name)
	assert.JSONEq(t, `{"post_id":"post-1","platform":"twitter","remote_post_id":"1801"}`, string(q.payload))
	assert.Equal(t, 2, q.opts.MaxAttempts)
	assert.Equal(t, 5*time.Second, q.opts.Backoff)
	assert.Equal(t, 15*time.Minute, q.opts.Delay)
}
