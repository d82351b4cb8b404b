package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zoff-tech/go-crosspost/pkg/platform"
	"github.com/zoff-tech/go-crosspost/pkg/queue"
)

func TestSupervisor_CountsDeadLetters(t *testing.T) {
	q := queue.NewMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewPublishWorker(newFakeStore(), platform.NewRegistryWith(), testCredentials())
	s := NewSupervisor(q, w)
	go s.Run(ctx)

	err := q.Consume(ctx, "doomed-job", func(ctx context.Context, job *queue.Job) error {
		return errors.New("permanent failure")
	}, queue.ConsumeOptions{})
	assert.NoError(t, err)

	_, err = q.Enqueue(ctx, "doomed-job", []byte(`{}`), queue.EnqueueOptions{
		MaxAttempts: 1,
		Backoff:     time.Millisecond,
	})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return s.DeadLettered() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, s.Passes())
}

func TestSupervisor_CountsPasses(t *testing.T) {
	q := queue.NewMemoryQueue()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomes := newFakeStore(testPost("linkedin"))
	registry := platform.NewRegistryWith(
		&fakeAdapter{kind: platform.KindLinkedIn, result: platform.PublishResult{Success: true, PostID: "urn:li:share:1"}},
	)
	w := NewPublishWorker(outcomes, registry, testCredentials())

	s := NewSupervisor(q, w)
	go s.Run(ctx)

	assert.NoError(t, w.Handle(ctx, publishJob()))

	assert.Eventually(t, func() bool {
		return s.Passes() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, s.DeadLettered())
}
