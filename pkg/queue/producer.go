package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

// Producer is the enqueue API consumed by the scheduling feature. It applies
// the per-job-name retry policy so callers only pass identifiers.
type Producer struct {
	queue JobQueue
	cfg   config.WorkerSettings
}

func NewProducer(queue JobQueue, cfg config.WorkerSettings) *Producer {
	return &Producer{queue: queue, cfg: cfg.WithDefaults()}
}

// EnqueuePublishJob schedules a publish pass for the scheduled post.
func (p *Producer) EnqueuePublishJob(ctx context.Context, postID string) (string, error) {
	payload, err := json.Marshal(PublishJob{PostID: postID})
	if err != nil {
		return "", err
	}
	return p.queue.Enqueue(ctx, JobPublishPosts, payload, EnqueueOptions{
		MaxAttempts: p.cfg.PublishMaxAttempts,
		Backoff:     p.cfg.PublishBackoff,
	})
}

// EnqueueMetricsJob schedules an engagement-metrics pull for one platform
// entry of an already-published post, after the given delay.
func (p *Producer) EnqueueMetricsJob(ctx context.Context, postID, platform, remotePostID string, delay time.Duration) (string, error) {
	payload, err := json.Marshal(MetricsJob{PostID: postID, Platform: platform, RemotePostID: remotePostID})
	if err != nil {
		return "", err
	}
	return p.queue.Enqueue(ctx, JobCollectMetrics, payload, EnqueueOptions{
		MaxAttempts: p.cfg.MetricsMaxAttempts,
		Backoff:     p.cfg.MetricsBackoff,
		Delay:       delay,
	})
}
