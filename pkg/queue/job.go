package queue

import (
	"encoding/json"
	"time"
)

// Job names understood by the pipeline workers.
const (
	JobPublishPosts   = "publish-posts"
	JobCollectMetrics = "collect-metrics"
)

// PublishJob asks the publish worker to fan one scheduled post out to its
// target platforms.
type PublishJob struct {
	PostID string `json:"post_id"`
}

// MetricsJob asks the metrics worker to pull engagement counters for one
// already-published platform entry.
type MetricsJob struct {
	PostID       string `json:"post_id"`
	Platform     string `json:"platform"`
	RemotePostID string `json:"remote_post_id"`
}

// Job is the queue envelope delivered to handlers. Attempt is 1-based and
// counts deliveries of this logical job, including the current one.
type Job struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Payload     []byte            `json:"payload"`
	Attempt     int               `json:"attempt"`
	MaxAttempts int               `json:"max_attempts"`
	Backoff     time.Duration     `json:"backoff"`
	Headers     map[string]string `json:"headers,omitempty"`
	EnqueuedAt  time.Time         `json:"enqueued_at"`
	// LastError holds the failure that sent the job to the dead-letter set.
	LastError string `json:"last_error,omitempty"`
}

// DecodePayload unmarshals the job payload into v.
func (j *Job) DecodePayload(v interface{}) error {
	return json.Unmarshal(j.Payload, v)
}

// backoffDelay computes the exponential delay before redelivering a job that
// just failed its attempt-th delivery: base, 2*base, 4*base, ...
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}
