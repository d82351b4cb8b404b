package store

import "time"

// PostStatus represents the lifecycle status of a scheduled post.
type PostStatus string

const (
	StatusPending   PostStatus = "pending"
	StatusPublished PostStatus = "published"
	StatusPartial   PostStatus = "partial"
	StatusFailed    PostStatus = "failed"
)

// PublishedStatus is the aggregate status of a materialized published post.
type PublishedStatus string

const (
	PublishedStatusPosted  PublishedStatus = "posted"
	PublishedStatusPartial PublishedStatus = "partial"
)

// Outcome is the result of a single platform attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// PostPayload is the content sent to every target platform.
type PostPayload struct {
	Message   string            `json:"message" bson:"message"`
	MediaURLs []string          `json:"media_urls,omitempty" bson:"media_urls,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// PlatformResult is one platform's outcome within a publish pass. A successful
// result may still carry Error text when the remote call succeeded with a warning.
type PlatformResult struct {
	Platform    string `json:"platform" bson:"platform"`
	Success     bool   `json:"success" bson:"success"`
	PostID      string `json:"post_id,omitempty" bson:"post_id,omitempty"`
	URL         string `json:"url,omitempty" bson:"url,omitempty"`
	Error       string `json:"error,omitempty" bson:"error,omitempty"`
	RawResponse string `json:"raw_response,omitempty" bson:"raw_response,omitempty"`
}

// EngagementMetrics is the normalized metrics record. Counters a platform does
// not expose stay zero.
type EngagementMetrics struct {
	Views       int64 `json:"views" bson:"views"`
	Likes       int64 `json:"likes" bson:"likes"`
	Comments    int64 `json:"comments" bson:"comments"`
	Shares      int64 `json:"shares" bson:"shares"`
	Clicks      int64 `json:"clicks" bson:"clicks"`
	Impressions int64 `json:"impressions" bson:"impressions"`
	Engagement  int64 `json:"engagement" bson:"engagement"`
}

// ScheduledPost is a unit of publishing intent. Status and Results are mutated
// exactly once per worker pass; the record is never deleted by the pipeline.
type ScheduledPost struct {
	ID        string           `json:"id" bson:"id"`
	UserID    string           `json:"user_id" bson:"user_id"`
	ProjectID string           `json:"project_id" bson:"project_id"`
	Platforms []string         `json:"platforms" bson:"platforms"`
	Payload   PostPayload      `json:"payload" bson:"payload"`
	Status    PostStatus       `json:"status" bson:"status"`
	Results   []PlatformResult `json:"results,omitempty" bson:"results,omitempty"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" bson:"updated_at"`
}

// PublishLogEntry is one immutable row per (job, platform) attempt. Retried
// jobs append additional rows; the log is the audit trail of record.
type PublishLogEntry struct {
	ID        string    `json:"id" bson:"id"`
	JobID     string    `json:"job_id" bson:"job_id"`
	PostID    string    `json:"post_id" bson:"post_id"`
	Platform  string    `json:"platform" bson:"platform"`
	Outcome   Outcome   `json:"outcome" bson:"outcome"`
	Response  string    `json:"response,omitempty" bson:"response,omitempty"`
	Error     string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// PublishedPost is the derived record of a post that reached at least one
// platform. Results holds only the successful entries. Metrics is keyed by
// platform name and is the only field touched after creation.
type PublishedPost struct {
	ID           string                       `json:"id" bson:"id"`
	UserID       string                       `json:"user_id" bson:"user_id"`
	ProjectID    string                       `json:"project_id" bson:"project_id"`
	SourcePostID string                       `json:"source_post_id" bson:"source_post_id"`
	Platforms    []string                     `json:"platforms" bson:"platforms"`
	Payload      PostPayload                  `json:"payload" bson:"payload"`
	Results      []PlatformResult             `json:"results" bson:"results"`
	Status       PublishedStatus              `json:"status" bson:"status"`
	Metrics      map[string]EngagementMetrics `json:"metrics,omitempty" bson:"metrics,omitempty"`
	PublishedAt  time.Time                    `json:"published_at" bson:"published_at"`
}

// ClassifyResults derives the post status from a complete pass result set.
// The status is a pure function of the results: published when every attempted
// platform succeeded, failed when none did, partial otherwise. An empty result
// set classifies as failed; a post with no attempts cannot be published.
func ClassifyResults(results []PlatformResult) PostStatus {
	if len(results) == 0 {
		return StatusFailed
	}
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	switch succeeded {
	case len(results):
		return StatusPublished
	case 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
