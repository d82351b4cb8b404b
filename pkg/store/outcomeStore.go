package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// OutcomeStore defines the durable record operations used by the publish pipeline.
type OutcomeStore interface {
	// GetScheduledPost loads a scheduled post by id, ErrNotFound when absent.
	GetScheduledPost(ctx context.Context, id string) (*ScheduledPost, error)
	// UpdateScheduledPost replaces the status and per-platform results of a post.
	// Last write wins; callers always recompute both from a full pass.
	UpdateScheduledPost(ctx context.Context, id string, status PostStatus, results []PlatformResult) error
	// AppendPublishLog writes one immutable log row for a platform attempt.
	AppendPublishLog(ctx context.Context, entry PublishLogEntry) error
	// CreatePublishedPost materializes the published-post snapshot. A snapshot
	// for the same source post must not be duplicated on job redelivery.
	CreatePublishedPost(ctx context.Context, post PublishedPost) error
	// AttachMetrics merges engagement metrics onto the published post's platform
	// entry, matched by the source scheduled-post id.
	AttachMetrics(ctx context.Context, sourcePostID, platform string, metrics EngagementMetrics) error
}
