package worker

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-crosspost/pkg/platform"
	"github.com/zoff-tech/go-crosspost/pkg/queue"
	"github.com/zoff-tech/go-crosspost/pkg/store"
)

// MetricsWorker collects engagement counters for one published platform post
// and attaches them to the published-post snapshot. A metrics failure never
// touches publish state; the job retries on its own policy and dead-letters
// quietly if the platform keeps refusing.
type MetricsWorker struct {
	store    store.OutcomeStore
	registry *platform.Registry
	creds    platform.CredentialSource
	tracer   trace.Tracer
}

func NewMetricsWorker(outcomes store.OutcomeStore, registry *platform.Registry, creds platform.CredentialSource) *MetricsWorker {
	return &MetricsWorker{
		store:    outcomes,
		registry: registry,
		creds:    creds,
		tracer:   otel.Tracer("go-crosspost"),
	}
}

func (w *MetricsWorker) Handle(ctx context.Context, job *queue.Job) error {
	ctx, span := w.tracer.Start(ctx, "ProcessMetricsJob", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.Int("job.attempt", job.Attempt),
	))
	defer span.End()

	var payload queue.MetricsJob
	if err := job.DecodePayload(&payload); err != nil {
		return fmt.Errorf("malformed metrics job %s: %w", job.ID, err)
	}
	if payload.PostID == "" || payload.Platform == "" || payload.RemotePostID == "" {
		return fmt.Errorf("metrics job %s is missing a post id, platform or remote post id", job.ID)
	}
	span.SetAttributes(
		attribute.String("post.id", payload.PostID),
		attribute.String("platform", payload.Platform),
	)

	adapter, err := w.registry.Adapter(payload.Platform)
	if err != nil {
		return fmt.Errorf("metrics job %s: %w", job.ID, err)
	}

	post, err := w.store.GetScheduledPost(ctx, payload.PostID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to fetch scheduled post %s: %w", payload.PostID, err)
	}

	credential, err := w.creds.Token(ctx, post.UserID, adapter.Kind())
	if err != nil {
		return fmt.Errorf("no %s credential for user %s: %w", payload.Platform, post.UserID, err)
	}

	collected, err := adapter.Metrics(ctx, credential, payload.RemotePostID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to collect %s metrics for post %s: %w", payload.Platform, payload.PostID, err)
	}

	metrics := store.EngagementMetrics{
		Views:       collected.Views,
		Likes:       collected.Likes,
		Comments:    collected.Comments,
		Shares:      collected.Shares,
		Clicks:      collected.Clicks,
		Impressions: collected.Impressions,
		Engagement:  collected.Engagement,
	}
	if err := w.store.AttachMetrics(ctx, payload.PostID, payload.Platform, metrics); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to attach %s metrics to post %s: %w", payload.Platform, payload.PostID, err)
	}

	log.WithFields(log.Fields{
		"post_id":    payload.PostID,
		"platform":   payload.Platform,
		"engagement": metrics.Engagement,
	}).Debug("Attached engagement metrics")
	return nil
}
