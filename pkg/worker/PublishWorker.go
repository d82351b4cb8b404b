package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/go-crosspost/pkg/platform"
	"github.com/zoff-tech/go-crosspost/pkg/queue"
	"github.com/zoff-tech/go-crosspost/pkg/store"
)

// PassResult summarizes one completed publish pass.
type PassResult struct {
	JobID     string
	PostID    string
	Status    store.PostStatus
	Succeeded int
	Failed    int
}

// MetricsScheduler enqueues a delayed engagement-metrics pull for one
// successfully published platform entry.
type MetricsScheduler interface {
	EnqueueMetricsJob(ctx context.Context, postID, platform, remotePostID string, delay time.Duration) (string, error)
}

// PublishWorker fans one scheduled post out to its target platforms and
// persists the aggregated outcome. Completed passes are reported on the
// Results channel for the supervisor.
type PublishWorker struct {
	store     store.OutcomeStore
	registry  *platform.Registry
	creds     platform.CredentialSource
	tracer    trace.Tracer
	results   chan PassResult
	scheduler MetricsScheduler
	delay     time.Duration
}

func NewPublishWorker(outcomes store.OutcomeStore, registry *platform.Registry, creds platform.CredentialSource) *PublishWorker {
	return &PublishWorker{
		store:    outcomes,
		registry: registry,
		creds:    creds,
		tracer:   otel.Tracer("go-crosspost"),
		results:  make(chan PassResult, 64),
	}
}

// ScheduleMetrics makes every successful platform publish enqueue a metrics
// pull after the given delay. Without it, no metrics jobs are produced.
func (w *PublishWorker) ScheduleMetrics(scheduler MetricsScheduler, delay time.Duration) {
	w.scheduler = scheduler
	w.delay = delay
}

// Results reports completed passes. Sends never block; the supervisor is
// expected to keep up, and a dropped summary loses nothing durable.
func (w *PublishWorker) Results() <-chan PassResult {
	return w.results
}

// Handle runs one publish pass: fetch, dispatch, aggregate, materialize.
//
// Any transport-level fault in the pass makes Handle return an error after
// writing the attempt's log rows, without touching the ScheduledPost status:
// the queue redelivers the whole pass, and a post whose only faults were
// transport-level stays pending until a clean pass or dead-letter.
func (w *PublishWorker) Handle(ctx context.Context, job *queue.Job) error {
	ctx, span := w.tracer.Start(ctx, "ProcessPublishJob", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.Int("job.attempt", job.Attempt),
	))
	defer span.End()

	var payload queue.PublishJob
	if err := job.DecodePayload(&payload); err != nil {
		return fmt.Errorf("malformed publish job %s: %w", job.ID, err)
	}
	if payload.PostID == "" {
		return fmt.Errorf("publish job %s carries no post id", job.ID)
	}
	span.SetAttributes(attribute.String("post.id", payload.PostID))

	post, err := w.store.GetScheduledPost(ctx, payload.PostID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to fetch scheduled post %s: %w", payload.PostID, err)
	}
	if len(post.Platforms) == 0 {
		return fmt.Errorf("scheduled post %s has no target platforms", post.ID)
	}

	results, dispatchErr := w.dispatch(ctx, job, post)
	if dispatchErr != nil {
		span.RecordError(dispatchErr)
		span.SetStatus(codes.Error, dispatchErr.Error())
		return dispatchErr
	}

	status := store.ClassifyResults(results)
	if err := w.store.UpdateScheduledPost(ctx, post.ID, status, results); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update scheduled post %s: %w", post.ID, err)
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	if succeeded > 0 {
		if err := w.materialize(ctx, post, results, succeeded); err != nil {
			span.RecordError(err)
			return err
		}
		w.scheduleMetrics(ctx, post, results)
	}

	span.SetAttributes(
		attribute.String("post.status", string(status)),
		attribute.Int("post.succeeded", succeeded),
		attribute.Int("post.failed", len(results)-succeeded),
	)

	select {
	case w.results <- PassResult{
		JobID:     job.ID,
		PostID:    post.ID,
		Status:    status,
		Succeeded: succeeded,
		Failed:    len(results) - succeeded,
	}:
	default:
	}

	return nil
}

// dispatch attempts every target platform concurrently and joins before
// returning; the barrier is the only ordering contract. Each attempt writes
// its own publish-log row, so one platform's fault never hides another's
// attempt. Results come back in the post's platform order.
func (w *PublishWorker) dispatch(ctx context.Context, job *queue.Job, post *store.ScheduledPost) ([]store.PlatformResult, error) {
	type outcome struct {
		index  int
		result store.PlatformResult
		err    error
	}

	outcomes := make(chan outcome, len(post.Platforms))
	var wg sync.WaitGroup
	for i, name := range post.Platforms {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			result, err := w.attempt(ctx, job, post, name)
			outcomes <- outcome{index: i, result: result, err: err}
		}(i, name)
	}
	wg.Wait()
	close(outcomes)

	results := make([]store.PlatformResult, len(post.Platforms))
	var errs []error
	for o := range outcomes {
		results[o.index] = o.result
		if o.err != nil {
			errs = append(errs, o.err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return results, nil
}

// attempt performs one platform publish and records its log row. The returned
// error is transport- or infrastructure-level only; remote rejections land in
// the result.
func (w *PublishWorker) attempt(ctx context.Context, job *queue.Job, post *store.ScheduledPost, name string) (store.PlatformResult, error) {
	result := store.PlatformResult{Platform: name}

	adapter, err := w.registry.Adapter(name)
	if err != nil {
		// A stored post naming an unknown platform is bad data, not a fault
		// worth retrying; it fails this platform's slot and gets logged.
		result.Error = err.Error()
		return result, w.appendLog(ctx, job, post, result)
	}

	credential, err := w.creds.Token(ctx, post.UserID, adapter.Kind())
	if err != nil {
		result.Error = err.Error()
		return result, w.appendLog(ctx, job, post, result)
	}

	published, err := adapter.Publish(ctx, credential, platform.Payload{
		Message:   post.Payload.Message,
		MediaURLs: post.Payload.MediaURLs,
		Metadata:  post.Payload.Metadata,
	})
	if err != nil {
		// Transport fault. Log the failed attempt, then fail the pass.
		result.Error = err.Error()
		if logErr := w.appendLog(ctx, job, post, result); logErr != nil {
			return result, errors.Join(err, logErr)
		}
		return result, err
	}

	result.Success = published.Success
	result.PostID = published.PostID
	result.URL = published.URL
	result.Error = published.Error
	result.RawResponse = published.RawResponse
	return result, w.appendLog(ctx, job, post, result)
}

func (w *PublishWorker) appendLog(ctx context.Context, job *queue.Job, post *store.ScheduledPost, result store.PlatformResult) error {
	outcome := store.OutcomeFailed
	if result.Success {
		outcome = store.OutcomeSuccess
	}
	entry := store.PublishLogEntry{
		ID:        uuid.New().String(),
		JobID:     job.ID,
		PostID:    post.ID,
		Platform:  result.Platform,
		Outcome:   outcome,
		Response:  result.RawResponse,
		Error:     result.Error,
		CreatedAt: time.Now(),
	}
	if err := w.store.AppendPublishLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to append publish log for post %s on %s: %w", post.ID, result.Platform, err)
	}
	return nil
}

// materialize creates the published-post snapshot from the successful entries.
func (w *PublishWorker) materialize(ctx context.Context, post *store.ScheduledPost, results []store.PlatformResult, succeeded int) error {
	successful := make([]store.PlatformResult, 0, succeeded)
	platforms := make([]string, 0, succeeded)
	for _, r := range results {
		if r.Success {
			successful = append(successful, r)
			platforms = append(platforms, r.Platform)
		}
	}

	status := store.PublishedStatusPosted
	if succeeded < len(results) {
		status = store.PublishedStatusPartial
	}

	snapshot := store.PublishedPost{
		ID:           uuid.New().String(),
		UserID:       post.UserID,
		ProjectID:    post.ProjectID,
		SourcePostID: post.ID,
		Platforms:    platforms,
		Payload:      post.Payload,
		Results:      successful,
		Status:       status,
		PublishedAt:  time.Now(),
	}
	if err := w.store.CreatePublishedPost(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to create published post for %s: %w", post.ID, err)
	}
	return nil
}

// scheduleMetrics enqueues the follow-up pulls. The pass is already committed
// at this point, so an enqueue failure is logged and dropped rather than
// failing the job and republishing the post.
func (w *PublishWorker) scheduleMetrics(ctx context.Context, post *store.ScheduledPost, results []store.PlatformResult) {
	if w.scheduler == nil {
		return
	}
	for _, r := range results {
		if !r.Success || r.PostID == "" {
			continue
		}
		if _, err := w.scheduler.EnqueueMetricsJob(ctx, post.ID, r.Platform, r.PostID, w.delay); err != nil {
			log.WithFields(log.Fields{
				"post_id":  post.ID,
				"platform": r.Platform,
				"error":    err.Error(),
			}).Warn("Failed to enqueue metrics job")
		}
	}
}
