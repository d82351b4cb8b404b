package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
)

type PostgresRepository struct {
	db *sql.DB // using database/sql
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (p *PostgresRepository) GetScheduledPost(ctx context.Context, id string) (*ScheduledPost, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "GetScheduledPost")
	defer span.End()

	startTime := time.Now()

	row := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, project_id, platforms, payload, status, results, created_at, updated_at
         FROM scheduled_posts WHERE id=$1`, id)

	var post ScheduledPost
	var payloadRaw, resultsRaw []byte
	err := row.Scan(&post.ID, &post.UserID, &post.ProjectID, pq.Array(&post.Platforms),
		&payloadRaw, &post.Status, &resultsRaw, &post.CreatedAt, &post.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := json.Unmarshal(payloadRaw, &post.Payload); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode payload for post %s: %w", id, err)
	}
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &post.Results); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to decode results for post %s: %w", id, err)
		}
	}

	addDBStatsToSpan(span, "GetScheduledPost", 1, time.Since(startTime))

	return &post, nil
}

func (p *PostgresRepository) UpdateScheduledPost(ctx context.Context, id string, status PostStatus, results []PlatformResult) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "UpdateScheduledPost")
	defer span.End()

	startTime := time.Now()

	resultsRaw, err := json.Marshal(results)
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status=$1, results=$2, updated_at=$3 WHERE id=$4`,
		status, resultsRaw, time.Now(), id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	addDBStatsToSpan(span, "UpdateScheduledPost", int(affected), time.Since(startTime))

	return nil
}

func (p *PostgresRepository) AppendPublishLog(ctx context.Context, entry PublishLogEntry) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "AppendPublishLog")
	defer span.End()

	startTime := time.Now()

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO publish_logs (id, job_id, post_id, platform, outcome, response, error, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.JobID, entry.PostID, entry.Platform, entry.Outcome, entry.Response, entry.Error, entry.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "AppendPublishLog", 1, time.Since(startTime))

	return nil
}

func (p *PostgresRepository) CreatePublishedPost(ctx context.Context, post PublishedPost) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "CreatePublishedPost")
	defer span.End()

	startTime := time.Now()

	payloadRaw, err := json.Marshal(post.Payload)
	if err != nil {
		return err
	}
	resultsRaw, err := json.Marshal(post.Results)
	if err != nil {
		return err
	}

	// ON CONFLICT keeps redelivered jobs from materializing a second snapshot.
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO published_posts (id, user_id, project_id, source_post_id, platforms, payload, results, status, published_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         ON CONFLICT (source_post_id) DO NOTHING`,
		post.ID, post.UserID, post.ProjectID, post.SourcePostID, pq.Array(post.Platforms),
		payloadRaw, resultsRaw, post.Status, post.PublishedAt)
	if err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "CreatePublishedPost", 1, time.Since(startTime))

	return nil
}

func (p *PostgresRepository) AttachMetrics(ctx context.Context, sourcePostID, platform string, metrics EngagementMetrics) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "AttachMetrics")
	defer span.End()

	startTime := time.Now()

	metricsRaw, err := json.Marshal(metrics)
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE published_posts
         SET metrics = jsonb_set(COALESCE(metrics, '{}'::jsonb), ARRAY[$1], $2::jsonb)
         WHERE source_post_id=$3`,
		platform, metricsRaw, sourcePostID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	addDBStatsToSpan(span, "AttachMetrics", int(affected), time.Since(startTime))

	return nil
}
