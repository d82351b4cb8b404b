package store

import (
	"context"
	"encoding/json"
	"errors"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
)

type SpannerRepository struct {
	client *spanner.Client
}

func (s *SpannerRepository) GetScheduledPost(ctx context.Context, id string) (*ScheduledPost, error) {
	stmt := spanner.Statement{
		SQL: `SELECT id, user_id, project_id, platforms, payload, status, results, created_at, updated_at
              FROM scheduled_posts WHERE id = @id`,
		Params: map[string]interface{}{
			"id": id,
		},
	}

	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	row, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var post ScheduledPost
	var payloadRaw string
	var resultsRaw spanner.NullString
	var status string
	if err := row.Columns(
		&post.ID,
		&post.UserID,
		&post.ProjectID,
		&post.Platforms,
		&payloadRaw,
		&status,
		&resultsRaw,
		&post.CreatedAt,
		&post.UpdatedAt); err != nil {
		return nil, err
	}
	post.Status = PostStatus(status)

	if err := json.Unmarshal([]byte(payloadRaw), &post.Payload); err != nil {
		return nil, err
	}
	if resultsRaw.Valid && resultsRaw.StringVal != "" {
		if err := json.Unmarshal([]byte(resultsRaw.StringVal), &post.Results); err != nil {
			return nil, err
		}
	}

	return &post, nil
}

func (s *SpannerRepository) UpdateScheduledPost(ctx context.Context, id string, status PostStatus, results []PlatformResult) error {
	resultsRaw, err := json.Marshal(results)
	if err != nil {
		return err
	}

	_, err = s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		stmt := spanner.Statement{
			SQL: `UPDATE scheduled_posts SET status = @status, results = @results, updated_at = CURRENT_TIMESTAMP() WHERE id = @id`,
			Params: map[string]interface{}{
				"status":  string(status),
				"results": string(resultsRaw),
				"id":      id,
			},
		}
		count, err := txn.Update(ctx, stmt)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return nil
	})
	return err
}

func (s *SpannerRepository) AppendPublishLog(ctx context.Context, entry PublishLogEntry) error {
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		stmt := spanner.Statement{
			SQL: `INSERT INTO publish_logs (id, job_id, post_id, platform, outcome, response, error, created_at)
                  VALUES (@id, @jobID, @postID, @platform, @outcome, @response, @error, @createdAt)`,
			Params: map[string]interface{}{
				"id":        entry.ID,
				"jobID":     entry.JobID,
				"postID":    entry.PostID,
				"platform":  entry.Platform,
				"outcome":   string(entry.Outcome),
				"response":  entry.Response,
				"error":     entry.Error,
				"createdAt": entry.CreatedAt,
			},
		}
		_, err := txn.Update(ctx, stmt)
		return err
	})
	return err
}

func (s *SpannerRepository) CreatePublishedPost(ctx context.Context, post PublishedPost) error {
	payloadRaw, err := json.Marshal(post.Payload)
	if err != nil {
		return err
	}
	resultsRaw, err := json.Marshal(post.Results)
	if err != nil {
		return err
	}

	_, err = s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		// INSERT OR IGNORE keeps redelivered jobs from materializing a second snapshot.
		stmt := spanner.Statement{
			SQL: `INSERT OR IGNORE INTO published_posts (id, user_id, project_id, source_post_id, platforms, payload, results, status, published_at)
                  VALUES (@id, @userID, @projectID, @sourcePostID, @platforms, @payload, @results, @status, @publishedAt)`,
			Params: map[string]interface{}{
				"id":           post.ID,
				"userID":       post.UserID,
				"projectID":    post.ProjectID,
				"sourcePostID": post.SourcePostID,
				"platforms":    post.Platforms,
				"payload":      string(payloadRaw),
				"results":      string(resultsRaw),
				"status":       string(post.Status),
				"publishedAt":  post.PublishedAt,
			},
		}
		_, err := txn.Update(ctx, stmt)
		return err
	})
	return err
}

func (s *SpannerRepository) AttachMetrics(ctx context.Context, sourcePostID, platform string, metrics EngagementMetrics) error {
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		stmt := spanner.Statement{
			SQL: `SELECT metrics FROM published_posts WHERE source_post_id = @sourcePostID`,
			Params: map[string]interface{}{
				"sourcePostID": sourcePostID,
			},
		}
		iter := txn.Query(ctx, stmt)
		defer iter.Stop()

		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var metricsRaw spanner.NullString
		if err := row.Columns(&metricsRaw); err != nil {
			return err
		}

		byPlatform := make(map[string]EngagementMetrics)
		if metricsRaw.Valid && metricsRaw.StringVal != "" {
			if err := json.Unmarshal([]byte(metricsRaw.StringVal), &byPlatform); err != nil {
				return err
			}
		}
		byPlatform[platform] = metrics

		merged, err := json.Marshal(byPlatform)
		if err != nil {
			return err
		}

		update := spanner.Statement{
			SQL: `UPDATE published_posts SET metrics = @metrics WHERE source_post_id = @sourcePostID`,
			Params: map[string]interface{}{
				"metrics":      string(merged),
				"sourcePostID": sourcePostID,
			},
		}
		_, err = txn.Update(ctx, update)
		return err
	})
	return err
}
