package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

const (
	collScheduledPosts = "scheduled_posts"
	collPublishLogs    = "publish_logs"
	collPublishedPosts = "published_posts"
)

type MongoRepository struct {
	client   *mongo.Client
	database string
}

func NewMongoRepository(client *mongo.Client, database string) *MongoRepository {
	return &MongoRepository{
		client:   client,
		database: database,
	}
}

func (m *MongoRepository) collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

func (m *MongoRepository) GetScheduledPost(ctx context.Context, id string) (*ScheduledPost, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "GetScheduledPost")
	defer span.End()

	startTime := time.Now()

	var post ScheduledPost
	err := m.collection(collScheduledPosts).FindOne(ctx, bson.M{"id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	addDBStatsToSpan(span, "GetScheduledPost", 1, time.Since(startTime))

	return &post, nil
}

func (m *MongoRepository) UpdateScheduledPost(ctx context.Context, id string, status PostStatus, results []PlatformResult) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "UpdateScheduledPost")
	defer span.End()

	startTime := time.Now()

	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"results":    results,
			"updated_at": time.Now(),
		},
	}
	res, err := m.collection(collScheduledPosts).UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	addDBStatsToSpan(span, "UpdateScheduledPost", int(res.ModifiedCount), time.Since(startTime))

	return nil
}

func (m *MongoRepository) AppendPublishLog(ctx context.Context, entry PublishLogEntry) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "AppendPublishLog")
	defer span.End()

	startTime := time.Now()

	if _, err := m.collection(collPublishLogs).InsertOne(ctx, entry); err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "AppendPublishLog", 1, time.Since(startTime))

	return nil
}

func (m *MongoRepository) CreatePublishedPost(ctx context.Context, post PublishedPost) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "CreatePublishedPost")
	defer span.End()

	startTime := time.Now()

	// Upsert on the source post id keeps redelivered jobs from materializing a
	// second snapshot; $setOnInsert leaves an existing snapshot untouched.
	filter := bson.M{"source_post_id": post.SourcePostID}
	update := bson.M{"$setOnInsert": post}
	opts := options.Update().SetUpsert(true)
	if _, err := m.collection(collPublishedPosts).UpdateOne(ctx, filter, update, opts); err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "CreatePublishedPost", 1, time.Since(startTime))

	return nil
}

func (m *MongoRepository) AttachMetrics(ctx context.Context, sourcePostID, platform string, metrics EngagementMetrics) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "AttachMetrics")
	defer span.End()

	startTime := time.Now()

	update := bson.M{
		"$set": bson.M{
			"metrics." + platform: metrics,
		},
	}
	res, err := m.collection(collPublishedPosts).UpdateOne(ctx, bson.M{"source_post_id": sourcePostID}, update)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	addDBStatsToSpan(span, "AttachMetrics", int(res.ModifiedCount), time.Since(startTime))

	return nil
}
