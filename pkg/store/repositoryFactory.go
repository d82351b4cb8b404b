package store

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/spanner"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zoff-tech/go-crosspost/pkg/config"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var NewSpannerRepositoryFactory = func(client *spanner.Client) OutcomeStore {
	return &SpannerRepository{client: client}
}

var NewMongoRepositoryFactory = func(client *mongo.Client, database string) OutcomeStore {
	return NewMongoRepository(client, database)
}

func NewRepository(ctx context.Context, cfg config.DbSettings) (OutcomeStore, error) {
	switch cfg.Type {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewPostgresRepository(db), nil
	case "mongo":
		client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.URI))
		if err != nil {
			return nil, err
		}
		return NewMongoRepositoryFactory(client, cfg.Name), nil
	case "spanner":
		client, err := spanner.NewClient(ctx, cfg.URI)
		if err != nil {
			return nil, err
		}
		return NewSpannerRepositoryFactory(client), nil
	default:
		return nil, fmt.Errorf("unsupported DB type: %s", cfg.Type)
	}
}
