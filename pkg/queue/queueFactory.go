package queue

import (
	"context"
	"fmt"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

func NewQueue(ctx context.Context, cfg *config.QueueSettings) (JobQueue, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryQueue(), nil
	case "rabbitmq":
		return NewRabbitMqQueue(ctx, cfg)
	case "pubsub":
		return NewPubSubQueue(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported queue type: %s", cfg.Type)
	}
}
