package config

// QueueSettings holds configuration for the job queue transport.
type QueueSettings struct {
	Type      string `mapstructure:"type" validate:"required,oneof=memory rabbitmq pubsub"`
	URL       string `mapstructure:"url"`
	PoolSize  int    `mapstructure:"pool_size"`
	ProjectID string `mapstructure:"projectID"` // Optional, for GCP Pub/Sub
}
