package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSettings() *Settings {
	return &Settings{
		Database: DbSettings{Type: "postgres", DSN: "postgres://localhost/crosspost"},
		Queue:    QueueSettings{Type: "memory"},
		Observability: Observability{
			ServiceName: "crosspost-worker",
			TracingURL:  "http://localhost:4318",
			MetricsURL:  "http://localhost:9090",
		},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validSettings().Validate())
}

func TestValidate_UnknownDatabaseType(t *testing.T) {
	cfg := validSettings()
	cfg.Database.Type = "cassandra"
	assert.Error(t, cfg.Validate())
}

func TestValidate_UnknownQueueType(t *testing.T) {
	cfg := validSettings()
	cfg.Queue.Type = "kafka"
	assert.Error(t, cfg.Validate())
}

func TestWorkerSettings_WithDefaults(t *testing.T) {
	w := WorkerSettings{}.WithDefaults()

	assert.Equal(t, 4, w.Concurrency)
	assert.Equal(t, 60*time.Second, w.JobTimeout)
	assert.Equal(t, 3, w.PublishMaxAttempts)
	assert.Equal(t, 2*time.Second, w.PublishBackoff)
	assert.Equal(t, 2, w.MetricsMaxAttempts)
	assert.Equal(t, 5*time.Second, w.MetricsBackoff)
	assert.Equal(t, 15*time.Minute, w.MetricsDelay)
}

func TestWorkerSettings_WithDefaultsKeepsExplicitValues(t *testing.T) {
	w := WorkerSettings{
		Concurrency:        8,
		PublishMaxAttempts: 5,
		PublishBackoff:     time.Second,
	}.WithDefaults()

	assert.Equal(t, 8, w.Concurrency)
	assert.Equal(t, 5, w.PublishMaxAttempts)
	assert.Equal(t, time.Second, w.PublishBackoff)
}

func TestWebhookSettings_WithDefaults(t *testing.T) {
	w := WebhookSettings{}.WithDefaults()

	assert.Equal(t, ":8080", w.ListenAddr)
	assert.Equal(t, 60, w.RateLimit)
	assert.Equal(t, time.Minute, w.RateWindow)
}
