package config

import "time"

// WorkerSettings tunes job processing.
type WorkerSettings struct {
	// Concurrency bounds how many jobs one worker processes in parallel.
	Concurrency int `mapstructure:"concurrency" validate:"min=0"`
	// JobTimeout bounds a single job pass; an expired job is redelivered by the queue.
	JobTimeout time.Duration `mapstructure:"job_timeout"`

	PublishMaxAttempts int           `mapstructure:"publish_max_attempts"`
	PublishBackoff     time.Duration `mapstructure:"publish_backoff"` // initial backoff duration
	MetricsMaxAttempts int           `mapstructure:"metrics_max_attempts"`
	MetricsBackoff     time.Duration `mapstructure:"metrics_backoff"`
	// MetricsDelay is how long after a successful publish the first
	// engagement pull runs; platforms need time to accumulate counters.
	MetricsDelay time.Duration `mapstructure:"metrics_delay"`
}

// WithDefaults fills unset worker tuning with the pipeline defaults.
func (w WorkerSettings) WithDefaults() WorkerSettings {
	if w.Concurrency <= 0 {
		w.Concurrency = 4
	}
	if w.JobTimeout <= 0 {
		w.JobTimeout = 60 * time.Second
	}
	if w.PublishMaxAttempts <= 0 {
		w.PublishMaxAttempts = 3
	}
	if w.PublishBackoff <= 0 {
		w.PublishBackoff = 2 * time.Second
	}
	if w.MetricsMaxAttempts <= 0 {
		w.MetricsMaxAttempts = 2
	}
	if w.MetricsBackoff <= 0 {
		w.MetricsBackoff = 5 * time.Second
	}
	if w.MetricsDelay <= 0 {
		w.MetricsDelay = 15 * time.Minute
	}
	return w
}
