package config

import "time"

// WebhookSettings configures the inbound callback HTTP boundary.
type WebhookSettings struct {
	ListenAddr string `mapstructure:"listen_addr"`
	// Redis backs the shared rate-limit counters.
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	// RateLimit is the allowed number of requests per key per window.
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

// WithDefaults fills unset webhook settings.
func (w WebhookSettings) WithDefaults() WebhookSettings {
	if w.ListenAddr == "" {
		w.ListenAddr = ":8080"
	}
	if w.RateLimit <= 0 {
		w.RateLimit = 60
	}
	if w.RateWindow <= 0 {
		w.RateWindow = time.Minute
	}
	return w
}
