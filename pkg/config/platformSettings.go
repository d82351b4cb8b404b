package config

// PlatformEntry configures one social platform integration.
type PlatformEntry struct {
	// WebhookSecret is the shared secret used to verify inbound callbacks.
	// An empty secret means callbacks for the platform are rejected.
	WebhookSecret string `mapstructure:"webhook_secret"`
	// BaseURL overrides the platform API host (tests, proxies).
	BaseURL string `mapstructure:"base_url"`
}

// PlatformSettings is the closed set of supported platforms. Adding a platform
// means adding a field here and an adapter in pkg/platform.
type PlatformSettings struct {
	LinkedIn  PlatformEntry `mapstructure:"linkedin"`
	Twitter   PlatformEntry `mapstructure:"twitter"`
	Reddit    PlatformEntry `mapstructure:"reddit"`
	Facebook  PlatformEntry `mapstructure:"facebook"`
	Instagram PlatformEntry `mapstructure:"instagram"`
}
