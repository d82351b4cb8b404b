package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Settings struct {
	Database      DbSettings       `mapstructure:"database"`
	Queue         QueueSettings    `mapstructure:"queue"`
	Worker        WorkerSettings   `mapstructure:"worker"`
	Platforms     PlatformSettings `mapstructure:"platforms"`
	Webhook       WebhookSettings  `mapstructure:"webhook"`
	Observability Observability    `mapstructure:"observability"` // Observability settings
}

func (c *Settings) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func LoadFromFile(filePath string) (*Settings, error) {

	env := getEnvWithDefaultLookup("ENVIRONMENT", "development")

	cfg := &Settings{}
	viper.SetConfigType("yaml") // Set the config type to YAML
	viper.SetConfigName("crosspost")
	viper.AddConfigPath(filePath) // path to config
	viper.AddConfigPath(".")      // current directory

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("No config file found or read error: %v (will rely on env)", err)
	}

	err := mergeConfig(filePath, "crosspost."+env)
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error merging dev config: %s\n", err)
			os.Exit(1)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load from env: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg, nil
}

func (c *Settings) LoadFromEnv() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CROSSPOST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // env vars like CROSSPOST_DATABASE_TYPE

	// Bind environment variables explicitly to ensure they map correctly
	viper.BindEnv("database.type")
	viper.BindEnv("database.dsn")
	viper.BindEnv("database.uri")
	viper.BindEnv("database.name")
	viper.BindEnv("queue.type")
	viper.BindEnv("queue.url")
	viper.BindEnv("queue.projectID")
	viper.BindEnv("queue.pool_size")
	viper.BindEnv("worker.concurrency")
	viper.BindEnv("worker.job_timeout")
	viper.BindEnv("webhook.listen_addr")
	viper.BindEnv("webhook.redis_addr")
	viper.BindEnv("platforms.linkedin.webhook_secret")
	viper.BindEnv("platforms.twitter.webhook_secret")
	viper.BindEnv("platforms.reddit.webhook_secret")
	viper.BindEnv("platforms.facebook.webhook_secret")
	viper.BindEnv("platforms.instagram.webhook_secret")
	viper.BindEnv("observability.service_name")
	viper.BindEnv("observability.tracing_url")
	viper.BindEnv("observability.metrics_url")

	if err := viper.Unmarshal(&c); err != nil {
		return err
	}
	return nil
}

func mergeConfig(path string, name string) error {
	viper.SetConfigName(name)
	viper.AddConfigPath(path)
	err := viper.MergeInConfig()
	if err != nil {
		return err
	}
	return nil
}

func getEnvWithDefaultLookup(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
