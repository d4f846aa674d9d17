package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values and use the TRYON_ prefix with underscores,
// e.g. TRYON_SERVER_PORT or TRYON_PROVIDER_GEMINI_API_KEY.
// Returns a populated, validated Config or an error.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRYON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars alone can carry the config.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// AutomaticEnv does not register keys, so bind each known key explicitly
	// to make env-only configuration work with Unmarshal.
	for _, key := range []string{
		"server.port", "server.log_level",
		"database.url",
		"auth.jwt_secret", "auth.token_lifetime_minutes",
		"provider.gemini_api_key", "provider.model_name", "provider.image_size",
		"provider.request_timeout_seconds",
		"storage.endpoint", "storage.access_key", "storage.secret_key",
		"storage.region", "storage.bucket", "storage.url_expiry_minutes",
		"queue.tick_seconds", "queue.batch_size", "queue.scheduled_concurrency",
		"queue.ad_hoc_concurrency", "queue.chunk_pause_seconds",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the defaults that make a minimal deployment work
// with only credentials supplied.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("provider.model_name", "gemini-2.0-flash-exp-image-generation")
	v.SetDefault("provider.image_size", "1024x1024")
	v.SetDefault("provider.request_timeout_seconds", 120)

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "tryon-images")
	v.SetDefault("storage.url_expiry_minutes", 60)

	v.SetDefault("queue.tick_seconds", 30)
	v.SetDefault("queue.batch_size", 50)
	v.SetDefault("queue.scheduled_concurrency", 10)
	v.SetDefault("queue.ad_hoc_concurrency", 5)
	v.SetDefault("queue.chunk_pause_seconds", 1)
}
