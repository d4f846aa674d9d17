package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
}

// ServerConfig contains all HTTP-server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// ProviderConfig contains the AI image provider settings.
type ProviderConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name" validate:"required"`

	// ImageSize is the fixed output size requested from the provider.
	ImageSize string `mapstructure:"image_size" validate:"required"`

	// RequestTimeoutSeconds bounds a single provider call so a hung call
	// cannot hold a dispatcher slot indefinitely.
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
}

// StorageConfig contains the S3-compatible blob storage settings.
type StorageConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	AccessKey        string `mapstructure:"access_key" validate:"required"`
	SecretKey        string `mapstructure:"secret_key" validate:"required"`
	Region           string `mapstructure:"region" validate:"required"`
	Bucket           string `mapstructure:"bucket" validate:"required"`
	URLExpiryMinutes int    `mapstructure:"url_expiry_minutes" validate:"required,gt=0"`
}

// QueueConfig contains the queue engine settings.
type QueueConfig struct {
	// TickSeconds is the scheduler interval.
	TickSeconds int `mapstructure:"tick_seconds" validate:"required,gt=0"`

	// BatchSize bounds how many pending jobs one tick picks up.
	BatchSize int `mapstructure:"batch_size" validate:"required,gt=0"`

	// ScheduledConcurrency is the dispatcher chunk size for scheduler-triggered batches.
	ScheduledConcurrency int `mapstructure:"scheduled_concurrency" validate:"required,gt=0"`

	// AdHocConcurrency is the dispatcher chunk size for ad-hoc batches.
	AdHocConcurrency int `mapstructure:"ad_hoc_concurrency" validate:"required,gt=0"`

	// ChunkPauseSeconds is the fixed pause between dispatcher chunks,
	// bounding the provider request rate.
	ChunkPauseSeconds int `mapstructure:"chunk_pause_seconds" validate:"gte=0"`
}
