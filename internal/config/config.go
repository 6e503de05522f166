package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Provider   ProviderConfig   `mapstructure:"provider"   validate:"required"`
	Artifact   ArtifactConfig   `mapstructure:"artifact"   validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig contains connection settings for the optional Redis-backed
// task store. Only consulted when GenerationConfig.TaskStore is "redis".
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// ProviderConfig contains settings for the external text-to-image provider.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"  validate:"required"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Model   string `mapstructure:"model"    validate:"required"`
}

// ArtifactConfig contains settings for local artifact persistence.
type ArtifactConfig struct {
	// Dir is the filesystem directory generated images are written to.
	Dir string `mapstructure:"dir" validate:"required"`

	// BaseURL is the public URL prefix under which Dir is served.
	BaseURL string `mapstructure:"base_url" validate:"required"`

	// ThumbnailWidth is the pixel width of derived thumbnails.
	ThumbnailWidth int `mapstructure:"thumbnail_width" validate:"required,gt=0"`
}

// GenerationConfig tunes the generation task orchestrator: the size of its
// worker pool and submission queue, the provider polling schedule, and how
// long terminal task records are retained before being purged.
type GenerationConfig struct {
	WorkerCount          int    `mapstructure:"worker_count"           validate:"required,gt=0"`
	QueueSize            int    `mapstructure:"queue_size"             validate:"required,gt=0"`
	PollIntervalSeconds  int    `mapstructure:"poll_interval_seconds"  validate:"required,gt=0"`
	MaxPollAttempts      int    `mapstructure:"max_poll_attempts"      validate:"required,gt=0"`
	RetentionMinutes     int    `mapstructure:"retention_minutes"      validate:"required,gt=0"`
	ReapIntervalSeconds  int    `mapstructure:"reap_interval_seconds"  validate:"required,gt=0"`
	TaskStore            string `mapstructure:"task_store"             validate:"required,oneof=memory redis"`
}
