package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables use the
// PRISM_ prefix with underscores separating sections (e.g.
// PRISM_SERVER_PORT, PRISM_DATABASE_URL) and take precedence over values
// from the config file. Returns a populated Config struct or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file; absence is not an error.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PRISM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly for AutomaticEnv to
	// surface them during Unmarshal.
	_ = v.BindEnv("database.url")
	_ = v.BindEnv("auth.jwt_secret")
	_ = v.BindEnv("provider.api_key")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for every setting that has a
// sensible one. Secrets (database URL, JWT secret, provider API key)
// deliberately have no default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("provider.base_url", "https://dashscope.aliyuncs.com/api/v1")
	v.SetDefault("provider.model", "wanx2.1-t2i-turbo")

	v.SetDefault("artifact.dir", "uploads/images")
	v.SetDefault("artifact.base_url", "/uploads/images")
	v.SetDefault("artifact.thumbnail_width", 256)

	v.SetDefault("generation.worker_count", 4)
	v.SetDefault("generation.queue_size", 100)
	v.SetDefault("generation.poll_interval_seconds", 5)
	v.SetDefault("generation.max_poll_attempts", 30)
	v.SetDefault("generation.retention_minutes", 60)
	v.SetDefault("generation.reap_interval_seconds", 60)
	v.SetDefault("generation.task_store", "memory")
}
