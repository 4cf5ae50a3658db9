// Package config загружает настройки сервиса из config.yml, .env и окружения.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSecret = "change-me-in-production-please"

// Config - настройки сервиса.
type Config struct {
	Env                string        `mapstructure:"APP_ENV"`
	Port               string        `mapstructure:"PORT"`
	Storage            string        `mapstructure:"STORAGE"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	MongoURI           string        `mapstructure:"MONGO_URI"`
	MongoDatabase      string        `mapstructure:"MONGO_DATABASE"`
	SessionBackend     string        `mapstructure:"SESSION_BACKEND"`
	SessionSecret      string        `mapstructure:"SESSION_SECRET"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	GitHubClientID     string        `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `mapstructure:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `mapstructure:"GITHUB_CALLBACK_URL"`
	SeedData           bool          `mapstructure:"SEED_DATA"`
}

// Load читает .env (если есть), config.yml (если есть) и переменные окружения.
// Окружение имеет приоритет над файлами.
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")

	setDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORAGE", "in-memory")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "devshowcase")
	v.SetDefault("SESSION_BACKEND", "jwt")
	v.SetDefault("SESSION_SECRET", defaultSecret)
	v.SetDefault("SESSION_TTL", 7*24*time.Hour)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("GITHUB_CLIENT_ID", "")
	v.SetDefault("GITHUB_CLIENT_SECRET", "")
	v.SetDefault("GITHUB_CALLBACK_URL", "http://localhost:8080/auth/github/callback")
	v.SetDefault("SEED_DATA", false)
}

// IsProduction сообщает, запущен ли сервис в production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate проверяет обязательные параметры для выбранных бэкендов.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	// Те же окружения, что принимает observability.NewLogger
	switch c.Env {
	case "development", "test", "staging", "production":
	default:
		return fmt.Errorf("unknown APP_ENV %q (development, test, staging or production)", c.Env)
	}

	switch c.Storage {
	case "in-memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for postgres storage")
		}
	case "mongo":
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE must be set for mongo storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE %q (in-memory, postgres or mongo)", c.Storage)
	}

	switch c.SessionBackend {
	case "jwt":
		if len(c.SessionSecret) < 16 {
			return errors.New("SESSION_SECRET must be at least 16 characters")
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL must be set for redis sessions")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q (jwt or redis)", c.SessionBackend)
	}

	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}

	if c.IsProduction() {
		if c.SessionBackend == "jwt" && (c.SessionSecret == defaultSecret || len(c.SessionSecret) < 32) {
			return errors.New("SESSION_SECRET must be changed and at least 32 characters in production")
		}
		if c.GitHubClientID == "" || c.GitHubClientSecret == "" {
			return errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET are required in production")
		}
	}
	return nil
}
