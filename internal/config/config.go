// Package config provides configuration loading for siteforged.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. This package supports server, auth, generation, embeddings,
// context store, and telemetry settings.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete siteforged configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Auth         AuthConfig         `koanf:"auth"`
	Generation   GenerationConfig   `koanf:"generation"`
	Embeddings   EmbeddingsConfig   `koanf:"embeddings"`
	ContextStore ContextStoreConfig `koanf:"contextstore"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// AuthConfig holds authentication and credential-encryption configuration.
type AuthConfig struct {
	// TokenTTL is how long an issued bearer token stays valid.
	TokenTTL Duration `koanf:"token_ttl"`

	// EncryptionKey protects stored per-user model API credentials.
	// Any non-empty string; a 32-byte key is derived from it.
	EncryptionKey Secret `koanf:"encryption_key"`
}

// GenerationConfig holds text-generation (LLM) configuration.
//
// The endpoint must be OpenAI-compatible. Defaults target Groq's
// hosted API, which serves the Llama models the agents were tuned for.
type GenerationConfig struct {
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`

	// DefaultAPIKey is used for users that registered without their
	// own model credential.
	DefaultAPIKey Secret `koanf:"default_api_key"`
}

// EmbeddingsConfig holds embedding service configuration.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// ContextStoreConfig holds the embedded vector store configuration.
type ContextStoreConfig struct {
	// Path is the directory for persistent storage.
	Path string `koanf:"path"`

	// Collection is the conversation-log collection name.
	Collection string `koanf:"collection"`

	// UsersCollection is the user-registry collection name.
	UsersCollection string `koanf:"users_collection"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	ServiceName    string `koanf:"service_name"`
	MetricsEnabled bool   `koanf:"metrics_enabled"`
}

// LoggingConfig holds logger configuration knobs surfaced through the file.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Auth.TokenTTL.Duration() <= 0 {
		return errors.New("auth token TTL must be positive")
	}
	if !c.Auth.EncryptionKey.IsSet() {
		return errors.New("auth encryption key is required")
	}
	if c.Generation.BaseURL == "" {
		return errors.New("generation base URL is required")
	}
	if c.Generation.Model == "" {
		return errors.New("generation model is required")
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation max tokens must be positive, got %d", c.Generation.MaxTokens)
	}
	if c.ContextStore.Collection == "" {
		return errors.New("context store collection is required")
	}
	if c.Telemetry.MetricsEnabled && c.Telemetry.ServiceName == "" {
		return errors.New("service name required when metrics are enabled")
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = Duration(24 * time.Hour)
	}

	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.7
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 2000
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8081/v1"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.ContextStore.Path == "" {
		cfg.ContextStore.Path = "~/.config/siteforged/contextstore"
	}
	if cfg.ContextStore.Collection == "" {
		cfg.ContextStore.Collection = "siteforged_conversations"
	}
	if cfg.ContextStore.UsersCollection == "" {
		cfg.ContextStore.UsersCollection = "siteforged_users"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "siteforged"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
