package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultGRPCEndpoint = "localhost:50051"
	DefaultMetricsURL   = "http://localhost:8080/metrics"
	DefaultWSURL        = "ws://localhost:8080/ws"
	DefaultBufferSize   = 1000
	DefaultAPIKeyHeader = "x-api-key"
)

type file struct {
	Boardctl Config `yaml:"boardctl"`
}

// Config holds all boardctl settings.
type Config struct {
	// GRPCEndpoint is the gateway NotifyService address (host:port).
	GRPCEndpoint string `yaml:"grpc_endpoint"`

	// MetricsURL is the gateway Prometheus endpoint scraped by `stats`.
	MetricsURL string `yaml:"metrics_url"`

	// WSURL is the gateway WebSocket endpoint used by `watch`.
	WSURL string `yaml:"ws_url"`

	// BufferSize is the maximum number of notifications `relay` holds while
	// the gateway is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// Auth configures how NotifyBoard calls authenticate.
	Auth AuthConfig `yaml:"auth"`

	// TokenEnv names the environment variable holding the board access
	// token sent by `watch`.
	TokenEnv string `yaml:"token_env"`
}

// AuthConfig specifies the NotifyBoard authentication mode.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the gRPC metadata key carrying the key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the lowercased header name, or "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header == "" {
		return DefaultAPIKeyHeader
	}
	return strings.ToLower(a.Header)
}

// Token returns the board access token resolved from the environment.
func (c Config) Token() string {
	if c.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.TokenEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data = nil
	} else if err != nil {
		return nil, fmt.Errorf("boardctl config: read file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	f := file{Boardctl: defaults()}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("boardctl config: parse yaml: %w", err)
	}

	cfg := &f.Boardctl
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("boardctl config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() Config {
	return Config{
		GRPCEndpoint: DefaultGRPCEndpoint,
		MetricsURL:   DefaultMetricsURL,
		WSURL:        DefaultWSURL,
		BufferSize:   DefaultBufferSize,
		Auth:         AuthConfig{Mode: "none"},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.GRPCEndpoint == "" {
		return fmt.Errorf("boardctl.grpc_endpoint is required")
	}
	if cfg.BufferSize <= 0 {
		return fmt.Errorf("boardctl.buffer_size must be positive")
	}
	switch cfg.Auth.Mode {
	case "apikey":
		if cfg.Auth.KeyEnv == "" {
			return fmt.Errorf("boardctl.auth.key_env is required when mode is apikey")
		}
	case "none", "":
	default:
		return fmt.Errorf("boardctl.auth.mode %q unknown: want apikey|none", cfg.Auth.Mode)
	}
	return nil
}
