package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the gateway configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultGRPCPort       = 50051
	DefaultLogLevel       = "info"
	DefaultFrontendOrigin = "http://localhost:3000"
	DefaultSendBuffer     = 64
	DefaultMaxMessageSize = 64 * 1024
	DefaultPongWait       = 60 * time.Second
	MinPongWait           = time.Second
	DefaultWriteTimeout   = 10 * time.Second
	DefaultRateBurst      = 20
	DefaultRateRefill     = time.Second
)

// FrontendURLEnv, when set, is appended to the allowed origins.
const FrontendURLEnv = "FRONTEND_URL"

// Config holds the gateway configuration parsed from the `server:` section
// of config.yaml. Other top-level keys are ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all gateway settings.
type ServerConfig struct {
	// HTTPPort serves /ws, /api/v1/* and /metrics (default 8080).
	HTTPPort int `yaml:"http_port"`

	// GRPCPort serves the NotifyBoard RPC (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// AllowedOrigins lists browser origins allowed to open a WebSocket.
	// "*" allows every origin. Requests without an Origin header
	// (non-browser clients) are always allowed.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Auth configures board access control for WebSocket clients.
	Auth AuthConfig `yaml:"auth"`

	// Notify configures authentication of the persistence layer on gRPC.
	Notify NotifyConfig `yaml:"notify"`

	// Transport tunes per-connection WebSocket behaviour.
	Transport TransportConfig `yaml:"transport"`
}

// AuthConfig controls WebSocket client authentication.
type AuthConfig struct {
	// Mode is one of: jwt | none.
	Mode string `yaml:"mode"`

	// SecretEnv is the name of the environment variable holding the JWT
	// HMAC secret. Used when Mode == "jwt".
	SecretEnv string `yaml:"secret_env"`
}

// Secret returns the JWT secret resolved from the environment.
func (a AuthConfig) Secret() string {
	if a.SecretEnv == "" {
		return ""
	}
	return os.Getenv(a.SecretEnv)
}

// NotifyConfig controls NotifyBoard caller authentication.
type NotifyConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key the key is read from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (n NotifyConfig) Key() string {
	if n.KeyEnv == "" {
		return ""
	}
	return os.Getenv(n.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "x-api-key".
func (n NotifyConfig) EffectiveHeader() string {
	if n.Header != "" {
		return strings.ToLower(n.Header)
	}
	return "x-api-key"
}

// TransportConfig tunes the WebSocket transport.
type TransportConfig struct {
	// SendBuffer is the per-connection outgoing frame queue depth. A full
	// queue drops frames for that connection only.
	SendBuffer int `yaml:"send_buffer"`

	// MaxMessageSize is the largest inbound frame in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// PongWait is how long to wait for a pong before treating the
	// connection as dead. Pings go out at 9/10 of it; at least 1s.
	PongWait time.Duration `yaml:"pong_wait"`

	// WriteTimeout is the deadline for a single frame write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RateLimit throttles inbound commands per connection.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a token bucket: Burst commands, refilled every
// RefillInterval.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// Level maps LogLevel to a slog.Level; unknown values map to Info.
func (s ServerConfig) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{DefaultFrontendOrigin}
	}
	if u := strings.TrimSpace(os.Getenv(FrontendURLEnv)); u != "" {
		cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, u)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			GRPCPort: DefaultGRPCPort,
			LogLevel: DefaultLogLevel,
			Auth:     AuthConfig{Mode: "none"},
			Notify:   NotifyConfig{Mode: "none"},
			Transport: TransportConfig{
				SendBuffer:     DefaultSendBuffer,
				MaxMessageSize: DefaultMaxMessageSize,
				PongWait:       DefaultPongWait,
				WriteTimeout:   DefaultWriteTimeout,
				RateLimit: RateLimitConfig{
					Burst:          DefaultRateBurst,
					RefillInterval: DefaultRateRefill,
				},
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort == s.GRPCPort {
		return fmt.Errorf("server.http_port and server.grpc_port must differ (both %d)", s.HTTPPort)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	switch s.Auth.Mode {
	case "jwt":
		if s.Auth.SecretEnv == "" {
			return fmt.Errorf("server.auth.secret_env is required when mode is jwt")
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want jwt|none", s.Auth.Mode)
	}
	switch s.Notify.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.notify.mode %q unknown: want apikey|none", s.Notify.Mode)
	}
	t := s.Transport
	if t.SendBuffer <= 0 {
		return fmt.Errorf("server.transport.send_buffer must be positive")
	}
	if t.MaxMessageSize <= 0 {
		return fmt.Errorf("server.transport.max_message_size must be positive")
	}
	if t.PongWait < MinPongWait {
		return fmt.Errorf("server.transport.pong_wait %s is below the minimum %s", t.PongWait, MinPongWait)
	}
	if t.WriteTimeout <= 0 {
		return fmt.Errorf("server.transport.write_timeout must be positive")
	}
	if t.RateLimit.Burst < 0 || t.RateLimit.RefillInterval < 0 {
		return fmt.Errorf("server.transport.rate_limit must not be negative")
	}
	return nil
}
