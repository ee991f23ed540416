package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	cfg := parse(t, `
boardctl:
  grpc_endpoint: "gateway:50051"
  metrics_url: "http://gateway:8080/metrics"
  ws_url: "wss://gateway/ws"
  buffer_size: 50
  token_env: BOARD_TOKEN
  auth:
    mode: apikey
    header: X-Notify-Key
    key_env: NOTIFY_KEY
`)

	if cfg.GRPCEndpoint != "gateway:50051" {
		t.Errorf("grpc_endpoint: got %q", cfg.GRPCEndpoint)
	}
	if cfg.WSURL != "wss://gateway/ws" {
		t.Errorf("ws_url: got %q", cfg.WSURL)
	}
	if cfg.BufferSize != 50 {
		t.Errorf("buffer_size: got %d", cfg.BufferSize)
	}
	if got := cfg.Auth.EffectiveHeader(); got != "x-notify-key" {
		t.Errorf("EffectiveHeader: got %q, want x-notify-key", got)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg := parse(t, `server: {http_port: 9000}`)

	if cfg.GRPCEndpoint != DefaultGRPCEndpoint {
		t.Errorf("grpc_endpoint: got %q, want %q", cfg.GRPCEndpoint, DefaultGRPCEndpoint)
	}
	if cfg.MetricsURL != DefaultMetricsURL {
		t.Errorf("metrics_url: got %q", cfg.MetricsURL)
	}
	if cfg.BufferSize != DefaultBufferSize {
		t.Errorf("buffer_size: got %d, want %d", cfg.BufferSize, DefaultBufferSize)
	}
	if cfg.Auth.EffectiveHeader() != DefaultAPIKeyHeader {
		t.Errorf("header: got %q", cfg.Auth.EffectiveHeader())
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad mode":           "boardctl: {auth: {mode: mtls}}",
		"apikey without env": "boardctl: {auth: {mode: apikey}}",
		"zero buffer":        "boardctl: {buffer_size: -1}",
		"empty endpoint":     `boardctl: {grpc_endpoint: ""}`,
		"not yaml":           "boardctl: [",
	}
	for name, yaml := range cases {
		if _, err := Parse([]byte(yaml)); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestSecretsFromEnv(t *testing.T) {
	t.Setenv("BOARDCTL_TEST_KEY", "k-123")
	t.Setenv("BOARDCTL_TEST_TOKEN", "tok")

	cfg := parse(t, `
boardctl:
  token_env: BOARDCTL_TEST_TOKEN
  auth: {mode: apikey, key_env: BOARDCTL_TEST_KEY}
`)
	if cfg.Auth.Key() != "k-123" {
		t.Errorf("Key: got %q", cfg.Auth.Key())
	}
	if cfg.Token() != "tok" {
		t.Errorf("Token: got %q", cfg.Token())
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSURL != DefaultWSURL {
		t.Errorf("ws_url: got %q", cfg.WSURL)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("boardctl: {buffer_size: 7}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BufferSize != 7 {
		t.Errorf("buffer_size: got %d, want 7", cfg.BufferSize)
	}
}

func parse(t *testing.T, yaml string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}
