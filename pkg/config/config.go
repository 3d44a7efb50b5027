// Package config holds the YAML-based configuration for the workassist
// service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Config represents the main configuration for the workassist service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Security  SecurityConfig  `yaml:"security"`
	Session   SessionConfig   `yaml:"session"`
	WebUI     WebUIConfig     `yaml:"web_ui"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// KeyStorePath locates the encrypted credential store.
	KeyStorePath string `yaml:"key_store_path"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ProviderConfig configures the completion provider
type ProviderConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	// APIKey may be set directly in the file; the environment and the
	// encrypted key store both take precedence at startup.
	APIKey string `yaml:"api_key"`
}

// SecurityConfig configures CORS
type SecurityConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SessionConfig configures session handling
type SessionConfig struct {
	// Secret signs the session cookies. Empty means a random per-process
	// secret.
	Secret  string        `yaml:"secret"`
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// WebUIConfig configures static dashboard serving
type WebUIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	StaticPath string `yaml:"static_path"`
}

// TelemetryConfig configures OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Provider: ProviderConfig{
			Endpoint:    "https://api.anthropic.com",
			Model:       "claude-3-5-sonnet-20241022",
			MaxTokens:   4000,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
		},
		Session: SessionConfig{
			IdleTTL: 4 * time.Hour,
		},
		WebUI: WebUIConfig{
			Enabled:    true,
			StaticPath: "./web/static",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "otel-collector:4317",
		},
		KeyStorePath: ".keys.json",
	}
}

// LoadConfigFromFile reads a YAML config file, applying defaults for any
// field the file leaves unset.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides lets the environment override file settings. The API key
// accepts both the service-specific and the provider-conventional variable.
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("WORKASSIST_API_KEY"); key != "" {
		c.Provider.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if port := os.Getenv("WORKASSIST_HTTP_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			c.Server.HTTPPort = n
		}
	}
	if endpoint := os.Getenv("WORKASSIST_PROVIDER_ENDPOINT"); endpoint != "" {
		c.Provider.Endpoint = endpoint
	}
	if secret := os.Getenv("WORKASSIST_SESSION_SECRET"); secret != "" {
		c.Session.Secret = secret
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Telemetry.Endpoint = endpoint
	}
}

// ReadPassword prompts for the keystore password with hidden input.
// The WORKASSIST_PASSWORD environment variable takes precedence.
func ReadPassword() (string, error) {
	if password := os.Getenv("WORKASSIST_PASSWORD"); password != "" {
		return password, nil
	}

	fmt.Print("Enter password to unlock key store: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := string(passwordBytes)
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}
