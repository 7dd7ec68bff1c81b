package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigPath       = "CRMDESK_CONFIG_PATH"
	EnvServerHost       = "CRMDESK_SERVER_HOST"
	EnvServerPort       = "CRMDESK_SERVER_PORT"
	EnvTransportMode    = "CRMDESK_TRANSPORT_MODE"
	EnvLogLevel         = "CRMDESK_LOG_LEVEL"
	EnvAuthToken        = "CRMDESK_AUTH_TOKEN"
	EnvBackendMode      = "CRMDESK_BACKEND_MODE"
	EnvRemoteBaseURL    = "CRMDESK_REMOTE_BASE_URL"
	EnvRemoteProjectID  = "CRMDESK_REMOTE_PROJECT_ID"
	EnvRemotePublicKey  = "CRMDESK_REMOTE_PUBLIC_KEY"
	EnvSQLitePath       = "CRMDESK_SQLITE_PATH"
	EnvMockLatencyRange = "CRMDESK_MOCK_LATENCY"
)

// Backend modes.
const (
	BackendMock   = "mock"
	BackendRemote = "remote"
	BackendSQLite = "sqlite"
)

// Transport modes.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Validation errors.
var (
	ErrBackendUnknown   = errors.New("unknown backend mode")
	ErrTransportUnknown = errors.New("unknown transport mode")
	ErrRemoteBaseURL    = errors.New("remote backend requires base_url")
	ErrLatencyRange     = errors.New("mock latency bounds must satisfy 0 <= min <= max")
	ErrPageSize         = errors.New("remote page_size must be positive")
	ErrSQLitePath       = errors.New("sqlite backend requires path")
	ErrAuthToken        = errors.New("auth enabled without a token")
	ErrPort             = errors.New("server port out of range")
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Backend   BackendConfig   `yaml:"backend"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// BackendConfig selects where entity records live.
type BackendConfig struct {
	Mode   string       `yaml:"mode"`
	Mock   MockConfig   `yaml:"mock"`
	Remote RemoteConfig `yaml:"remote"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type MockConfig struct {
	MinLatency time.Duration `yaml:"min_latency"`
	MaxLatency time.Duration `yaml:"max_latency"`
	Seed       bool          `yaml:"seed"`
}

type RemoteConfig struct {
	BaseURL   string        `yaml:"base_url"`
	ProjectID string        `yaml:"project_id"`
	PublicKey string        `yaml:"public_key"`
	PageSize  int           `yaml:"page_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
	Seed bool   `yaml:"seed"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: TransportHTTP,
		},
		Log: LogConfig{
			Level: "info",
		},
		Backend: BackendConfig{
			Mode: BackendMock,
			Mock: MockConfig{
				MinLatency: 150 * time.Millisecond,
				MaxLatency: 400 * time.Millisecond,
				Seed:       true,
			},
			Remote: RemoteConfig{
				PageSize: 100,
				Timeout:  15 * time.Second,
			},
			SQLite: SQLiteConfig{
				Path: "crmdesk.db",
			},
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	return LoadFile(os.Getenv(EnvConfigPath))
}

// LoadFile reads configuration from path (skipped when empty), then applies
// environment overrides and validates the result.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv(EnvServerHost); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv(EnvServerPort); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvServerPort, err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv(EnvTransportMode); mode != "" {
		cfg.Transport.Mode = mode
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if token := os.Getenv(EnvAuthToken); token != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.Token = token
	}
	if mode := os.Getenv(EnvBackendMode); mode != "" {
		cfg.Backend.Mode = mode
	}
	if v := os.Getenv(EnvRemoteBaseURL); v != "" {
		cfg.Backend.Remote.BaseURL = v
	}
	if v := os.Getenv(EnvRemoteProjectID); v != "" {
		cfg.Backend.Remote.ProjectID = v
	}
	if v := os.Getenv(EnvRemotePublicKey); v != "" {
		cfg.Backend.Remote.PublicKey = v
	}
	if v := os.Getenv(EnvSQLitePath); v != "" {
		cfg.Backend.SQLite.Path = v
	}
	if v := os.Getenv(EnvMockLatencyRange); v != "" {
		minDelay, maxDelay, err := parseRange(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMockLatencyRange, err)
		}
		cfg.Backend.Mock.MinLatency = minDelay
		cfg.Backend.Mock.MaxLatency = maxDelay
	}
	return nil
}

// parseRange parses "min,max" or a single duration used for both bounds.
func parseRange(s string) (time.Duration, time.Duration, error) {
	lo, hi, found := strings.Cut(s, ",")
	minDelay, err := time.ParseDuration(lo)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return minDelay, minDelay, nil
	}
	maxDelay, err := time.ParseDuration(hi)
	if err != nil {
		return 0, 0, err
	}
	return minDelay, maxDelay, nil
}


// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrPort, c.Server.Port)
	}
	switch c.Transport.Mode {
	case TransportHTTP, TransportStdio:
	default:
		return fmt.Errorf("%w: %q", ErrTransportUnknown, c.Transport.Mode)
	}
	if c.Auth.Enabled && c.Auth.Token == "" {
		return ErrAuthToken
	}

	switch c.Backend.Mode {
	case BackendMock:
		m := c.Backend.Mock
		if m.MinLatency < 0 || m.MaxLatency < m.MinLatency {
			return ErrLatencyRange
		}
	case BackendRemote:
		if c.Backend.Remote.BaseURL == "" {
			return ErrRemoteBaseURL
		}
		if c.Backend.Remote.PageSize <= 0 {
			return ErrPageSize
		}
	case BackendSQLite:
		if c.Backend.SQLite.Path == "" {
			return ErrSQLitePath
		}
	default:
		return fmt.Errorf("%w: %q", ErrBackendUnknown, c.Backend.Mode)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
