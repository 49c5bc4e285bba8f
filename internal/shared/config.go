package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/prisync/internal/models"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Sync        SyncConfig        `toml:"sync"`
	Server      ServerConfig      `toml:"server"`
	Webhook     WebhookConfig     `toml:"webhook"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Asana AsanaConfig `toml:"asana"`
}

// AsanaConfig contains the task store API location and credential.
type AsanaConfig struct {
	AccessToken       string `toml:"access_token"`
	BaseURL           string `toml:"base_url"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// SyncConfig selects the priority gate.
type SyncConfig struct {
	Policy string `toml:"policy"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Async bool   `toml:"async"`
}

// WebhookConfig contains inbound webhook settings.
type WebhookConfig struct {
	Secret string `toml:"secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides file values with environment variables read through lookup.
//
// Recognised variables: PORT, ASANA_ACCESS_TOKEN, ASANA_BASE_URL, PRISYNC_POLICY.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("ASANA_ACCESS_TOKEN"); ok && v != "" {
		c.Credentials.Asana.AccessToken = v
	}
	if v, ok := lookup("ASANA_BASE_URL"); ok && v != "" {
		c.Credentials.Asana.BaseURL = v
	}
	if v, ok := lookup("PRISYNC_POLICY"); ok && v != "" {
		c.Sync.Policy = v
	}

	return nil
}

// SyncPolicy parses the configured gate policy.
func (c *Config) SyncPolicy() (models.Policy, error) {
	p, err := models.ParsePolicy(c.Sync.Policy)
	if err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return p, nil
}

// Addr returns the host:port the webhook listener binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if _, err := c.SyncPolicy(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Credentials.Asana.BaseURL) == "" {
		return fmt.Errorf("%w: credentials.asana.base_url is empty", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}
