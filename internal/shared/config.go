package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from config.toml.
const (
	EnvAPIURL   = "TUTORX_API_URL"
	EnvDBPath   = "TUTORX_DB_PATH"
	EnvLogLevel = "TUTORX_LOG_LEVEL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Callback CallbackConfig `toml:"callback"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Export   ExportConfig   `toml:"export"`
}

// APIConfig points at the tutorial backend.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
}

// CallbackConfig contains the local OAuth callback server settings.
type CallbackConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Path           string `toml:"path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Addr returns the host:port the callback server listens on.
func (c CallbackConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ExportConfig tunes the bulk export task.
type ExportConfig struct {
	RateLimit float64 `toml:"rate_limit"`
	Workers   int     `toml:"workers"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv applies environment overrides to config.
//
// Variables are read from the process environment after loading envFile (a dotenv file) when it exists.
// Values already set in the process environment win over the file.
func LoadEnv(config *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, envFile, err)
		}
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		config.API.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		config.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.Log.Level = v
	}
	return nil
}

// Validate reports configuration values the client cannot run without.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("%w: api.base_url must be an http(s) URL, got %q", ErrInvalidConfig, c.API.BaseURL)
	}
	if c.Callback.Port <= 0 || c.Callback.Port > 65535 {
		return fmt.Errorf("%w: callback.port out of range: %d", ErrInvalidConfig, c.Callback.Port)
	}
	if !strings.HasPrefix(c.Callback.Path, "/") {
		return fmt.Errorf("%w: callback.path must start with /", ErrInvalidConfig)
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
