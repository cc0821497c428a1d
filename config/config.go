package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

const (
	DefaultBaseURL = "https://winkapi.quirky.com"
	envPrefix      = "WINK_"
)

// Config represents the client configuration
type Config struct {
	Wink    WinkConfig    `json:"wink" yaml:"wink" toml:"wink"`
	HTTP    HTTPConfig    `json:"http" yaml:"http" toml:"http"`
	Storage StorageConfig `json:"storage" yaml:"storage" toml:"storage"`
	Logging LoggingConfig `json:"logging" yaml:"logging" toml:"logging"`
	Devices DevicesConfig `json:"devices" yaml:"devices" toml:"devices"`
}

// WinkConfig contains Wink account and OAuth settings
type WinkConfig struct {
	ClientID         string `json:"client_id" yaml:"client_id" toml:"client_id"`
	ClientSecret     string `json:"client_secret" yaml:"client_secret" toml:"client_secret"`
	BaseURL          string `json:"base_url" yaml:"base_url" toml:"base_url"`
	AuthPath         string `json:"auth_path" yaml:"auth_path" toml:"auth_path"`
	Username         string `json:"username" yaml:"username" toml:"username"`
	UserID           string `json:"user_id" yaml:"user_id" toml:"user_id"`
	Password         string `json:"password" yaml:"password" toml:"password"`
	ToleranceSeconds int    `json:"tolerance_seconds" yaml:"tolerance_seconds" toml:"tolerance_seconds"`
	DefaultExpiresIn int    `json:"default_expires_in_seconds" yaml:"default_expires_in_seconds" toml:"default_expires_in_seconds"`
	UserAgent        string `json:"user_agent" yaml:"user_agent" toml:"user_agent"`
}

// HTTPConfig contains outbound transport settings
type HTTPConfig struct {
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	RateLimit      float64 `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"` // requests per second, 0 disables
	RateBurst      int     `json:"rate_burst" yaml:"rate_burst" toml:"rate_burst"`
}

// StorageConfig selects where credentials are persisted
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver" toml:"driver"` // "memory", "sqlite" or "bolt"
	Path   string `json:"path" yaml:"path" toml:"path"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Format string `json:"format" yaml:"format" toml:"format"` // "json" or "text"
	Level  string `json:"level" yaml:"level" toml:"level"`
}

// DevicesConfig contains device population settings
type DevicesConfig struct {
	Strict bool `json:"strict" yaml:"strict" toml:"strict"`
}

// Default returns a configuration with every optional field filled in
func Default() *Config {
	return &Config{
		Wink: WinkConfig{
			BaseURL:          DefaultBaseURL,
			ToleranceSeconds: 10,
			DefaultExpiresIn: 900,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 30,
			RateLimit:      10,
			RateBurst:      1,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Wink.ClientID == "" || c.Wink.ClientSecret == "" {
		return fmt.Errorf("%w: wink client_id and client_secret are required", ErrInvalidConfig)
	}

	if c.Wink.BaseURL == "" {
		c.Wink.BaseURL = DefaultBaseURL
	}

	if c.Wink.ToleranceSeconds < 0 {
		return fmt.Errorf("%w: tolerance_seconds must not be negative", ErrInvalidConfig)
	}

	if c.Wink.DefaultExpiresIn < 0 {
		return fmt.Errorf("%w: default_expires_in_seconds must not be negative", ErrInvalidConfig)
	}

	if c.HTTP.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: http timeout_seconds must not be negative", ErrInvalidConfig)
	}

	switch c.Storage.Driver {
	case "", "memory":
	case "sqlite", "bolt":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage path is required for driver %q", ErrInvalidConfig, c.Storage.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("%w: unknown logging format %q", ErrInvalidConfig, c.Logging.Format)
	}

	return nil
}

// Load loads configuration from a JSON, YAML or TOML file chosen by extension.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".toml":
		err = toml.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromEnv loads configuration from environment variables
// This is useful for containerized deployments
func LoadFromEnv() (*Config, error) {
	config := Default()
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnvOverrides(c *Config) {
	c.Wink.ClientID = getEnv("CLIENT_ID", c.Wink.ClientID)
	c.Wink.ClientSecret = getEnv("CLIENT_SECRET", c.Wink.ClientSecret)
	c.Wink.BaseURL = getEnv("BASE_URL", c.Wink.BaseURL)
	c.Wink.AuthPath = getEnv("AUTH_PATH", c.Wink.AuthPath)
	c.Wink.Username = getEnv("USERNAME", c.Wink.Username)
	c.Wink.UserID = getEnv("USER_ID", c.Wink.UserID)
	c.Wink.Password = getEnv("PASSWORD", c.Wink.Password)
	c.Wink.ToleranceSeconds = getEnvInt("TOLERANCE_SECONDS", c.Wink.ToleranceSeconds)
	c.Wink.DefaultExpiresIn = getEnvInt("DEFAULT_EXPIRES_IN_SECONDS", c.Wink.DefaultExpiresIn)
	c.Wink.UserAgent = getEnv("USER_AGENT", c.Wink.UserAgent)

	c.HTTP.TimeoutSeconds = getEnvInt("HTTP_TIMEOUT_SECONDS", c.HTTP.TimeoutSeconds)
	c.HTTP.RateLimit = getEnvFloat("HTTP_RATE_LIMIT", c.HTTP.RateLimit)
	c.HTTP.RateBurst = getEnvInt("HTTP_RATE_BURST", c.HTTP.RateBurst)

	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Path = getEnv("STORAGE_PATH", c.Storage.Path)

	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	c.Devices.Strict = getEnvBool("DEVICES_STRICT", c.Devices.Strict)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(envPrefix + key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(envPrefix + key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
