package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Mailchimp MailchimpConfig `yaml:"mailchimp"`
	App       AppConfig       `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with environment override
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// MailchimpConfig holds Mailchimp HTTP client configuration. The API
// credential itself is NOT configured here; it lives in the per-user
// settings document and is entered through the front end.
type MailchimpConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c MailchimpConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AppConfig holds application data locations
type AppConfig struct {
	// ConfigDir overrides the per-user app config directory that holds
	// settings.json and reports.json. Empty means the OS default.
	ConfigDir string `yaml:"config_dir"`
}

// Load reads and parses the configuration file. A missing file is not
// an error: this server ships alongside a desktop front end and must
// start with sensible defaults when no config.yaml exists.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Mailchimp.TimeoutSeconds == 0 {
		cfg.Mailchimp.TimeoutSeconds = 30
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so local overrides can live in .env during development.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dir := os.Getenv("APP_CONFIG_DIR"); dir != "" {
		cfg.App.ConfigDir = dir
	}
	if timeout := os.Getenv("MAILCHIMP_TIMEOUT_SECONDS"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			cfg.Mailchimp.TimeoutSeconds = t
		}
	}

	return cfg, nil
}
