package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration for the dbdeck client.
type Config struct {
	API     APIConfig
	Session SessionConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	// File is the path of the durable session document holding the
	// persisted user record and bearer token.
	File string
}

// Load reads configuration from environment variables and returns a
// validated Config. Every value has a default; Load fails only on
// invalid values.
func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL: envString("DBDECK_API_BASE_URL", "http://localhost:8080/api"),
			Timeout: envDuration("DBDECK_API_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			File: envString("DBDECK_SESSION_FILE", defaultSessionFile()),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("DBDECK_API_BASE_URL must start with http:// or https://, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("DBDECK_API_TIMEOUT must be positive, got %s", c.API.Timeout)
	}
	if c.Session.File == "" {
		return fmt.Errorf("DBDECK_SESSION_FILE is required")
	}
	return nil
}

// defaultSessionFile places the session document under the user config
// directory, falling back to the working directory when it is unknown.
func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "dbdeck-session.json"
	}
	return filepath.Join(dir, "dbdeck", "session.json")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
