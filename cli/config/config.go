// Package config handles CLI configuration loading.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration.
type Config struct {
	BaseURL     string        `yaml:"base_url,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	Endpoint    string        `yaml:"endpoint,omitempty"` // "responses" or "chat"
	APIKeyEnv   string        `yaml:"api_key_env,omitempty"`
	OrgID       string        `yaml:"org_id,omitempty"`
	ProjectID   string        `yaml:"project_id,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
}

// DefaultAPIKeyEnv is consulted when the config names no key variable.
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

// DefaultConfigPath returns the default configuration file path.
//   - macOS/Linux: ~/.petrel/config.yaml
//   - Windows: %USERPROFILE%\.petrel\config.yaml
func DefaultConfigPath() string {
	var homeDir string
	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}
	if homeDir == "" {
		return "config.yaml"
	}
	return filepath.Join(homeDir, ".petrel", "config.yaml")
}

// Load reads configuration from the given path. A missing file is not an
// error; it yields an empty config.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KeyEnv returns the environment variable the API key is read from.
func (c *Config) KeyEnv() string {
	if c.APIKeyEnv != "" {
		return c.APIKeyEnv
	}
	return DefaultAPIKeyEnv
}
