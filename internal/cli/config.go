package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	envConfig    = "GRAMMABLE_CONFIG"
	envServerURL = "GRAMMABLE_SERVER_URL"
	envAPIKey    = "GRAMMABLE_API_KEY"

	defaultServerURL = "http://localhost:8080"
)

// CLIConfig is the client-side state kept between runs.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
}

// configPath returns $GRAMMABLE_CONFIG, or ~/.config/grammable/config.yaml.
func configPath() (string, error) {
	if p := os.Getenv(envConfig); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "grammable", "config.yaml"), nil
}

// loadConfig reads the config file. A missing file is an empty config.
func loadConfig() (CLIConfig, error) {
	var cfg CLIConfig

	path, err := configPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// saveConfig writes the config file, readable only by the owner.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// setting resolves a value from the environment, then the config file,
// then fallback. An unreadable config file counts as empty.
func setting(env string, field func(CLIConfig) string, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	if cfg, err := loadConfig(); err == nil {
		if v := field(cfg); v != "" {
			return v
		}
	}
	return fallback
}

func getServerURL() string {
	return setting(envServerURL, func(c CLIConfig) string { return c.ServerURL }, defaultServerURL)
}

func getAPIKey() string {
	return setting(envAPIKey, func(c CLIConfig) string { return c.APIKey }, "")
}
