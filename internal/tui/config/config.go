package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"shopchat/pkg/logger"
)

// Config holds all client configuration
type Config struct {
	Server ServerConfig  `yaml:"server"`
	Queue  QueueConfig   `yaml:"queue"`
	Log    logger.Config `yaml:"log"`
}

// ServerConfig contains server connection settings
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"` // computed from host/port when empty
}

// QueueConfig selects the offline queue backend
type QueueConfig struct {
	Backend   string `yaml:"backend"` // sqlite, redis, or memory
	Path      string `yaml:"path"`    // sqlite file location
	RedisAddr string `yaml:"redis_addr"`
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    8000,
			BaseURL: "http://127.0.0.1:8000",
		},
		Queue: QueueConfig{
			Backend:   "sqlite",
			Path:      filepath.Join(home, ".shopchat", "queue.db"),
			RedisAddr: "localhost:6379",
		},
		Log: logger.Config{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from file, falling back to defaults
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return Default(), nil
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Public domains get TLS; localhost stays plain.
	if cfg.Server.BaseURL == "" {
		scheme := "http"
		if cfg.Server.Host != "localhost" && cfg.Server.Host != "127.0.0.1" {
			scheme = "https"
		}
		cfg.Server.BaseURL = fmt.Sprintf("%s://%s:%d", scheme, cfg.Server.Host, cfg.Server.Port)
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// findConfigFile searches for config in standard locations
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		"./shopchat.yaml",
		"./config/shopchat.yaml",
		filepath.Join(home, ".config", "shopchat", "config.yaml"),
		filepath.Join(home, ".shopchat.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}
