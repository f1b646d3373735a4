package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Providers []ProviderConfig `json:"providers"`
	Gateway   GatewayConfig    `json:"gateway"`
	Classify  ClassifyConfig   `json:"classify"`
	Owner     OwnerConfig      `json:"owner"`
	Storage   StorageConfig    `json:"storage"`
	Digest    DigestConfig     `json:"digest"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Name     string            `json:"name"`
	Endpoint string            `json:"endpoint"`
	APIKey   string            `json:"api_key"`
	Model    string            `json:"model"`
	Extra    map[string]string `json:"extra,omitempty"`
}

type GatewayConfig struct {
	Slack   SlackGatewayConfig   `json:"slack"`
	Discord DiscordGatewayConfig `json:"discord"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

type DiscordGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
}

// ClassifyConfig controls the classification pipeline. Categories is the
// taxonomy the categorizer may return; scheduling never branches on it.
type ClassifyConfig struct {
	Provider   string   `json:"provider"`
	Categories []string `json:"categories,omitempty"`
	AutoCreate bool     `json:"auto_create"`
}

// OwnerConfig names the owner conversations (one per platform, in
// "<platform>:<channel>" form). Immediate notifications and daily digests
// are delivered there.
type OwnerConfig struct {
	Conversations []string `json:"conversations"`
}

type StorageConfig struct {
	DataDir string `json:"data_dir"`
}

type DigestConfig struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if len(c.Classify.Categories) == 0 {
		c.Classify.Categories = []string{"REMINDER", "MEMORY", "IMPORTANT"}
	}
	if c.Digest.Hour == 0 {
		c.Digest.Hour = 21
	}
}
