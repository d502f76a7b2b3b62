// Package config provides YAML-based configuration loading for Workdesk.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Workdesk configuration, loaded from config.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Board    BoardConfig    `yaml:"board"`
	Digest   DigestConfig   `yaml:"digest"`
	Slack    SlackConfig    `yaml:"slack"`
	Discord  DiscordConfig  `yaml:"discord"`
}

// DatabaseConfig holds connection settings for the MySQL server.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// BoardConfig tunes the read-side views.
type BoardConfig struct {
	RecentDays  int `yaml:"recent_days"`  // board window for recently-touched items
	PollMinutes int `yaml:"poll_minutes"` // default window for the change poll
}

// DigestConfig controls the scheduled activity digest.
type DigestConfig struct {
	Cron string `yaml:"cron"` // 5-field cron expression; empty disables
}

// SlackConfig holds the Slack notifier settings. Empty token disables it.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds the Discord notifier settings. Empty token disables it.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "workdesk"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Board.RecentDays == 0 {
		c.Board.RecentDays = 3
	}
	if c.Board.PollMinutes == 0 {
		c.Board.PollMinutes = 15
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Database.Name == "" {
		errs = append(errs, "database.name is required")
	}
	if c.Slack.BotToken != "" && c.Slack.ChannelID == "" {
		errs = append(errs, "slack.channel_id is required when slack.bot_token is set")
	}
	if c.Discord.BotToken != "" && c.Discord.ChannelID == "" {
		errs = append(errs, "discord.channel_id is required when discord.bot_token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
