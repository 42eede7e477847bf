// Package config loads process configuration and the base bot settings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure from Load.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the process configuration. Field tags name the koanf keys;
// the matching environment variable is the key upper-cased with a
// BOUNTYBOT_ prefix, e.g. BOUNTYBOT_LISTEN_ADDR.
type Config struct {
	ListenAddr    string `koanf:"listen_addr"`
	DBPath        string `koanf:"db_path"`
	LogLevel      string `koanf:"log_level"`
	GitHubToken   string `koanf:"github_token"`
	WebhookSecret string `koanf:"webhook_secret"`

	// BotLogin is the account the bot posts as. It is always treated as a
	// bot when scanning for earlier claim comments.
	BotLogin string `koanf:"bot_login"`

	// SettingsPath is a local YAML file with the base bot settings. Empty
	// means built-in defaults.
	SettingsPath string `koanf:"settings_path"`
	// RepoSettingsPath is where organization and repository overrides live
	// inside GitHub repositories.
	RepoSettingsPath string `koanf:"repo_settings_path"`

	PayoutPrivateKey string `koanf:"payout_private_key"`
	PayoutNetworkID  int64  `koanf:"payout_network_id"`
	PayoutRPCURL     string `koanf:"payout_rpc_url"` // Empty selects the network's default RPC.
	PayoutToken      string `koanf:"payout_token"`   // Empty selects the network's default token.
	PermitBaseURL    string `koanf:"permit_base_url"`

	MaxConcurrentEvents int64   `koanf:"max_concurrent_events"`
	WebhookRate         float64 `koanf:"webhook_rate"` // Deliveries per second; 0 disables limiting.
	WebhookBurst        int     `koanf:"webhook_burst"`
}

// Default returns the configuration used when nothing overrides a key.
func Default() *Config {
	return &Config{
		ListenAddr:          "0.0.0.0:8080",
		DBPath:              "bountybot.db",
		LogLevel:            "info",
		BotLogin:            "bountybot[bot]",
		RepoSettingsPath:    ".github/bountybot.yml",
		PayoutNetworkID:     100,
		PermitBaseURL:       "https://pay.ubq.fi",
		MaxConcurrentEvents: 8,
		WebhookRate:         10,
		WebhookBurst:        20,
	}
}

// HasPayoutKey reports whether a signing key is configured. Without one
// the bot still prices issues but every payout fails.
func (c *Config) HasPayoutKey() bool {
	return c.PayoutPrivateKey != ""
}

// SlogLevel returns the parsed log level, or Info if it does not parse.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks the configuration for values the process cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen_addr must not be empty"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path must not be empty"))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.MaxConcurrentEvents < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_events must be at least 1, got %d", c.MaxConcurrentEvents))
	}
	if c.WebhookRate < 0 {
		errs = append(errs, fmt.Errorf("webhook_rate must not be negative, got %v", c.WebhookRate))
	}
	if c.WebhookRate > 0 && c.WebhookBurst < 1 {
		errs = append(errs, fmt.Errorf("webhook_burst must be at least 1 when webhook_rate is set, got %d", c.WebhookBurst))
	}
	if c.PayoutNetworkID <= 0 {
		errs = append(errs, fmt.Errorf("payout_network_id must be positive, got %d", c.PayoutNetworkID))
	}
	if strings.TrimSpace(c.PermitBaseURL) == "" {
		errs = append(errs, errors.New("permit_base_url must not be empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
