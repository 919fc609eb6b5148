// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config provides unified configuration loading and management for
// the chat client.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.cheshire-chat/config.toml
//   - ~/.cheshire-chat/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/cheshirecat-tools/chat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Transport modes for message delivery.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// Config represents the complete chat client configuration.
type Config struct {
	// Endpoint settings
	Endpoint EndpointConfig `toml:"endpoint" json:"endpoint"`

	// Host relay settings
	Relay RelayConfig `toml:"relay" json:"relay"`

	// Context enrichment settings
	Context ContextConfig `toml:"context" json:"context"`

	// Related-link augmentation settings
	Links LinksConfig `toml:"links" json:"links"`

	// Chat behavior settings
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Debug enables verbose logging to stderr.
	Debug bool `toml:"debug" json:"debug"`
}

// EndpointConfig describes how to reach the Cheshire Cat service.
type EndpointConfig struct {
	// URL is the service base URL (e.g., "http://localhost:1865")
	URL string `toml:"url" json:"url"`
	// AuthToken authenticates requests; empty means no auth
	AuthToken string `toml:"auth_token" json:"auth_token"`
	// TransportMode selects the delivery strategy: "http" or "websocket".
	// WebSocket mode falls back to HTTP while no connection is open.
	TransportMode string `toml:"transport_mode" json:"transport_mode"`
	// SocketURL overrides the derived WebSocket endpoint when set
	SocketURL string `toml:"socket_url" json:"socket_url"`
	// UserID identifies this client to the service; empty means a
	// generated id persisted alongside the transcript
	UserID string `toml:"user_id" json:"user_id"`
	// TimeoutSecs is the HTTP round-trip timeout in seconds
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// RelayConfig describes the hosting site's relay endpoint, which serves
// the welcome message, quick replies, and page context. Optional: with no
// relay configured those features degrade to their built-in fallbacks.
type RelayConfig struct {
	// URL is the relay endpoint
	URL string `toml:"url" json:"url"`
	// Nonce authenticates relay calls when the host requires one
	Nonce string `toml:"nonce" json:"nonce"`
}

// ContextConfig controls page-context enrichment of outgoing messages.
type ContextConfig struct {
	// Enabled turns the context fetch on
	Enabled bool `toml:"enabled" json:"enabled"`
	// ContentID is the id of the content the user is viewing
	ContentID string `toml:"content_id" json:"content_id"`
	// ContentURL is the URL of the content the user is viewing
	ContentURL string `toml:"content_url" json:"content_url"`
	// ReinforcementEnabled appends the reinforcement block to every message
	ReinforcementEnabled bool `toml:"reinforcement_enabled" json:"reinforcement_enabled"`
	// ReinforcementText is the instruction text appended under the marker
	ReinforcementText string `toml:"reinforcement_text" json:"reinforcement_text"`
}

// LinksConfig controls related-link augmentation of replies.
type LinksConfig struct {
	// Enabled turns related links on
	Enabled bool `toml:"enabled" json:"enabled"`
	// MinScore is the minimum memory similarity score for a link (0..1)
	MinScore float64 `toml:"min_score" json:"min_score"`
	// Label titles the related-links block
	Label string `toml:"label" json:"label"`
}

// ChatConfig contains conversation behavior settings.
type ChatConfig struct {
	// WelcomeMessage greets the user when a conversation starts; also the
	// fallback when the remote welcome fetch fails
	WelcomeMessage string `toml:"welcome_message" json:"welcome_message"`
	// DefaultState is the widget state when none was persisted:
	// "open" or "closed"
	DefaultState string `toml:"default_state" json:"default_state"`
	// HistoryDir overrides where the transcript is stored
	// (empty = <config dir>/history)
	HistoryDir string `toml:"history_dir" json:"history_dir"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			URL:           "http://localhost:1865",
			TransportMode: TransportWebSocket,
			TimeoutSecs:   60,
		},
		Context: ContextConfig{
			ReinforcementText: "Answer using the provided context when relevant.",
		},
		Links: LinksConfig{
			MinScore: 0.8,
			Label:    "Related links",
		},
		Chat: ChatConfig{
			WelcomeMessage: "Hello! How can I help you?",
			DefaultState:   "closed",
		},
	}
}

// fillDefaults replaces zero values that have non-zero defaults, so a
// sparse config file behaves like defaults plus overrides.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Endpoint.URL == "" {
		cfg.Endpoint.URL = def.Endpoint.URL
	}
	if cfg.Endpoint.TransportMode == "" {
		cfg.Endpoint.TransportMode = def.Endpoint.TransportMode
	}
	if cfg.Endpoint.TimeoutSecs == 0 {
		cfg.Endpoint.TimeoutSecs = def.Endpoint.TimeoutSecs
	}
	if cfg.Context.ReinforcementText == "" {
		cfg.Context.ReinforcementText = def.Context.ReinforcementText
	}
	if cfg.Links.MinScore == 0 {
		cfg.Links.MinScore = def.Links.MinScore
	}
	if cfg.Links.Label == "" {
		cfg.Links.Label = def.Links.Label
	}
	if cfg.Chat.WelcomeMessage == "" {
		cfg.Chat.WelcomeMessage = def.Chat.WelcomeMessage
	}
	if cfg.Chat.DefaultState == "" {
		cfg.Chat.DefaultState = def.Chat.DefaultState
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory (~/.cheshire-chat).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".cheshire-chat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// HistoryDir returns the transcript storage directory for cfg.
func (c *Config) HistoryDir() (string, error) {
	if c.Chat.HistoryDir != "" {
		return c.Chat.HistoryDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s). Tries TOML first, then
// JSON, and falls back to defaults. Environment overrides are applied
// last, then the result is validated.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. JSON is detected by extension; anything else parses as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config: %w", err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config: %w", err)
		}
	}

	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the config to the TOML config file atomically.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates all validation failures.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the config for invalid values. All problems are
// reported at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Endpoint.URL != "" {
		if u, err := url.Parse(c.Endpoint.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{"endpoint.url", "must be an absolute URL"})
		}
	}
	if c.Endpoint.TransportMode != TransportHTTP && c.Endpoint.TransportMode != TransportWebSocket {
		errs = append(errs, ValidationError{"endpoint.transport_mode", `must be "http" or "websocket"`})
	}
	if c.Endpoint.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"endpoint.timeout_secs", "must not be negative"})
	}
	if c.Links.MinScore < 0 || c.Links.MinScore > 1 {
		errs = append(errs, ValidationError{"links.min_score", "must be between 0 and 1"})
	}
	if c.Chat.DefaultState != "open" && c.Chat.DefaultState != "closed" {
		errs = append(errs, ValidationError{"chat.default_state", `must be "open" or "closed"`})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies CHESHIRE_* environment variables on top of the
// loaded config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHESHIRE_URL"); v != "" {
		c.Endpoint.URL = v
	}
	if v := os.Getenv("CHESHIRE_TOKEN"); v != "" {
		c.Endpoint.AuthToken = v
	}
	if v := os.Getenv("CHESHIRE_TRANSPORT"); v != "" {
		c.Endpoint.TransportMode = v
	}
	if v := os.Getenv("CHESHIRE_WS_URL"); v != "" {
		c.Endpoint.SocketURL = v
	}
	if v := os.Getenv("CHESHIRE_USER_ID"); v != "" {
		c.Endpoint.UserID = v
	}
	if v := os.Getenv("CHESHIRE_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Debug = true
	}
}
