// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package config provides configuration loading for noteq.
//
// Configuration is resolved in order of precedence:
//   - Environment variables (NOTEQ_*)
//   - A local .env file, when present
//   - ~/.noteq/config.toml
//   - Built-in defaults
//
// The loaded Config is passed explicitly into every constructor that needs
// it; nothing in the core consults process-wide state.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete noteq configuration.
type Config struct {
	// Graph holds note-storage API settings.
	Graph GraphConfig `toml:"graph"`

	// Auth holds OAuth2 device-flow settings.
	Auth AuthConfig `toml:"auth"`

	// LLM holds answer-generator (Ollama) settings.
	LLM LLMConfig `toml:"llm"`

	// Search holds retriever tuning knobs.
	Search SearchConfig `toml:"search"`

	// Log holds diagnostic logging settings.
	Log LogConfig `toml:"log"`
}

// GraphConfig configures the note-storage REST client.
type GraphConfig struct {
	// BaseURL is the API root (default: https://graph.microsoft.com/v1.0).
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds (default: 30).
	TimeoutSecs int `toml:"timeout_secs"`
}

// AuthConfig configures the OAuth2 device-code flow.
type AuthConfig struct {
	// TenantID is the directory tenant ("common" works for personal accounts).
	TenantID string `toml:"tenant_id"`
	// ClientID is the registered application ID. Required.
	ClientID string `toml:"client_id"`
	// Scopes requested during login.
	Scopes []string `toml:"scopes"`
	// CachePath is where the refreshable token is stored
	// (default: ~/.noteq/token.json).
	CachePath string `toml:"cache_path"`
}

// LLMConfig configures the answer generator.
type LLMConfig struct {
	// OllamaURL is the Ollama server address (default: http://127.0.0.1:11434).
	OllamaURL string `toml:"ollama_url"`
	// Model is the chat model used for answer synthesis.
	Model string `toml:"model"`
}

// SearchConfig tunes the multi-strategy retriever.
type SearchConfig struct {
	// MaxResults is the default result cap per search (default: 10).
	MaxResults int `toml:"max_results"`
	// ContentPrefetch is how many result pages get content fetched eagerly
	// for answer grounding (default: 5).
	ContentPrefetch int `toml:"content_prefetch"`
	// FetchConcurrency bounds parallel content fetches (default: 3).
	FetchConcurrency int `toml:"fetch_concurrency"`
	// RecentLimit is the default page count for recent-pages listings
	// (default: 10).
	RecentLimit int `toml:"recent_limit"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error" (default: "warn").
	Level string `toml:"level"`
	// File receives log output when set; empty logs to stderr.
	File string `toml:"file"`
}

// =============================================================================
// LOADING
// =============================================================================

// ConfigDir returns the noteq configuration directory (~/.noteq),
// creating it if needed.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".noteq")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// Load reads configuration from ~/.noteq/config.toml, layers a local .env
// file and NOTEQ_* environment variables on top, and validates the result.
func Load() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "config.toml"))
}

// LoadFrom is Load with an explicit config file path; a missing file is not
// an error, defaults are used instead.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Best effort: a .env in the working directory supplies client/tenant
	// IDs during development without touching the real config.
	_ = godotenv.Load()

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from NOTEQ_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("NOTEQ_CLIENT_ID"); v != "" {
		c.Auth.ClientID = v
	}
	if v := os.Getenv("NOTEQ_TENANT_ID"); v != "" {
		c.Auth.TenantID = v
	}
	if v := os.Getenv("NOTEQ_GRAPH_URL"); v != "" {
		c.Graph.BaseURL = v
	}
	if v := os.Getenv("NOTEQ_OLLAMA_URL"); v != "" {
		c.LLM.OllamaURL = v
	}
	if v := os.Getenv("NOTEQ_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("NOTEQ_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("NOTEQ_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
}

// Validate checks invariants that later layers rely on.
func (c *Config) Validate() error {
	if c.Search.MaxResults < 1 || c.Search.MaxResults > 50 {
		return fmt.Errorf("search.max_results must be between 1 and 50, got %d", c.Search.MaxResults)
	}
	if c.Search.FetchConcurrency < 1 {
		return fmt.Errorf("search.fetch_concurrency must be positive, got %d", c.Search.FetchConcurrency)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
