// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package config

// Default returns the built-in configuration. Values here must be safe to
// run with no config file at all (client_id excepted, which login checks).
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			BaseURL:     "https://graph.microsoft.com/v1.0",
			TimeoutSecs: 30,
		},
		Auth: AuthConfig{
			TenantID: "common",
			Scopes:   []string{"Notes.Read", "offline_access"},
		},
		LLM: LLMConfig{
			OllamaURL: "http://127.0.0.1:11434",
			Model:     "llama3.2:latest",
		},
		Search: SearchConfig{
			MaxResults:       10,
			ContentPrefetch:  5,
			FetchConcurrency: 3,
			RecentLimit:      10,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// applyDefaults fills zero values left after file/env merging so partial
// config files keep working.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Graph.BaseURL == "" {
		c.Graph.BaseURL = d.Graph.BaseURL
	}
	if c.Graph.TimeoutSecs == 0 {
		c.Graph.TimeoutSecs = d.Graph.TimeoutSecs
	}
	if c.Auth.TenantID == "" {
		c.Auth.TenantID = d.Auth.TenantID
	}
	if len(c.Auth.Scopes) == 0 {
		c.Auth.Scopes = d.Auth.Scopes
	}
	if c.LLM.OllamaURL == "" {
		c.LLM.OllamaURL = d.LLM.OllamaURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = d.LLM.Model
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = d.Search.MaxResults
	}
	if c.Search.ContentPrefetch == 0 {
		c.Search.ContentPrefetch = d.Search.ContentPrefetch
	}
	if c.Search.FetchConcurrency == 0 {
		c.Search.FetchConcurrency = d.Search.FetchConcurrency
	}
	if c.Search.RecentLimit == 0 {
		c.Search.RecentLimit = d.Search.RecentLimit
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}
