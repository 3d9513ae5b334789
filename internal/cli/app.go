// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noteqdev/noteq/internal/auth"
	"github.com/noteqdev/noteq/internal/config"
	"github.com/noteqdev/noteq/internal/conversation"
	"github.com/noteqdev/noteq/internal/graph"
	"github.com/noteqdev/noteq/internal/llm"
	"github.com/noteqdev/noteq/internal/notes"
	"github.com/noteqdev/noteq/internal/router"
	"github.com/noteqdev/noteq/internal/stream"
)

// =============================================================================
// APP WIRING
// =============================================================================

// app bundles the wired components a command handler needs.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	authn     *auth.DeviceAuthenticator
	graph     *graph.Client
	retriever *notes.GraphRetriever
	generator *llm.Ollama
	adapter   *stream.Adapter
}

// newApp loads configuration and wires the full pipeline. Verbose forces
// debug logging regardless of config.
func newApp(args Args) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}

	authn, err := auth.New(cfg, logger, os.Stderr)
	if err != nil {
		return nil, err
	}

	graphClient := graph.NewClient(cfg, authn, logger)
	retriever := notes.NewRetriever(graphClient, cfg, logger)
	generator := llm.NewOllama(cfg, logger)
	machine := conversation.NewMachine(router.NewKeyword(), retriever, generator, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		authn:     authn,
		graph:     graphClient,
		retriever: retriever,
		generator: generator,
		adapter:   stream.NewAdapter(machine, logger),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// sessionDBPath returns the saved-conversations database location.
func sessionDBPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// buildLogger constructs the zap logger from config: console encoding to
// stderr, or to the configured file.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.WarnLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.OutputPaths = []string{"stderr"}
	if cfg.Log.File != "" {
		zcfg.OutputPaths = []string{cfg.Log.File}
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
