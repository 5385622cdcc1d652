package main

import (
	"fmt"
	"log/slog"
	"time"

	"scribe/internal/artifacts"
	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/discovery"
	"scribe/internal/extraction"
	"scribe/internal/ledger"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/quality"
	"scribe/internal/sources"
)

// buildDaemon assembles the full processing stack from config.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	artifactStore, err := artifacts.NewStore(cfg.Paths.ArtifactsDir)
	if err != nil {
		store.Close()
		return nil, err
	}

	var provider discovery.SearchProvider
	if p := discovery.NewHTTPSearchProvider(
		cfg.Discovery.SearchBaseURL,
		cfg.Discovery.SearchAPIKey,
		time.Duration(cfg.Discovery.StrategyTimeout)*time.Second,
	); p != nil {
		provider = p
	}
	registry := sources.NewRegistry()

	orchestrator := pipeline.NewOrchestrator(
		cfg,
		store,
		discovery.NewEngine(cfg, provider, logger),
		extraction.NewEngine(cfg, registry, logger),
		quality.NewScorer(cfg.Quality),
		artifactStore,
		notifications.NewService(cfg),
		logger,
	)
	manager := pipeline.NewManager(cfg, store, orchestrator, logger)

	d, err := daemon.New(cfg, store, manager, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return d, nil
}
