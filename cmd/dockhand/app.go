package main

import (
	"flag"
	"fmt"

	"go.uber.org/zap"

	"github.com/perbu/dockhand/pkg/assistant"
	"github.com/perbu/dockhand/pkg/config"
	"github.com/perbu/dockhand/pkg/embedder"
	"github.com/perbu/dockhand/pkg/gaps"
	"github.com/perbu/dockhand/pkg/generator"
	"github.com/perbu/dockhand/pkg/golden"
	"github.com/perbu/dockhand/pkg/logging"
	"github.com/perbu/dockhand/pkg/retrieval"
	"github.com/perbu/dockhand/pkg/store"
)

// app holds the wired components shared by all commands
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *store.Store
	emb       embedder.Embedder
	gen       generator.Generator
	assistant *assistant.Assistant
	analyzer  *gaps.Analyzer
	drafter   *gaps.Drafter
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (default config.yaml if present)")
	return fs, configPath
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	var base embedder.Embedder
	switch cfg.Embedding.Provider {
	case config.ProviderHash:
		base = embedder.NewHashEmbedder(cfg.Embedding.Dimension)
	default:
		base, err = embedder.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.EmbeddingModel)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("initializing embedder: %w", err)
		}
	}
	emb := embedder.NewRetrying(base, cfg.Embedding.MaxRetries, cfg.Embedding.RetryBaseDelay, logger)

	var gen generator.Generator = generator.Unavailable{}
	if cfg.OpenAI.APIKey != "" {
		gen, err = generator.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatModel, cfg.OpenAI.Temperature, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("initializing generator: %w", err)
		}
	} else {
		logger.Warn("no OpenAI API key; answers quote retrieved passages and gap titles use fallbacks")
	}

	merger := retrieval.NewMerger(emb, st, cfg.Retrieval.PerQueryK, cfg.Retrieval.TopK, logger)
	cache := golden.New(st, cfg.Golden.Threshold, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		emb:       emb,
		gen:       gen,
		assistant: assistant.New(st, emb, gen, merger, cache, cfg.Retrieval.MaxQueries, logger),
		analyzer:  gaps.NewAnalyzer(st, emb, gen, gaps.Options{LowSimilarity: cfg.Analysis.LowSimilarity}, logger),
		drafter:   gaps.NewDrafter(st, gen, logger),
	}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
}
