package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-kb/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/core/services"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// build wires adapters to core services. Settings come from the TOML
// config under the data directory; --root overrides corpus.root.
func build(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	baseDir := opts.DataDir
	if baseDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving data directory: %w", err)
		}
		baseDir = dir
	}

	configStore, err := file.NewConfigStore(baseDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	root := settings.Corpus.Root
	if opts.Root != "" {
		root = opts.Root
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	logger.Debug("corpus root: %s", root)

	promptStore, err := file.NewPromptStore(filepath.Join(baseDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	store, err := sqlite.NewStore(filepath.Join(baseDir, "data"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	records := store.RecordStore()

	provider := filesystem.New(root, settings.Corpus.Extensions)
	aiServices := ai.Init(ctx, settings)

	compression := services.NewCompressionService(
		provider,
		aiServices.EmbeddingService,
		aiServices.LLMService,
		records,
		settings.Compression,
	)
	compression.SetPromptStore(promptStore)

	index := services.NewIndexService(provider, aiServices.EmbeddingService, records, settings.Compression.BatchSize)
	retrieval := services.NewRetrievalService(aiServices.EmbeddingService, compression, index, settings.Retrieval)

	return &cli.Services{
		Compression:  compression,
		Index:        index,
		Retrieval:    retrieval,
		Settings:     settingsService,
		ResultAction: services.NewResultActionService(root),
		History:      store.TaskHistoryStore(),
		NewScheduler: func(cfg domain.SchedulerConfig) driving.Scheduler {
			return services.NewScheduler(cfg, index, compression, provider)
		},
		Close: func() error {
			aiServices.Close()
			return errors.Join(provider.Close(), store.Close())
		},
	}, nil
}
