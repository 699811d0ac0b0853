package main

import (
	"fmt"
	"os"
	"path/filepath"

	"cerno/internal/config"
	"cerno/internal/embedding"
	"cerno/internal/events"
	"cerno/internal/logging"
	"cerno/internal/parser"
	"cerno/internal/store"
)

// app bundles the constructed collaborators a command needs, assembled
// once per invocation the way the teacher's cortex boot assembles its
// kernel/store/clients before dispatching to a command.
type app struct {
	cfg      *config.Config
	store    *store.Store
	engine   embedding.EmbeddingEngine
	bus      *events.Bus
	parsers  *parser.Registry
	closeAll func()
}

func bootApp() (*app, error) {
	ws := resolveWorkspace()
	cfgFile := resolveConfigPath(ws)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := resolveDBPath(ws)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create .cerno directory: %w", err)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	baseEngine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       cfg.Embedding.TaskType,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create embedding engine: %w", err)
	}
	engine := embedding.NewCachedEngine(baseEngine, cfg.Embedding.CacheSize)

	if err := st.SetEmbeddingEngine(engine); err != nil {
		logging.StoreWarn("failed to attach embedding engine to store: %v", err)
	}

	bus := events.NewBus(cfg.Limits.TaskFanoutCap)

	return &app{
		cfg:     cfg,
		store:   st,
		engine:  engine,
		bus:     bus,
		parsers: parser.NewRegistry(),
		closeAll: func() {
			_ = st.Close()
		},
	}, nil
}
