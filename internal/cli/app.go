package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/factcheck/internal/cache"
	"github.com/ppiankov/factcheck/internal/llm"
	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/pipeline"
	"github.com/ppiankov/factcheck/internal/store"
	"github.com/ppiankov/factcheck/internal/tools"
	"github.com/ppiankov/factcheck/internal/worker"
)

// app holds the runtime built from configuration
type app struct {
	cfg      *model.Config
	orch     *pipeline.Orchestrator
	provider llm.Provider
	store    *store.Store // nil when the archive is disabled
}

// newApp wires the LLM provider, the tool backends and the optional run
// archive into an orchestrator
func newApp(ctx context.Context, cfg *model.Config, observer pipeline.StageObserver) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := slog.Default()

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.Tools))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if !provider.IsAvailable(ctx) {
		logger.Warn("cli: llm provider not reachable", "provider", provider.Name())
	}

	toolOpts := tools.Options{
		Limiter: worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
	}
	if cfg.Cache.Enabled {
		toolOpts.Cache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}
	adapter, err := tools.New(cfg.Tools, toolOpts)
	if err != nil {
		return nil, fmt.Errorf("tools: %w", err)
	}

	a := &app{cfg: cfg, provider: provider}
	opts := pipeline.Options{
		Config:       cfg,
		Collaborator: provider,
		Tools:        adapter,
		Provider:     provider.Name(),
		Model:        cfg.LLM.Model,
		Observer:     observer,
		Logger:       logger,
	}
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("run archive: %w", err)
		}
		a.store = st
		opts.Archive = st
	}

	a.orch, err = pipeline.New(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the run archive
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("cli: close run archive", "error", err)
		}
	}
}
