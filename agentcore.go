// Package agentcore provides a top-level convenience entry point for
// assembling the orchestration stack with minimal boilerplate.
//
// Usage:
//
//	import "github.com/rasad8686/agentcore"
//
//	core, err := agentcore.New(ctx, myLoader)
//	core, err := agentcore.New(ctx, myLoader, agentcore.WithConfigPath("agentcore.yaml"))
//
// New wires configuration, logging, the durable store, the optional
// workflow cache, metrics, and the orchestrator. Callers that need a
// different composition can assemble the packages directly; both paths
// produce identical behavior.
package agentcore

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rasad8686/agentcore/config"
	"github.com/rasad8686/agentcore/internal/cache"
	"github.com/rasad8686/agentcore/internal/database"
	"github.com/rasad8686/agentcore/internal/metrics"
	"github.com/rasad8686/agentcore/orchestrator"
	"github.com/rasad8686/agentcore/store"
	"github.com/rasad8686/agentcore/types"
)

// Core is the assembled orchestration stack.
type Core struct {
	Config       *config.Config
	Logger       *zap.Logger
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator

	wfCache *cache.Workflows
}

type options struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	registerer prometheus.Registerer
}

// Option configures the stack assembled by [New].
type Option func(*options)

// WithConfig uses a pre-built configuration instead of loading one.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigPath loads configuration from path (defaults and environment
// overrides still apply).
func WithConfigPath(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogger sets a custom zap logger instead of building one from the
// log configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer sets the prometheus registerer for the metrics collector.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New assembles the full stack: configuration, logger, migrated store,
// optional workflow cache, metrics, and the orchestrator. The loader
// supplies agent capabilities for workflow bindings.
func New(ctx context.Context, loader types.AgentLoader, opts ...Option) (*Core, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.NewLoader().WithConfigPath(o.configPath).Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger := o.logger
	if logger == nil {
		built, err := config.BuildLogger(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		logger = built
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	st := store.New(db, logger)
	if err := st.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	core := &Core{
		Config: cfg,
		Logger: logger,
		Store:  st,
	}
	core.Orchestrator = orchestrator.New(st, loader, cfg.Orchestrator, logger)

	if cfg.CacheEnabled {
		wc, err := cache.New(ctx, cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		core.wfCache = wc
		core.Orchestrator.SetWorkflowCache(wc)
	}

	if cfg.Metrics.Enabled {
		core.Orchestrator.SetMetrics(metrics.NewCollector(cfg.Metrics.Namespace, o.registerer, logger))
	}

	return core, nil
}

// Close releases the cache connection. The store's database handle is
// owned by the caller's process lifetime.
func (c *Core) Close() error {
	if c.wfCache != nil {
		return c.wfCache.Close()
	}
	return nil
}
