// Package cache provides the redis-backed read cache for workflow
// definitions. The durable store stays authoritative; every cache path
// degrades to a miss on failure.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rasad8686/agentcore/store"
)

const workflowKeyPrefix = "agentcore:workflow:"

// Config tunes the redis connection and entry lifetime.
type Config struct {
	Addr         string        `yaml:"addr" json:"addr" env:"ADDR"`
	Password     string        `yaml:"password" json:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" json:"db" env:"DB"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	TTL          time.Duration `yaml:"ttl" json:"ttl" env:"TTL"`
}

// DefaultConfig returns the cache defaults.
func DefaultConfig() Config {
	return Config{
		Addr:     "localhost:6379",
		PoolSize: 10,
		TTL:      5 * time.Minute,
	}
}

// Workflows caches workflow definitions by id.
type Workflows struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to redis and verifies the connection.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Workflows, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Workflows{
		client: client,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "workflow_cache")),
	}, nil
}

// Get returns the cached definition, or found=false on a miss. Decode and
// transport errors are logged and reported as misses.
func (c *Workflows) Get(ctx context.Context, workflowID string) (*store.Workflow, bool) {
	raw, err := c.client.Get(ctx, workflowKeyPrefix+workflowID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("workflow_id", workflowID), zap.Error(err))
		}
		return nil, false
	}

	var w store.Workflow
	if err := json.Unmarshal(raw, &w); err != nil {
		c.logger.Warn("cache entry corrupt, dropping",
			zap.String("workflow_id", workflowID),
			zap.Error(err),
		)
		c.Invalidate(ctx, workflowID)
		return nil, false
	}
	return &w, true
}

// Set stores the definition under its id with the configured TTL.
func (c *Workflows) Set(ctx context.Context, w *store.Workflow) {
	raw, err := json.Marshal(w)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("workflow_id", w.ID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, workflowKeyPrefix+w.ID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("workflow_id", w.ID), zap.Error(err))
	}
}

// Invalidate drops the cached definition.
func (c *Workflows) Invalidate(ctx context.Context, workflowID string) {
	if err := c.client.Del(ctx, workflowKeyPrefix+workflowID).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", zap.String("workflow_id", workflowID), zap.Error(err))
	}
}

// Close releases the redis connection.
func (c *Workflows) Close() error {
	return c.client.Close()
}
