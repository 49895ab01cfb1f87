package providers

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/suka712/inyeon-upstream/internal/config"
	"github.com/suka712/inyeon-upstream/internal/engine"
)

// poolSize bounds the number of live backends; there are only four providers.
const poolSize = 8

// Pool hands out one shared backend per provider, built on first use.
type Pool struct {
	cfg   *config.Config
	log   *zap.Logger
	build func(ctx context.Context, cfg *config.Config, provider string, log *zap.Logger) (engine.Backend, error)

	mu    sync.Mutex
	cache *lru.Cache[string, engine.Backend]
}

// NewPool creates a pool over cfg.
func NewPool(cfg *config.Config, log *zap.Logger) (*Pool, error) {
	cache, err := lru.New[string, engine.Backend](poolSize)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{cfg: cfg, log: log, build: New, cache: cache}, nil
}

// Get returns the backend for provider, or for the configured default when provider is empty.
func (p *Pool) Get(ctx context.Context, provider string) (engine.Backend, error) {
	if provider == "" {
		provider = p.cfg.LLMProvider
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.cache.Get(provider); ok {
		return b, nil
	}
	b, err := p.build(ctx, p.cfg, provider, p.log)
	if err != nil {
		return nil, err
	}
	p.cache.Add(provider, b)
	return b, nil
}

// Default returns the backend for the configured provider.
func (p *Pool) Default(ctx context.Context) (engine.Backend, error) {
	return p.Get(ctx, "")
}
