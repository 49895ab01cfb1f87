package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/suka712/inyeon-upstream/internal/agent"
	"github.com/suka712/inyeon-upstream/internal/config"
	"github.com/suka712/inyeon-upstream/internal/engine"
	"github.com/suka712/inyeon-upstream/internal/logging"
	"github.com/suka712/inyeon-upstream/internal/providers"
	"github.com/suka712/inyeon-upstream/internal/telemetry"
	"github.com/suka712/inyeon-upstream/internal/tools"
)

// runtimeEnv holds the process-lifetime objects built from the configuration.
type runtimeEnv struct {
	Config   *config.Config
	Logger   *zap.Logger
	Backends *providers.Pool
	Tools    *engine.ToolRegistry
	Hooks    []agent.Hook

	shutdownTracer telemetry.ShutdownFunc
	shutdownMeter  telemetry.ShutdownFunc
}

func prepareRuntimeEnv(opts *cliOptions) (*runtimeEnv, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Debug, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.InitTracer(cfg.Tracing, os.Stderr)
	if err != nil {
		return nil, err
	}

	shutdownMeter, err := telemetry.InitMeter(cfg.Metrics, os.Stderr, cfg.MetricsPeriod())
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}

	metrics, err := telemetry.NewMetricsHook(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	pool, err := providers.NewPool(cfg, log)
	if err != nil {
		return nil, err
	}

	reg, err := tools.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	log.Debug("runtime ready",
		zap.String("provider", cfg.LLMProvider),
		zap.String("model", cfg.Model(cfg.LLMProvider)),
		zap.Strings("tools", reg.Names()))

	return &runtimeEnv{
		Config:         cfg,
		Logger:         log,
		Backends:       pool,
		Tools:          reg,
		Hooks:          []agent.Hook{metrics},
		shutdownTracer: shutdown,
		shutdownMeter:  shutdownMeter,
	}, nil
}

func (r *runtimeEnv) Close() {
	if r.shutdownMeter != nil {
		if err := r.shutdownMeter(context.Background()); err != nil {
			r.Logger.Warn("failed to flush metrics", zap.Error(err))
		}
	}
	if r.shutdownTracer != nil {
		if err := r.shutdownTracer(context.Background()); err != nil {
			r.Logger.Warn("failed to flush traces", zap.Error(err))
		}
	}
	_ = r.Logger.Sync()
}
