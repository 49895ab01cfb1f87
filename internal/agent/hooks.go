package agent

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Hook observes a run. Hooks must not block; they run inline with the graph.
type Hook interface {
	OnStepStart(ctx context.Context, step StepName, st State)
	OnStepEnd(ctx context.Context, step StepName, st State, elapsed time.Duration, err error)
	OnRoute(ctx context.Context, route Route, st State)
	OnDone(ctx context.Context, st State, err error)
}

// NopHook lets you implement only the hooks you need.
type NopHook struct{}

func (NopHook) OnStepStart(context.Context, StepName, State)                     {}
func (NopHook) OnStepEnd(context.Context, StepName, State, time.Duration, error) {}
func (NopHook) OnRoute(context.Context, Route, State)                            {}
func (NopHook) OnDone(context.Context, State, error)                             {}

// Hooks fans every callback out to each hook in order.
type Hooks []Hook

func (hs Hooks) OnStepStart(ctx context.Context, step StepName, st State) {
	for _, h := range hs {
		h.OnStepStart(ctx, step, st)
	}
}
func (hs Hooks) OnStepEnd(ctx context.Context, step StepName, st State, elapsed time.Duration, err error) {
	for _, h := range hs {
		h.OnStepEnd(ctx, step, st, elapsed, err)
	}
}
func (hs Hooks) OnRoute(ctx context.Context, route Route, st State) {
	for _, h := range hs {
		h.OnRoute(ctx, route, st)
	}
}
func (hs Hooks) OnDone(ctx context.Context, st State, err error) {
	for _, h := range hs {
		h.OnDone(ctx, st, err)
	}
}

// LoggerHook writes the run's progress to a zap logger.
type LoggerHook struct{ L *zap.Logger }

func (h LoggerHook) OnStepStart(ctx context.Context, step StepName, _ State) {
	h.L.Debug("step started", zap.String("run_id", RunIDFromContext(ctx)), zap.String("step", string(step)))
}

func (h LoggerHook) OnStepEnd(ctx context.Context, step StepName, st State, elapsed time.Duration, err error) {
	fields := []zap.Field{
		zap.String("run_id", RunIDFromContext(ctx)),
		zap.String("step", string(step)),
		zap.Duration("elapsed", elapsed),
		zap.Int("reasoning", len(st.Reasoning)),
	}
	if err != nil {
		h.L.Warn("step failed", append(fields, zap.Error(err))...)
		return
	}
	h.L.Info("step finished", fields...)
}

func (h LoggerHook) OnRoute(ctx context.Context, route Route, st State) {
	h.L.Debug("route selected",
		zap.String("run_id", RunIDFromContext(ctx)),
		zap.Stringer("route", route),
		zap.Bool("needs_context", st.NeedsContext),
		zap.Strings("files_to_read", st.FilesToRead))
}

func (h LoggerHook) OnDone(ctx context.Context, st State, err error) {
	if err != nil {
		h.L.Error("run aborted", zap.String("run_id", RunIDFromContext(ctx)), zap.Error(err))
		return
	}
	h.L.Info("run finished",
		zap.String("run_id", RunIDFromContext(ctx)),
		zap.Int("files_read", len(st.FileContents)),
		zap.Int("reasoning", len(st.Reasoning)))
}

type runIDKey struct{}

// WithRunID attaches a run identifier to ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run identifier stored by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
