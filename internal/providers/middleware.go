package providers

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/suka712/inyeon-upstream/internal/engine"
)

// wrapped forwards the name of the backend it decorates.
type wrapped struct {
	next engine.Backend
}

func (w wrapped) Name() string { return engine.BackendName(w.next) }

// WithTimeout bounds every model call by d. Health probes keep the caller's deadline.
func WithTimeout(next engine.Backend, d time.Duration) engine.Backend {
	if d <= 0 {
		return next
	}
	return &timeoutBackend{wrapped: wrapped{next}, d: d}
}

type timeoutBackend struct {
	wrapped
	d time.Duration
}

func (t *timeoutBackend) Generate(ctx context.Context, prompt string, jsonMode bool, temperature float32) (engine.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Generate(ctx, prompt, jsonMode, temperature)
}

func (t *timeoutBackend) GenerateWithTools(ctx context.Context, messages []engine.ChatMessage, tools []engine.ToolSchema) (engine.ToolResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GenerateWithTools(ctx, messages, tools)
}

func (t *timeoutBackend) IsHealthy(ctx context.Context) bool { return t.next.IsHealthy(ctx) }

// WithRateLimit spaces model calls to at most rps per second, with a burst of one.
func WithRateLimit(next engine.Backend, rps float64) engine.Backend {
	return &rateLimitedBackend{wrapped: wrapped{next}, lim: rate.NewLimiter(rate.Limit(rps), 1)}
}

type rateLimitedBackend struct {
	wrapped
	lim *rate.Limiter
}

func (r *rateLimitedBackend) wait(ctx context.Context, op string) error {
	if err := r.lim.Wait(ctx); err != nil {
		return &engine.BackendError{Provider: r.Name(), Op: op, Kind: engine.KindTransport, Err: err}
	}
	return nil
}

func (r *rateLimitedBackend) Generate(ctx context.Context, prompt string, jsonMode bool, temperature float32) (engine.Record, error) {
	if err := r.wait(ctx, opGenerate); err != nil {
		return nil, err
	}
	return r.next.Generate(ctx, prompt, jsonMode, temperature)
}

func (r *rateLimitedBackend) GenerateWithTools(ctx context.Context, messages []engine.ChatMessage, tools []engine.ToolSchema) (engine.ToolResponse, error) {
	if err := r.wait(ctx, opWithTools); err != nil {
		return engine.ToolResponse{}, err
	}
	return r.next.GenerateWithTools(ctx, messages, tools)
}

func (r *rateLimitedBackend) IsHealthy(ctx context.Context) bool { return r.next.IsHealthy(ctx) }

// BreakerSettings configures WithBreaker.
type BreakerSettings struct {
	Failures uint32        // consecutive failures that open the breaker
	Cooldown time.Duration // time spent open before a trial call
}

// WithBreaker stops calling a backend after repeated transport or status
// failures. While open, calls fail fast with a KindUnavailable BackendError.
// Decode failures do not count: the backend answered.
func WithBreaker(next engine.Backend, s BreakerSettings, log *zap.Logger) engine.Backend {
	if log == nil {
		log = zap.NewNop()
	}
	if s.Failures == 0 {
		s.Failures = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	failures := s.Failures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        engine.BackendName(next),
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("backend circuit breaker changed state",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &breakerBackend{wrapped: wrapped{next}, cb: cb}
}

type breakerBackend struct {
	wrapped
	cb *gobreaker.CircuitBreaker
}

// run executes fn through the breaker. Errors that should not trip it are
// passed around the breaker in passthrough.
func (b *breakerBackend) run(op string, fn func() (any, error)) (any, error) {
	var passthrough error
	out, err := b.cb.Execute(func() (any, error) {
		v, err := fn()
		if err != nil && !countsAsFailure(err) {
			passthrough = err
			return v, nil
		}
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &engine.BackendError{Provider: b.Name(), Op: op, Kind: engine.KindUnavailable, Err: err}
	}
	if err != nil {
		return nil, err
	}
	return out, passthrough
}

func (b *breakerBackend) Generate(ctx context.Context, prompt string, jsonMode bool, temperature float32) (engine.Record, error) {
	out, err := b.run(opGenerate, func() (any, error) {
		return b.next.Generate(ctx, prompt, jsonMode, temperature)
	})
	if err != nil {
		return nil, err
	}
	rec, _ := out.(engine.Record)
	return rec, nil
}

func (b *breakerBackend) GenerateWithTools(ctx context.Context, messages []engine.ChatMessage, tools []engine.ToolSchema) (engine.ToolResponse, error) {
	out, err := b.run(opWithTools, func() (any, error) {
		return b.next.GenerateWithTools(ctx, messages, tools)
	})
	if err != nil {
		return engine.ToolResponse{}, err
	}
	resp, _ := out.(engine.ToolResponse)
	return resp, nil
}

func (b *breakerBackend) IsHealthy(ctx context.Context) bool { return b.next.IsHealthy(ctx) }

func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, errInvalidMessage) {
		return false
	}
	var be *engine.BackendError
	if errors.As(err, &be) {
		return be.Kind == engine.KindTransport || be.Kind == engine.KindStatus
	}
	return true
}
