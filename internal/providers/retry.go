package providers

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/suka712/inyeon-upstream/internal/engine"
)

// RetryPolicy defines how failed model calls are retried.
type RetryPolicy struct {
	MaxRetries   int           // 0 = no retries
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap on any single delay
	Multiplier   float64       // exponential backoff factor
	Jitter       bool          // add 0-20% random delay
}

// DefaultRetryPolicy retries twice, starting at half a second.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:   2,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     8 * time.Second,
	Multiplier:   2,
	Jitter:       true,
}

// WithRetry retries transport failures, 429s and 5xx responses with
// exponential backoff. Decode failures and other statuses are returned at once.
func WithRetry(next engine.Backend, p RetryPolicy, log *zap.Logger) engine.Backend {
	if p.MaxRetries <= 0 {
		return next
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &retryBackend{wrapped: wrapped{next}, policy: p, log: log}
}

type retryBackend struct {
	wrapped
	policy RetryPolicy
	log    *zap.Logger
}

func retry[T any](ctx context.Context, r *retryBackend, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !retryable(err) || attempt >= r.policy.MaxRetries {
			return zero, err
		}

		delay := r.policy.delay(attempt)
		r.log.Debug("retrying model call",
			zap.String("backend", r.Name()),
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return zero, &engine.BackendError{Provider: r.Name(), Op: op, Kind: engine.KindTransport, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
}

func (r *retryBackend) Generate(ctx context.Context, prompt string, jsonMode bool, temperature float32) (engine.Record, error) {
	return retry(ctx, r, opGenerate, func(ctx context.Context) (engine.Record, error) {
		return r.next.Generate(ctx, prompt, jsonMode, temperature)
	})
}

func (r *retryBackend) GenerateWithTools(ctx context.Context, messages []engine.ChatMessage, tools []engine.ToolSchema) (engine.ToolResponse, error) {
	return retry(ctx, r, opWithTools, func(ctx context.Context) (engine.ToolResponse, error) {
		return r.next.GenerateWithTools(ctx, messages, tools)
	})
}

func (r *retryBackend) IsHealthy(ctx context.Context) bool { return r.next.IsHealthy(ctx) }

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		d += rand.Float64() * 0.2 * d
	}
	return time.Duration(d)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var be *engine.BackendError
	if !errors.As(err, &be) {
		return false
	}
	switch be.Kind {
	case engine.KindTransport:
		return true
	case engine.KindStatus:
		return be.StatusCode == http.StatusTooManyRequests || be.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}
