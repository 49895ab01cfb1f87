package providers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/suka712/inyeon-upstream/internal/config"
	"github.com/suka712/inyeon-upstream/internal/engine"
)

// New builds the backend for provider ("" selects cfg.LLMProvider) and wraps
// it with the configured timeout, rate limit, retry policy and circuit breaker.
func New(ctx context.Context, cfg *config.Config, provider string, log *zap.Logger) (engine.Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if provider == "" {
		provider = cfg.LLMProvider
	}

	var (
		b   engine.Backend
		err error
	)
	switch provider {
	case config.ProviderOllama:
		b = NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, cfg.Timeout())
	case config.ProviderGemini:
		b, err = NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	case config.ProviderOpenAI:
		b, err = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case config.ProviderAnthropic:
		b, err = NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL)
	default:
		return nil, fmt.Errorf("unknown llm_provider: %s (supported: ollama, gemini, openai, anthropic)", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", provider, err)
	}

	if provider != config.ProviderOllama {
		b = WithTimeout(b, cfg.Timeout())
	}
	if provider == config.ProviderGemini && cfg.GeminiRPS > 0 {
		b = WithRateLimit(b, cfg.GeminiRPS)
	}
	if cfg.BackendRetries > 0 {
		policy := DefaultRetryPolicy
		policy.MaxRetries = cfg.BackendRetries
		b = WithRetry(b, policy, log)
	}
	if cfg.BreakerFailures > 0 {
		b = WithBreaker(b, BreakerSettings{
			Failures: uint32(cfg.BreakerFailures),
			Cooldown: time.Duration(cfg.BreakerCooldown) * time.Second,
		}, log)
	}

	log.Debug("backend ready", zap.String("provider", provider), zap.String("backend", engine.BackendName(b)))
	return b, nil
}
