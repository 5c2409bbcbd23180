package router

import (
	"context"
	"errors"
	"fmt"

	"ai-companion-be/internal/pkg/logger"
	"ai-companion-be/pkg/llm"
)

var (
	// ErrNoProviderAvailable means every configured provider was either in
	// cooldown or failed before producing any output.
	ErrNoProviderAvailable = errors.New("no generation provider available")

	// ErrStreamInterrupted means a provider died after it had already
	// emitted fragments; the request is not retried on another provider.
	ErrStreamInterrupted = errors.New("generation stream interrupted")
)

// Router routes generation requests across providers in priority order
// (local first). A provider that fails is put in cooldown and the next one
// is tried; fallback happens at most once per provider per request.
type Router struct {
	providers []llm.LLMProvider
	health    *Health
	logger    logger.ILogger
}

func New(providers []llm.LLMProvider, health *Health, log logger.ILogger) *Router {
	return &Router{
		providers: providers,
		health:    health,
		logger:    log,
	}
}

func (r *Router) ProviderNames() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Generate returns the full completion and the name of the provider that
// produced it.
func (r *Router) Generate(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, string, error) {
	var lastErr error
	for _, p := range r.providers {
		if r.health.InCooldown(p.Name()) {
			continue
		}

		reply, err := p.Chat(ctx, history, opts...)
		if err != nil {
			if ctx.Err() != nil {
				// Caller cancelled; not the provider's fault.
				return "", "", ctx.Err()
			}
			r.health.MarkUnavailable(p.Name(), err)
			r.logger.Warn("model-router", "Provider failed, falling through", map[string]interface{}{
				"provider": p.Name(),
				"error":    err.Error(),
			})
			lastErr = err
			continue
		}

		r.health.MarkAvailable(p.Name())
		return reply, p.Name(), nil
	}

	if lastErr != nil {
		return "", "", fmt.Errorf("%w: last error: %v", ErrNoProviderAvailable, lastErr)
	}
	return "", "", ErrNoProviderAvailable
}

// GenerateStream starts a streamed completion on the first healthy provider.
// Fallback only happens while no fragment has been emitted: once a provider
// starts streaming, a mid-stream failure surfaces as ErrStreamInterrupted on
// the final chunk instead of silently switching voices.
func (r *Router) GenerateStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.StreamChunk, string, error) {
	var lastErr error
	for _, p := range r.providers {
		if r.health.InCooldown(p.Name()) {
			continue
		}

		ch, err := p.ChatStream(ctx, history, opts...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			r.health.MarkUnavailable(p.Name(), err)
			r.logger.Warn("model-router", "Provider failed to start stream, falling through", map[string]interface{}{
				"provider": p.Name(),
				"error":    err.Error(),
			})
			lastErr = err
			continue
		}

		r.health.MarkAvailable(p.Name())
		return r.wrapStream(ctx, p.Name(), ch), p.Name(), nil
	}

	if lastErr != nil {
		return nil, "", fmt.Errorf("%w: last error: %v", ErrNoProviderAvailable, lastErr)
	}
	return nil, "", ErrNoProviderAvailable
}

// wrapStream forwards provider chunks to the consumer. Every send is gated on
// ctx so an abandoned consumer cannot strand the goroutine on a full buffer.
func (r *Router) wrapStream(ctx context.Context, providerName string, in <-chan llm.StreamChunk) <-chan llm.StreamChunk {
	out := make(chan llm.StreamChunk, 16)
	go func() {
		defer close(out)
		for chunk := range in {
			if chunk.Err == nil {
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
				continue
			}

			if errors.Is(chunk.Err, context.Canceled) || errors.Is(chunk.Err, context.DeadlineExceeded) {
				// Consumer went away; pass the cancellation through
				// without penalizing the provider.
				select {
				case out <- chunk:
				case <-ctx.Done():
				}
				return
			}

			r.health.MarkUnavailable(providerName, chunk.Err)
			r.logger.Warn("model-router", "Stream interrupted", map[string]interface{}{
				"provider": providerName,
				"error":    chunk.Err.Error(),
			})
			select {
			case out <- llm.StreamChunk{Err: fmt.Errorf("%w: %v", ErrStreamInterrupted, chunk.Err)}:
			case <-ctx.Done():
			}
			return
		}
	}()
	return out
}

// CheckAvailability probes every configured provider and refreshes health
// state, returning the full status map for the health endpoint.
func (r *Router) CheckAvailability(ctx context.Context) map[string]ProviderStatus {
	for _, p := range r.providers {
		if err := p.Ping(ctx); err != nil {
			r.health.MarkUnavailable(p.Name(), err)
			continue
		}
		r.health.MarkAvailable(p.Name())
	}
	return r.health.Snapshot()
}
