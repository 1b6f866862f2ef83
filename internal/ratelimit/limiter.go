// Package ratelimit throttles requests to the upstream APIs with one token bucket per provider.
package ratelimit

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/logger"
)

const DEFAULT_MAX_QUEUE_TIME = 5 * time.Minute

// Limiter blocks callers until the provider's bucket has a token
type Limiter interface {
	// Wait blocks until a token of provider is available. Providers without a limit never wait.
	Wait(ctx context.Context, provider string) error
}

type providerLimiter struct {
	limiter      *rate.Limiter
	maxQueueTime time.Duration
}

type limiter struct {
	providers map[string]*providerLimiter
}

// NewLimiter creates a limiter from the per-provider settings
func NewLimiter(cfg map[string]config.RateLimitConfig) (Limiter, error) {
	l := &limiter{providers: make(map[string]*providerLimiter, len(cfg))}
	for name, p := range cfg {
		if p.RequestsPerSecond <= 0 {
			return nil, fmt.Errorf("provider %s: requests_per_second must be positive", name)
		}
		burst := p.Burst
		if burst <= 0 {
			burst = max(int(p.RequestsPerSecond), 1)
		}
		maxQueueTime := p.MaxQueueTime
		if maxQueueTime <= 0 {
			maxQueueTime = DEFAULT_MAX_QUEUE_TIME
		}
		l.providers[name] = &providerLimiter{
			limiter:      rate.NewLimiter(rate.Limit(p.RequestsPerSecond), burst),
			maxQueueTime: maxQueueTime,
		}
		logger.Default().Debug("Rate limit configured",
			zap.String("provider", name),
			zap.Float64("requests_per_second", p.RequestsPerSecond),
			zap.Int("burst", burst),
		)
	}
	return l, nil
}

func (l *limiter) Wait(ctx context.Context, provider string) error {
	p, ok := l.providers[provider]
	if !ok {
		return nil
	}

	queueCtx, cancel := context.WithTimeout(ctx, p.maxQueueTime)
	defer cancel()

	if err := p.limiter.Wait(queueCtx); err != nil {
		return fmt.Errorf("failed to acquire %s rate limit token: %w", provider, err)
	}
	return nil
}

// httpClient takes a token before every request of the wrapped client
type httpClient struct {
	next     adapter.HTTPClient
	limiter  Limiter
	provider string
}

// NewHTTPClient wraps next so that every request of provider waits for a token
func NewHTTPClient(next adapter.HTTPClient, l Limiter, provider string) adapter.HTTPClient {
	if l == nil {
		return next
	}
	return &httpClient{next: next, limiter: l, provider: provider}
}

func (c *httpClient) GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, c.provider); err != nil {
		return nil, err
	}
	return c.next.GetBytes(ctx, url, headers)
}

func (c *httpClient) PostBytes(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx, c.provider); err != nil {
		return nil, err
	}
	return c.next.PostBytes(ctx, url, headers, body)
}

func (c *httpClient) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	if err := c.limiter.Wait(ctx, c.provider); err != nil {
		return 0, err
	}
	return c.next.Download(ctx, url, w)
}
