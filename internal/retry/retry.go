package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

// Policy controls how transient failures are retried: maxRetries additional
// attempts after the first, waiting baseDelay doubled on each retry.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Do calls fn, retrying transient errors with exponential backoff and jitter.
// op names the operation in log lines.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !isRetryable(err) {
		return v, err
	}

	lastErr := err
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		delay := p.backoffDelay(attempt, lastErr)

		logger.Warn("retrying after transient error",
			"op", op,
			"attempt", attempt,
			"max_retries", p.MaxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		v, err = fn(ctx)
		if err == nil || !isRetryable(err) {
			return v, err
		}
		lastErr = err
	}

	var zero T
	return zero, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After from the server takes precedence.
func (p Policy) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	// Network, DNS and similar failures.
	return true
}

// Renderer retries a page renderer's transient failures.
type Renderer struct {
	inner  model.PageRenderer
	policy Policy
	logger *slog.Logger
}

// NewRenderer wraps inner with retry logic.
func NewRenderer(inner model.PageRenderer, policy Policy, logger *slog.Logger) *Renderer {
	return &Renderer{inner: inner, policy: policy, logger: logger}
}

func (r *Renderer) Name() string { return r.inner.Name() }

// Render delegates to the wrapped renderer, retrying transient errors.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	return Do(ctx, r.policy, r.logger, "render:"+r.inner.Name(), func(ctx context.Context) (string, error) {
		return r.inner.Render(ctx, url)
	})
}

type searcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Searcher retries a web search engine's transient failures.
type Searcher struct {
	inner  searcher
	policy Policy
	logger *slog.Logger
}

// NewSearcher wraps a search engine with retry logic.
func NewSearcher(inner searcher, policy Policy, logger *slog.Logger) *Searcher {
	return &Searcher{inner: inner, policy: policy, logger: logger}
}

// Search delegates to the wrapped engine, retrying transient errors.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]string, error) {
	return Do(ctx, s.policy, s.logger, "search", func(ctx context.Context) ([]string, error) {
		return s.inner.Search(ctx, query, limit)
	})
}
