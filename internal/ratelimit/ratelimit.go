package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

// KeyedLimiter enforces a minimum interval between calls sharing a key,
// e.g. searches for the same keywords or fetches from the same source.
type KeyedLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time
	minDelay time.Duration
	now      func() time.Time
}

// NewKeyedLimiter creates a limiter that enforces minDelay between
// consecutive calls with the same key. A zero minDelay never limits.
func NewKeyedLimiter(minDelay time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
		now:      time.Now,
	}
}

// KeywordKey normalizes search keywords into a limiter key.
func KeywordKey(keywords string) string {
	return strings.ToLower(strings.TrimSpace(keywords))
}

// Allow reports whether a call for key may proceed now and records it if so.
// When it may not, the remaining wait is returned.
func (l *KeyedLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.lastCall[key]; ok {
		if elapsed := now.Sub(last); elapsed < l.minDelay {
			return false, l.minDelay - elapsed
		}
	}
	l.lastCall[key] = now
	return true, 0
}

// Wait blocks until enough time has passed since the last call for key.
// Returns an error if the context is cancelled while waiting.
func (l *KeyedLimiter) Wait(ctx context.Context, key string) error {
	for {
		ok, remaining := l.Allow(key)
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
		case <-time.After(remaining):
		}
	}
}

// Reset forgets every recorded call.
func (l *KeyedLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.lastCall)
}

// Source paces fetches from a wrapped source. Sources sharing a backend
// should share the limiter.
type Source struct {
	inner   model.Source
	limiter *KeyedLimiter
}

// NewSource wraps a source with per-source pacing, keyed by its name.
func NewSource(inner model.Source, limiter *KeyedLimiter) *Source {
	return &Source{inner: inner, limiter: limiter}
}

func (s *Source) Name() string { return s.inner.Name() }

// Fetch waits for the limiter, then delegates. A cancelled wait is reported
// as an adapter fault.
func (s *Source) Fetch(ctx context.Context, q model.Query) model.FetchResult {
	if err := s.limiter.Wait(ctx, s.inner.Name()); err != nil {
		return model.FetchResult{
			Source: s.inner.Name(),
			Faults: []model.Fault{model.NewFault(model.FaultAdapter, s.inner.Name(), err)},
		}
	}
	return s.inner.Fetch(ctx, q)
}

// Healthy delegates to the wrapped source when it supports health checks.
func (s *Source) Healthy(ctx context.Context) error {
	if hc, ok := s.inner.(model.HealthChecker); ok {
		return hc.Healthy(ctx)
	}
	return nil
}
