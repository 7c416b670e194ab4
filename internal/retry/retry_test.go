package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockRenderer calls a function on each invocation, tracking call count.
type mockRenderer struct {
	calls int
	fn    func(attempt int) (string, error)
}

func (m *mockRenderer) Name() string { return "mock" }

func (m *mockRenderer) Render(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.fn(m.calls)
}

func fastPolicy() Policy {
	return Policy{MaxRetries: 2, BaseDelay: 10 * time.Millisecond}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockRenderer{fn: func(_ int) (string, error) {
		return "<html>", nil
	}}

	r := NewRenderer(mock, fastPolicy(), discardLogger())
	got, err := r.Render(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "<html>" {
		t.Fatalf("unexpected page: %q", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
	if r.Name() != "mock" {
		t.Errorf("expected wrapped name, got %q", r.Name())
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockRenderer{fn: func(attempt int) (string, error) {
		if attempt == 1 {
			return "", &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return "<html>", nil
	}}

	r := NewRenderer(mock, fastPolicy(), discardLogger())
	if _, err := r.Render(context.Background(), "u"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockRenderer{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 404, Err: errors.New("not found")}
	}}

	r := NewRenderer(mock, fastPolicy(), discardLogger())
	_, err := r.Render(context.Background(), "u")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("expected HTTPError with status 404, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockRenderer{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	r := NewRenderer(mock, fastPolicy(), discardLogger())
	if _, err := r.Render(context.Background(), "u"); err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockRenderer{fn: func(_ int) (string, error) {
		return "", &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRenderer(mock, Policy{MaxRetries: 2, BaseDelay: time.Second}, discardLogger())
	_, err := r.Render(ctx, "u")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryDeadline(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), discardLogger(), "op", func(context.Context) (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestBackoffDelay_PrefersRetryAfter(t *testing.T) {
	p := Policy{BaseDelay: time.Second}
	err := &model.HTTPError{StatusCode: 429, RetryAfter: 9 * time.Second}
	if d := p.backoffDelay(1, err); d != 9*time.Second {
		t.Errorf("expected 9s, got %v", d)
	}

	d := p.backoffDelay(3, errors.New("network"))
	if d < 2800*time.Millisecond || d > 5200*time.Millisecond {
		t.Errorf("expected ~4s with jitter, got %v", d)
	}
}

type mockSearcher struct {
	calls int
}

func (m *mockSearcher) Search(_ context.Context, _ string, _ int) ([]string, error) {
	m.calls++
	if m.calls == 1 {
		return nil, errors.New("connection reset")
	}
	return []string{"https://a.com/jobs/1"}, nil
}

func TestSearcher_RetriesNetworkErrors(t *testing.T) {
	mock := &mockSearcher{}
	s := NewSearcher(mock, fastPolicy(), discardLogger())

	urls, err := s.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 1 || mock.calls != 2 {
		t.Errorf("expected 1 url after 2 calls, got %v after %d", urls, mock.calls)
	}
}
