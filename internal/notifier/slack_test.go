package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func samplePosting(title, company string) model.Posting {
	return model.Posting{
		Title:          title,
		Company:        company,
		Location:       "Remote, US",
		TimePosted:     "2 hours ago",
		Link:           "https://example.com/apply",
		RelevanceScore: 0.85,
		Source:         "crawler",
	}
}

func newTestSlack(url string, client *http.Client) *SlackNotifier {
	return NewSlackNotifier(url, client, discardLogger(),
		WithPacing(0),
		WithRetryPolicy(retry.Policy{MaxRetries: 1, BaseDelay: time.Millisecond}),
	)
}

func TestSlackNotifier_EmptyPostings(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_SinglePosting(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), []model.Posting{samplePosting("Backend Engineer", "Acme Corp")}); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	if got := payload.Blocks[0].Text.Text; got != "🔎 Acme Corp: Backend Engineer" {
		t.Errorf("header text = %q", got)
	}
	if got := payload.Blocks[1].Fields[0].Text; got != "*Company:*\nAcme Corp" {
		t.Errorf("company field = %q", got)
	}
	if got := payload.Blocks[2].Fields[1].Text; got != "*Score:*\n0.85 (crawler)" {
		t.Errorf("score field = %q", got)
	}
	if got := payload.Blocks[3].Elements[0].URL; got != "https://example.com/apply" {
		t.Errorf("action URL = %q", got)
	}
}

func TestSlackNotifier_MultiplePostings(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	postings := []model.Posting{
		samplePosting("Engineer 1", "A"),
		samplePosting("Engineer 2", "B"),
		samplePosting("Engineer 3", "C"),
	}
	if err := n.Notify(context.Background(), postings); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	if c := calls.Load(); c != 3 {
		t.Errorf("expected 3 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_AllFail(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	postings := []model.Posting{samplePosting("A", "X"), samplePosting("B", "Y")}

	if err := n.Notify(context.Background(), postings); err == nil {
		t.Error("expected error when all messages fail, got nil")
	}
	// one retry each
	if c := calls.Load(); c != 4 {
		t.Errorf("expected 4 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload slackPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.Blocks[0].Text.Text == "🔎 A: Fails" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	postings := []model.Posting{samplePosting("Fails", "A"), samplePosting("Succeeds", "B")}

	if err := n.Notify(context.Background(), postings); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestSlack(srv.URL, srv.Client())
	start := time.Now()
	if err := n.Notify(context.Background(), []model.Posting{samplePosting("Rate Limited", "Test")}); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
	if time.Since(start) < time.Second {
		t.Error("Retry-After was not honored")
	}
}

func TestSlackNotifier_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger(), WithPacing(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	postings := []model.Posting{samplePosting("A", "X"), samplePosting("B", "Y")}
	if err := n.Notify(ctx, postings); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestBuildPayload_Format(t *testing.T) {
	p := samplePosting("SRE", "TestCo")
	p.TimePosted = model.UnknownTime
	p.Source = ""

	payload := buildPayload(p)
	if len(payload.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" {
		t.Errorf("block[0] type = %q, want header", payload.Blocks[0].Type)
	}
	if got := payload.Blocks[2].Fields[0].Text; got != "*Posted:*\nJust detected" {
		t.Errorf("posted field = %q", got)
	}
	if got := payload.Blocks[2].Fields[1].Text; got != "*Score:*\n0.85 (unknown)" {
		t.Errorf("score field = %q", got)
	}
	if payload.Blocks[3].Type != "actions" || payload.Blocks[3].Elements[0].Style != "primary" {
		t.Errorf("block[3] not a primary actions block")
	}
	if payload.Blocks[4].Type != "divider" {
		t.Errorf("block[4] type = %q, want divider", payload.Blocks[4].Type)
	}
}

func TestBuildPayload_IncludesSummary(t *testing.T) {
	p := samplePosting("SRE", "TestCo")
	p.Summary = "• SRE position at TestCo"

	payload := buildPayload(p)
	if len(payload.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[3].Text == nil || payload.Blocks[3].Text.Text != p.Summary {
		t.Errorf("summary block = %+v", payload.Blocks[3])
	}
}

func TestSendTestMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := SendTestMessage(context.Background(), newTestSlack(srv.URL, srv.Client())); err != nil {
		t.Fatalf("SendTestMessage = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
