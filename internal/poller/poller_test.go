package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/amishk599/jobsift/internal/dedup"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/pipeline"
)

// --- Fakes ---

// fakeSearch returns canned postings and records the requests it saw.
type fakeSearch struct {
	postings []model.Posting
	err      error
	reqs     []pipeline.Request
}

func (f *fakeSearch) GetJobs(_ context.Context, req pipeline.Request) ([]model.Posting, model.RunMetadata) {
	f.reqs = append(f.reqs, req)
	var meta model.RunMetadata
	if f.err != nil {
		fault := model.NewFault(model.FaultCatastrophic, "", f.err)
		meta.Error = &fault
		return []model.Posting{}, meta
	}
	return f.postings, meta
}

// InMemoryStore is a map-based store for testing dedup.
type InMemoryStore struct {
	seen map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{seen: make(map[string]bool)}
}

func (s *InMemoryStore) HasSeen(key string) (bool, error) { return s.seen[key], nil }
func (s *InMemoryStore) MarkSeen(key string) error        { s.seen[key] = true; return nil }
func (s *InMemoryStore) IsEmpty() (bool, error)           { return len(s.seen) == 0, nil }

// RecordingNotifier records which postings were sent to Notify.
type RecordingNotifier struct {
	Notified []model.Posting
	Err      error
}

func (n *RecordingNotifier) Notify(_ context.Context, postings []model.Posting) error {
	if n.Err != nil {
		return n.Err
	}
	n.Notified = append(n.Notified, postings...)
	return nil
}

type prefixSummarizer struct{}

func (prefixSummarizer) Summarize(_ context.Context, p model.Posting, keywords string) (string, error) {
	return keywords + ": " + p.Title, nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makePostings(titles ...string) []model.Posting {
	out := make([]model.Posting, len(titles))
	for i, title := range titles {
		out[i] = model.Posting{
			Title:    title,
			Company:  "testco",
			Location: "US",
			Link:     "https://example.com/" + title,
		}
	}
	return out
}

// --- Tests ---

func TestPoll_NotifiesOnlyUnseen(t *testing.T) {
	postings := makePostings("Go Engineer", "Rust Engineer", "Data Engineer")
	store := NewInMemoryStore()
	store.MarkSeen(dedup.Fingerprint(postings[1]))

	notifier := &RecordingNotifier{}
	p := NewSearchPoller(&fakeSearch{postings: postings}, pipeline.Request{Keywords: "engineer"}, store, notifier, discardLogger())

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(notifier.Notified); got != 2 {
		t.Fatalf("notified = %d, want 2", got)
	}
	for _, posting := range postings {
		if seen, _ := store.HasSeen(dedup.Fingerprint(posting)); !seen {
			t.Errorf("%s should be marked seen", posting.Title)
		}
	}
}

func TestPoll_BypassesCache(t *testing.T) {
	search := &fakeSearch{}
	p := NewSearchPoller(search, pipeline.Request{Keywords: "go"}, NewInMemoryStore(), &RecordingNotifier{}, discardLogger())

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(search.reqs) != 1 || !search.reqs[0].NoCache {
		t.Errorf("requests = %+v, want one with NoCache", search.reqs)
	}
	if p.Name != "go" {
		t.Errorf("Name = %q, want go", p.Name)
	}
}

func TestPoll_SecondCycleNotifiesNothing(t *testing.T) {
	notifier := &RecordingNotifier{}
	p := NewSearchPoller(&fakeSearch{postings: makePostings("A", "B")}, pipeline.Request{Keywords: "x"}, NewInMemoryStore(), notifier, discardLogger())

	for i := 0; i < 2; i++ {
		if err := p.Poll(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	if len(notifier.Notified) != 2 {
		t.Errorf("notified = %d, want 2 (first cycle only)", len(notifier.Notified))
	}
}

func TestPoll_SearchError(t *testing.T) {
	notifier := &RecordingNotifier{}
	p := NewSearchPoller(&fakeSearch{err: errors.New("boom")}, pipeline.Request{Keywords: "x"}, NewInMemoryStore(), notifier, discardLogger())

	if err := p.Poll(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(notifier.Notified) != 0 {
		t.Error("notifier should not be called on search error")
	}
}

func TestPoll_NotifyErrorLeavesUnseen(t *testing.T) {
	postings := makePostings("A")
	store := NewInMemoryStore()
	p := NewSearchPoller(&fakeSearch{postings: postings}, pipeline.Request{Keywords: "x"}, store,
		&RecordingNotifier{Err: errors.New("webhook down")}, discardLogger())

	if err := p.Poll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if seen, _ := store.HasSeen(dedup.Fingerprint(postings[0])); seen {
		t.Error("posting should stay unseen so the next cycle retries")
	}
}

func TestPoll_SilentSeedOnFirstRun(t *testing.T) {
	postings := makePostings("A", "B", "C")
	store := NewInMemoryStore()
	notifier := &RecordingNotifier{}
	p := NewSearchPoller(&fakeSearch{postings: postings}, pipeline.Request{Keywords: "x"}, store, notifier,
		discardLogger(), WithSilentSeed(true))

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.Notified) != 0 {
		t.Error("notifier should not be called on first run (seeding)")
	}
	for _, posting := range postings {
		if seen, _ := store.HasSeen(dedup.Fingerprint(posting)); !seen {
			t.Errorf("%s should be marked seen after seeding", posting.Title)
		}
	}
}

func TestPoll_SummarizesBeforeNotifying(t *testing.T) {
	notifier := &RecordingNotifier{}
	p := NewSearchPoller(&fakeSearch{postings: makePostings("A")}, pipeline.Request{Keywords: "go"}, NewInMemoryStore(),
		notifier, discardLogger(), WithSummarizer(prefixSummarizer{}))

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.Notified) != 1 || notifier.Notified[0].Summary != "go: A" {
		t.Errorf("notified = %+v", notifier.Notified)
	}
}

func TestPoll_DuplicateFingerprintsNotifiedOnce(t *testing.T) {
	postings := makePostings("A", "A")
	notifier := &RecordingNotifier{}
	p := NewSearchPoller(&fakeSearch{postings: postings}, pipeline.Request{Keywords: "x"}, NewInMemoryStore(), notifier, discardLogger())

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.Notified) != 1 {
		t.Errorf("notified = %d, want 1", len(notifier.Notified))
	}
}
