package model

import (
	"context"
	"strings"
)

// Placeholder values adapters use when a field could not be extracted.
const (
	UnknownTitle    = "Unknown Title"
	UnknownCompany  = "Unknown Company"
	UnknownLocation = "Unknown Location"
	UnknownTime     = "Unknown Time"
)

// Posting is one job opening as surfaced by any source.
type Posting struct {
	Title          string  `json:"title"`
	Company        string  `json:"company"`
	Location       string  `json:"location"`
	TimePosted     string  `json:"time_posted"`
	Link           string  `json:"link"`
	Description    string  `json:"description,omitempty"`
	Summary        string  `json:"summary,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
	Source         string  `json:"source,omitempty"`
}

// HasValidTitle reports whether the posting carries a usable title.
func (p Posting) HasValidTitle() bool {
	t := strings.TrimSpace(p.Title)
	return t != "" && t != UnknownTitle
}

// Query is the input handed to every source on a run.
type Query struct {
	Keywords     string
	RecencyHours int
	// Budget is the number of postings the source is asked for. Sources
	// with a fixed page size may ignore it.
	Budget int
}

// FetchResult is what a source returns. Sources never return errors; failures
// are reported as faults next to whatever postings could be salvaged.
type FetchResult struct {
	Source   string
	Postings []Posting
	Faults   []Fault
	// Fallback is set when the postings came from the sample generator.
	Fallback bool
}

// Source fetches postings for a query from one backend.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) FetchResult
}

// HealthChecker is implemented by sources that can report readiness without
// running a full fetch.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// PageRenderer turns a URL into page HTML. Implementations range from a plain
// HTTP GET to a headless browser.
type PageRenderer interface {
	Name() string
	Render(ctx context.Context, url string) (string, error)
}

// Notifier sends notifications for newly seen postings.
type Notifier interface {
	Notify(ctx context.Context, postings []Posting) error
}

// PostingFilter decides whether a posting matches the user's criteria.
type PostingFilter interface {
	Match(p Posting) bool
}

// SeenStore tracks which posting fingerprints have already been reported.
type SeenStore interface {
	HasSeen(key string) (bool, error)
	MarkSeen(key string) error
	IsEmpty() (bool, error)
}

// Summarizer produces a short human-readable summary for a posting in the
// context of the keywords that surfaced it.
type Summarizer interface {
	Summarize(ctx context.Context, p Posting, keywords string) (string, error)
}
