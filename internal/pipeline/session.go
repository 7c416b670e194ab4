package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/amishk599/jobsift/internal/model"
)

// Session is the state a front end keeps across searches: counters and the
// last result. Each front end owns its own Session.
type Session struct {
	mu           sync.Mutex
	searchCount  int
	lastSearch   time.Time
	lastRequest  Request
	lastPostings []model.Posting
	lastMeta     model.RunMetadata
}

// SessionState is a point-in-time copy of a Session.
type SessionState struct {
	SearchCount  int               `json:"search_count"`
	LastSearch   time.Time         `json:"last_search"`
	LastKeywords string            `json:"last_keywords"`
	LastTotal    int               `json:"last_total"`
	LastMetadata model.RunMetadata `json:"last_metadata"`
}

// Search runs req through o and records the outcome.
func (s *Session) Search(ctx context.Context, o *Orchestrator, req Request) ([]model.Posting, model.RunMetadata) {
	postings, meta := o.GetJobs(ctx, req)
	s.Record(req, postings, meta, time.Now())
	return postings, meta
}

// Record stores a search outcome. Failed searches are counted but do not
// replace the last good result.
func (s *Session) Record(req Request, postings []model.Posting, meta model.RunMetadata, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchCount++
	s.lastSearch = at
	s.lastRequest = req
	if meta.Failed() {
		return
	}
	s.lastPostings = append([]model.Posting(nil), postings...)
	s.lastMeta = meta
}

// LastResult returns the last successful result and the request that
// produced it.
func (s *Session) LastResult() (Request, []model.Posting, model.RunMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequest, append([]model.Posting(nil), s.lastPostings...), s.lastMeta
}

// Due reports whether an auto-refresh is due at now.
func (s *Session) Due(now time.Time, interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchCount > 0 && now.Sub(s.lastSearch) >= interval
}

// State returns a copy of the session counters.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		SearchCount:  s.searchCount,
		LastSearch:   s.lastSearch,
		LastKeywords: s.lastRequest.Keywords,
		LastTotal:    len(s.lastPostings),
		LastMetadata: s.lastMeta,
	}
}
