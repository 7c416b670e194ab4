// Package rank scores postings for keyword relevance and recency and orders
// them best first.
package rank

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/amishk599/jobsift/internal/model"
)

// SummaryFunc builds the summary text for a scored posting.
type SummaryFunc func(p model.Posting, keywords string) string

// Ranker scores and orders postings.
type Ranker struct {
	summarize SummaryFunc
	logger    *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithSummary replaces the default summary builder.
func WithSummary(fn SummaryFunc) Option {
	return func(r *Ranker) { r.summarize = fn }
}

// NewRanker returns a Ranker using the built-in summary builder.
func NewRanker(logger *slog.Logger, opts ...Option) *Ranker {
	r := &Ranker{summarize: Summary, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every posting, sorts them by combined score (highest first,
// ties keep input order) and returns at most topN of them. A posting that
// fails to score is kept with a relevance-only score and a basic summary; the
// failure is reported as a scoring fault.
func (r *Ranker) Rank(postings []model.Posting, keywords string, topN int) ([]model.Posting, []model.Fault) {
	if len(postings) == 0 || topN <= 0 {
		return []model.Posting{}, nil
	}

	terms := Keywords(keywords)
	scored := make([]model.Posting, 0, len(postings))
	var faults []model.Fault
	for _, p := range postings {
		out, err := r.score(p, keywords, terms)
		if err != nil {
			r.logger.Warn("scoring failed, using basic score", "title", p.Title, "error", err)
			faults = append(faults, model.NewFault(model.FaultScoring, "ranker", fmt.Errorf("%q: %w", p.Title, err)))
			out = p
			out.Summary = BasicSummary(p)
			out.RelevanceScore = RelevanceScore(p, terms)
		}
		scored = append(scored, out)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}

	r.logger.Debug("ranked postings", "input", len(postings), "output", len(scored), "scoring_faults", len(faults))
	return scored, faults
}

func (r *Ranker) score(p model.Posting, keywords string, terms []string) (out model.Posting, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	relevance := RelevanceScore(p, terms)
	recency := RecencyScore(p.TimePosted)
	p.Summary = r.summarize(p, keywords)
	p.RelevanceScore = CombinedScore(relevance, recency)
	return p, nil
}

// SelfCheck scores a fixed posting and reports whether the scorer works.
func (r *Ranker) SelfCheck() error {
	probe := model.Posting{Title: "Software Engineer", Company: "Example", TimePosted: "1 hour ago"}
	_, err := r.score(probe, "software", Keywords("software"))
	return err
}
