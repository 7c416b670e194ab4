// Package pipeline runs a job search end to end: fetch from every source,
// filter, deduplicate, then rank.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/jobsift/internal/aggregate"
	"github.com/amishk599/jobsift/internal/cache"
	"github.com/amishk599/jobsift/internal/dedup"
	"github.com/amishk599/jobsift/internal/filter"
	"github.com/amishk599/jobsift/internal/metrics"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/ratelimit"
)

const (
	// DefaultMaxResults is used when a request does not ask for a count.
	DefaultMaxResults = 10

	ModeParallel   = "parallel"
	ModeSequential = "sequential"
)

// Request is one search.
type Request struct {
	Keywords     string
	RecencyHours int
	MaxResults   int
	Sequential   bool
	// NoCache skips the cache lookup. The result is still stored.
	NoCache bool
}

func (r Request) mode() string {
	if r.Sequential {
		return ModeSequential
	}
	return ModeParallel
}

// Ranker orders postings best first and truncates to topN.
type Ranker interface {
	Rank(postings []model.Posting, keywords string, topN int) ([]model.Posting, []model.Fault)
}

// Orchestrator wires the sources, aggregator and ranker together. It holds
// no per-search state; the cache and limiter are the only shared state.
type Orchestrator struct {
	sources []model.Source
	agg     *aggregate.Aggregator
	ranker  Ranker
	filter  model.PostingFilter
	cache   cache.Cache
	limiter *ratelimit.KeyedLimiter
	logger  *slog.Logger

	firecrawlConfigured bool
	aiConfigured        bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFilter applies f to aggregated postings before deduplication.
func WithFilter(f model.PostingFilter) Option {
	return func(o *Orchestrator) { o.filter = f }
}

// WithCache caches results by search key.
func WithCache(c cache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithRateLimiter rejects repeat searches for the same keywords that arrive
// too quickly and cannot be answered from the cache.
func WithRateLimiter(l *ratelimit.KeyedLimiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithCapabilities records which optional backends are configured, for
// health reports.
func WithCapabilities(firecrawl, ai bool) Option {
	return func(o *Orchestrator) {
		o.firecrawlConfigured = firecrawl
		o.aiConfigured = ai
	}
}

// New returns an orchestrator over sources. Without options there is no
// filter, no cache and no rate limit.
func New(sources []model.Source, agg *aggregate.Aggregator, ranker Ranker, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sources: sources,
		agg:     agg,
		ranker:  ranker,
		cache:   cache.NewNopCache(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SourceNames lists the configured sources in order.
func (o *Orchestrator) SourceNames() []string {
	names := make([]string, len(o.sources))
	for i, s := range o.sources {
		names[i] = s.Name()
	}
	return names
}

// GetJobs runs one search. It never panics and never returns an error
// directly: a rejected or failed search comes back as an empty list with
// metadata.Error set.
func (o *Orchestrator) GetJobs(ctx context.Context, req Request) (postings []model.Posting, meta model.RunMetadata) {
	start := time.Now()
	meta = model.RunMetadata{Mode: req.mode(), SourceCounts: map[string]int{}}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("search failed", "keywords", req.Keywords, "panic", r)
			postings = []model.Posting{}
			meta.Error = faultPtr(model.NewFault(model.FaultCatastrophic, "pipeline", fmt.Errorf("search failed: %v", r)))
			meta.Total = 0
		}
		meta.Elapsed = time.Since(start)
		metrics.ObserveRun(meta.Mode, runStatus(meta), meta.Elapsed)
	}()

	if strings.TrimSpace(req.Keywords) == "" {
		meta.Error = faultPtr(model.NewFault(model.FaultValidation, "", model.ErrMissingKeywords))
		return []model.Posting{}, meta
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}

	key := cache.Key(req.Keywords, req.RecencyHours, req.MaxResults, meta.Mode)
	if !req.NoCache {
		if cached, ok := o.lookup(ctx, key); ok {
			return cached.Postings, cached.Metadata
		}
	}

	if o.limiter != nil {
		if ok, wait := o.limiter.Allow(ratelimit.KeywordKey(req.Keywords)); !ok {
			meta.Error = faultPtr(model.NewFault(model.FaultValidation, "",
				fmt.Errorf("%w: retry in %s", model.ErrRateLimited, wait.Round(time.Second))))
			return []model.Posting{}, meta
		}
	}

	o.logger.Info("starting search", "keywords", req.Keywords, "hours", req.RecencyHours, "max", req.MaxResults, "mode", meta.Mode)
	postings = o.run(ctx, req, &meta)

	if len(postings) > 0 {
		stored := meta
		stored.Elapsed = time.Since(start)
		if err := o.cache.Put(ctx, key, cache.Entry{Postings: postings, Metadata: stored}); err != nil {
			o.logger.Warn("caching result failed", "key", key, "error", err)
		}
	}

	o.logger.Info("search complete",
		"keywords", req.Keywords,
		"fetched", meta.Fetched,
		"unique", meta.Unique,
		"total", meta.Total,
		"faults", len(meta.Faults),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return postings, meta
}

func (o *Orchestrator) run(ctx context.Context, req Request, meta *model.RunMetadata) []model.Posting {
	q := model.Query{Keywords: req.Keywords, RecencyHours: req.RecencyHours}

	var out aggregate.Outcome
	if req.Sequential {
		out = o.agg.Sequential(ctx, o.sources, q, req.MaxResults)
	} else {
		q.Budget = max(req.MaxResults/2, 1)
		out = o.agg.Aggregate(ctx, o.sources, q)
	}

	meta.SourceCounts = out.SourceCounts
	meta.Fetched = len(out.Postings)
	meta.Fallback = out.Fallback
	meta.AddFaults(out.Faults...)

	candidates := filter.Apply(o.filter, out.Postings)
	if n := len(out.Postings) - len(candidates); n > 0 {
		o.logger.Debug("postings filtered out", "count", n)
	}

	unique := dedup.DedupeWithStats(candidates)
	metrics.DedupDroppedTotal.Add(float64(unique.Dropped))
	meta.Unique = len(unique.Postings)

	ranked, faults, err := o.rank(unique.Postings, req.Keywords, req.MaxResults)
	meta.AddFaults(faults...)
	if err != nil {
		o.logger.Error("ranking failed, returning unranked postings", "error", err)
		meta.AddFaults(model.NewFault(model.FaultScoring, "ranker", err))
		meta.Fallback = true
		ranked = unique.Postings
		if len(ranked) > req.MaxResults {
			ranked = ranked[:req.MaxResults]
		}
	}

	meta.Total = len(ranked)
	return ranked
}

// rank isolates the ranker so a failure of the whole scorer degrades to
// unranked output instead of failing the search.
func (o *Orchestrator) rank(postings []model.Posting, keywords string, topN int) (ranked []model.Posting, faults []model.Fault, err error) {
	if len(postings) == 0 {
		return []model.Posting{}, nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ranked, faults = nil, nil
			err = fmt.Errorf("ranker panic: %v", r)
		}
	}()
	ranked, faults = o.ranker.Rank(postings, keywords, topN)
	return ranked, faults, nil
}

func (o *Orchestrator) lookup(ctx context.Context, key string) (cache.Entry, bool) {
	e, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		o.logger.Warn("cache lookup failed", "key", key, "error", err)
		return cache.Entry{}, false
	}
	metrics.CacheHit(ok)
	if ok {
		o.logger.Debug("serving cached result", "key", key, "age", time.Since(e.StoredAt).Round(time.Second))
		e.Metadata.Cached = true
	}
	return e, ok
}

// ClearCache drops every cached result.
func (o *Orchestrator) ClearCache(ctx context.Context) error {
	return o.cache.Clear(ctx)
}

// InvalidateCache drops the cached result for req.
func (o *Orchestrator) InvalidateCache(ctx context.Context, req Request) error {
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	return o.cache.Invalidate(ctx, cache.Key(req.Keywords, req.RecencyHours, req.MaxResults, req.mode()))
}

// CacheInfo describes the cache contents.
func (o *Orchestrator) CacheInfo(ctx context.Context) (cache.Info, error) {
	return o.cache.Info(ctx)
}

func runStatus(meta model.RunMetadata) string {
	switch {
	case meta.Error != nil:
		return "error"
	case meta.Cached:
		return "cached"
	case meta.Fallback:
		return "fallback"
	default:
		return "ok"
	}
}

func faultPtr(f model.Fault) *model.Fault {
	return &f
}
