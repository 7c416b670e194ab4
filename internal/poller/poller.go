package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/dedup"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/pipeline"
)

// Searcher runs one pipeline search. *pipeline.Orchestrator satisfies it.
type Searcher interface {
	GetJobs(ctx context.Context, req pipeline.Request) ([]model.Posting, model.RunMetadata)
}

// SearchPoller owns the watch cycle for one keyword search:
// search → drop seen → summarize → notify → mark seen.
type SearchPoller struct {
	Name       string
	search     Searcher
	req        pipeline.Request
	store      model.SeenStore
	notifier   model.Notifier
	summarizer model.Summarizer
	seedSilent bool
	logger     *slog.Logger
}

// Option configures a SearchPoller.
type Option func(*SearchPoller)

// WithSummarizer replaces each new posting's summary before notifying.
func WithSummarizer(s model.Summarizer) Option {
	return func(p *SearchPoller) { p.summarizer = s }
}

// WithSilentSeed marks everything seen without notifying when the store is
// empty, so a fresh persistent store does not flood the channel.
func WithSilentSeed(on bool) Option {
	return func(p *SearchPoller) { p.seedSilent = on }
}

// NewSearchPoller creates a poller for req. The cache is always bypassed so
// each cycle sees fresh results.
func NewSearchPoller(
	search Searcher,
	req pipeline.Request,
	store model.SeenStore,
	notifier model.Notifier,
	logger *slog.Logger,
	opts ...Option,
) *SearchPoller {
	req.NoCache = true
	p := &SearchPoller{
		Name:     req.Keywords,
		search:   search,
		req:      req,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Poll runs one cycle.
func (p *SearchPoller) Poll(ctx context.Context) error {
	postings, meta := p.search.GetJobs(ctx, p.req)
	if meta.Error != nil {
		return fmt.Errorf("polling %q: %w", p.Name, meta.Error)
	}

	firstRun := false
	if p.seedSilent {
		empty, err := p.store.IsEmpty()
		if err != nil {
			return fmt.Errorf("polling %q: checking store: %w", p.Name, err)
		}
		firstRun = empty
	}

	var fresh []model.Posting
	var keys []string
	batch := make(map[string]struct{})
	for _, posting := range postings {
		key := dedup.Fingerprint(posting)
		if _, dup := batch[key]; dup {
			continue
		}
		batch[key] = struct{}{}

		seen, err := p.store.HasSeen(key)
		if err != nil {
			return fmt.Errorf("polling %q: checking seen status: %w", p.Name, err)
		}
		if !seen {
			fresh = append(fresh, posting)
			keys = append(keys, key)
		}
	}

	if firstRun {
		if err := p.markSeen(keys); err != nil {
			return err
		}
		p.logger.Info("seeded seen store", "keywords", p.Name, "postings", len(keys))
		return nil
	}

	if len(fresh) > 0 {
		if p.summarizer != nil {
			ai.SummarizeAll(ctx, p.summarizer, fresh, p.req.Keywords, 3, p.logger)
		}
		if err := p.notifier.Notify(ctx, fresh); err != nil {
			return fmt.Errorf("polling %q: notifying: %w", p.Name, err)
		}
	}

	if err := p.markSeen(keys); err != nil {
		return err
	}

	p.logger.Info("polled search",
		"keywords", p.Name,
		"found", len(postings),
		"new", len(fresh),
		"faults", len(meta.Faults),
		"elapsed", meta.Elapsed,
	)
	return nil
}

func (p *SearchPoller) markSeen(keys []string) error {
	for _, k := range keys {
		if err := p.store.MarkSeen(k); err != nil {
			return fmt.Errorf("polling %q: marking seen: %w", p.Name, err)
		}
	}
	return nil
}
