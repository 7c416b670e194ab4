package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/jobsift/internal/aggregate"
	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/browser"
	"github.com/amishk599/jobsift/internal/cache"
	"github.com/amishk599/jobsift/internal/config"
	"github.com/amishk599/jobsift/internal/filter"
	"github.com/amishk599/jobsift/internal/firecrawl"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/notifier"
	"github.com/amishk599/jobsift/internal/pipeline"
	"github.com/amishk599/jobsift/internal/rank"
	"github.com/amishk599/jobsift/internal/ratelimit"
	"github.com/amishk599/jobsift/internal/retry"
	"github.com/amishk599/jobsift/internal/source"
)

const (
	pageTimeout      = 10 * time.Second
	firecrawlTimeout = 45 * time.Second
	webhookTimeout   = 30 * time.Second
)

// app is everything a command needs to run searches.
type app struct {
	cfg        *config.Config
	orch       *pipeline.Orchestrator
	summarizer model.Summarizer // nil when AI is not configured
	closers    []func() error
	logger     *slog.Logger
}

// Close releases the browser, the cache and anything else opened by buildApp.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

type buildOptions struct {
	// keywordLimit attaches the per-keyword rate limiter. Long-running
	// pollers pace themselves and leave it off.
	keywordLimit bool
}

func buildApp(cfg *config.Config, logger *slog.Logger, opts buildOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	policy := retry.Policy{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.Retry.BaseDelay}

	var fc *firecrawl.Client
	if cfg.Firecrawl.Configured() {
		fc = firecrawl.NewClient(cfg.Firecrawl.BaseURL, cfg.Firecrawl.APIKey, &http.Client{Timeout: firecrawlTimeout})
	}

	sources, err := buildSources(cfg, fc, policy, a, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithCapabilities(cfg.Firecrawl.Configured(), cfg.AI.Configured()),
	}

	jobFilter := filter.NewTitleAndLocationFilter(
		cfg.Filters.TitleKeywords,
		cfg.Filters.TitleExcludeKeywords,
		cfg.Filters.Locations,
		cfg.Filters.ExcludeLocations,
	)
	if !jobFilter.Empty() {
		pipelineOpts = append(pipelineOpts, pipeline.WithFilter(jobFilter))
	}

	if cfg.Cache.Enabled {
		c, err := cache.NewSQLiteCache(cfg.Cache.TTL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		pipelineOpts = append(pipelineOpts, pipeline.WithCache(c))
	}

	if opts.keywordLimit && cfg.RateLimit.MinInterval > 0 {
		pipelineOpts = append(pipelineOpts, pipeline.WithRateLimiter(ratelimit.NewKeyedLimiter(cfg.RateLimit.MinInterval)))
	}

	a.orch = pipeline.New(
		sources,
		aggregate.New(cfg.Search.SourceTimeout, logger),
		rank.NewRanker(logger),
		logger,
		pipelineOpts...,
	)
	a.summarizer = setupSummarizer(cfg, logger)

	logger.Debug("pipeline ready",
		"sources", a.orch.SourceNames(),
		"cache", cfg.Cache.Enabled,
		"firecrawl", cfg.Firecrawl.Configured(),
		"ai", cfg.AI.Configured(),
	)
	return a, nil
}

func buildSources(cfg *config.Config, fc *firecrawl.Client, policy retry.Policy, a *app, logger *slog.Logger) ([]model.Source, error) {
	pageClient := &http.Client{Timeout: pageTimeout}
	gen := source.NewSampleGenerator(cfg.Sources.Sample.Seed)

	withFallback := func(s model.Source) model.Source {
		if cfg.Sources.Sample.Fallback {
			return source.WithSampleFallback(s, gen, logger)
		}
		return s
	}

	var sources []model.Source

	if cfg.Sources.Crawler.Enabled {
		var renderers []model.PageRenderer
		if fc != nil {
			renderers = append(renderers, retry.NewRenderer(fc, policy, logger))
		}
		if cfg.Sources.Crawler.Browser {
			br := browser.NewRenderer(logger)
			a.closers = append(a.closers, br.Close)
			renderers = append(renderers, retry.NewRenderer(br, policy, logger))
		}
		renderers = append(renderers, retry.NewRenderer(source.NewHTTPRenderer(pageClient), policy, logger))
		sources = append(sources, withFallback(source.NewCrawler(renderers, logger)))
	}

	if cfg.Sources.Search.Enabled {
		hosts := source.NewHostLimiter(cfg.Sources.Search.RequestsPerSecond, cfg.Sources.Search.Burst)
		engine := retry.NewSearcher(source.NewHTMLSearchEngine(cfg.Sources.Search.Endpoint, pageClient, hosts), policy, logger)

		var scraper source.MarkdownScraper
		if fc != nil {
			scraper = fc
		}
		sources = append(sources, withFallback(source.NewWebSearch(engine, scraper, pageClient, hosts, cfg.Sources.Search.MaxQueries, logger)))
	}

	if cfg.Sources.Boards.Enabled {
		boards := make([]source.Board, 0, len(cfg.Sources.Boards.Companies))
		for _, c := range cfg.Sources.Boards.Companies {
			boards = append(boards, source.Board{Company: c.Name, ATS: c.ATS, Token: c.Token})
		}
		sources = append(sources, source.NewBoards(boards, pageClient, policy, logger))
	}

	if cfg.Sources.Sample.Enabled {
		sources = append(sources, source.NewSample(gen))
	}

	if len(sources) == 0 {
		return nil, errors.New("no sources enabled")
	}

	if cfg.RateLimit.SourceInterval > 0 {
		paced := ratelimit.NewKeyedLimiter(cfg.RateLimit.SourceInterval)
		for i, s := range sources {
			sources[i] = ratelimit.NewSource(s, paced)
		}
	}
	return sources, nil
}

// setupSummarizer returns an LLM summarizer, or nil when AI is off.
func setupSummarizer(cfg *config.Config, logger *slog.Logger) model.Summarizer {
	if !cfg.AI.Configured() {
		return nil
	}
	provider := ai.NewOpenAIProvider(ai.ProviderConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		HTTPClient:  &http.Client{Timeout: cfg.AI.Timeout},
	})
	policy := retry.Policy{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.Retry.BaseDelay}
	logger.Debug("ai summaries enabled", "model", cfg.AI.Model)
	return ai.NewLLMSummarizer(provider, nil, policy, logger)
}

func setupNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, &http.Client{Timeout: webhookTimeout}, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// defaultRequest builds a request from the search section of the config.
func defaultRequest(cfg *config.Config, keywords string) pipeline.Request {
	return pipeline.Request{
		Keywords:     keywords,
		RecencyHours: cfg.Search.RecencyHours,
		MaxResults:   cfg.Search.MaxResults,
		Sequential:   cfg.Search.Sequential,
	}
}
