package source

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/amishk599/jobsift/internal/model"
)

// SampleName identifies the standalone sample source in run metadata.
const SampleName = "sample"

const (
	maxSamples        = 10
	maxSampleAttempts = 100
)

var (
	sampleCompanies = []string{
		"Microsoft", "Google", "Apple", "Amazon", "Meta", "Netflix", "Tesla",
		"Spotify", "Uber", "Airbnb", "Salesforce", "Adobe", "Intel", "NVIDIA",
		"Stripe", "Shopify", "Zoom", "Slack", "Discord", "Notion", "Figma",
		"Twitter", "LinkedIn", "Pinterest", "Reddit", "TikTok", "Snap Inc",
		"DocuSign", "Atlassian", "Asana", "Dropbox", "Box", "Palantir",
		"Snowflake", "Databricks", "Unity", "Epic Games", "Roblox", "Coinbase",
		"Vercel", "GitLab", "GitHub", "MongoDB", "Redis", "Elastic", "Docker",
	}
	sampleLocations = []string{
		"San Francisco, CA", "New York, NY", "Seattle, WA", "Austin, TX",
		"Los Angeles, CA", "Chicago, IL", "Boston, MA", "Denver, CO",
		"Portland, OR", "Miami, FL", "Atlanta, GA", "Remote - Worldwide",
		"Remote - US", "Remote - Americas", "London, UK", "Berlin, Germany",
		"Paris, France", "Amsterdam, Netherlands", "Toronto, Canada", "Vancouver, Canada",
		"Sydney, Australia", "Melbourne, Australia", "Tokyo, Japan", "Singapore",
		"Tel Aviv, Israel", "Dublin, Ireland", "Stockholm, Sweden", "Zurich, Switzerland",
	}
	titlePrefixes = []string{"Senior", "Lead", "Principal", "Staff", "Director of", "VP of", "Head of"}
	titleSuffixes = []string{"Engineer", "Developer", "Architect", "Specialist", "Manager", "Consultant", "Expert"}
	specialties   = []string{"Backend", "Frontend", "Full Stack", "DevOps", "Cloud", "Mobile", "AI/ML"}
	dataRoles     = []string{
		"Data Scientist", "Data Engineer", "Data Analyst", "ML Engineer", "AI Researcher",
		"Data Platform Engineer", "Research Scientist", "Analytics Engineer",
	}
	descriptionTemplates = []string{
		"Join our innovative team working on cutting-edge %s solutions. We're building the next generation of technology that will transform how people work and live.",
		"Exciting %s role at a fast-growing company. Work with modern technologies like React, Python, AWS, and Kubernetes to impact millions of users worldwide.",
		"Remote-first company seeking talented %s professional. Competitive salary ($120k-180k), excellent benefits, and unlimited PTO in a flexible work environment.",
		"Leading tech company hiring %s expert. Join our world-class engineering team to revolutionize the industry with breakthrough AI and machine learning innovations.",
		"Dynamic startup environment looking for %s talent. High growth potential, equity opportunities, and the chance to shape product direction from early stage.",
		"Enterprise-scale %s position with global impact. Work on complex distributed systems alongside top-tier engineers from Google, Meta, and Amazon.",
		"Mission-driven organization seeking %s professional. Make a difference while working on meaningful healthcare/climate/education projects that matter.",
		"Fast-paced %s role with significant technical challenges. Opportunity to learn cutting-edge technologies and advance your career rapidly.",
		"Innovative %s position focusing on scalability and performance. Build systems that serve 100M+ users with 99.99%% uptime requirements.",
		"Strategic %s role with leadership opportunities. Help drive technical decisions, mentor junior developers, and establish engineering best practices.",
	}
)

// SampleGenerator produces plausible but fictitious postings so the pipeline
// still has output when every real backend comes back empty. Output is fully
// determined by the seed.
type SampleGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampleGenerator returns a generator seeded with seed. A zero seed uses
// the current time.
func NewSampleGenerator(seed uint64) *SampleGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SampleGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns up to 10 postings for keywords. No two postings share the
// same title, company and location.
func (g *SampleGenerator) Generate(keywords string) []model.Posting {
	g.mu.Lock()
	defer g.mu.Unlock()

	kw := strings.TrimSpace(keywords)
	times := []string{
		fmt.Sprintf("%d minutes ago", g.between(30, 59)),
		fmt.Sprintf("%d hours ago", g.between(1, 5)),
		fmt.Sprintf("%d hours ago", g.between(6, 12)),
		fmt.Sprintf("%d days ago", g.between(1, 2)),
	}

	used := make(map[string]struct{})
	var out []model.Posting
	for attempt := 0; len(out) < maxSamples && attempt < maxSampleAttempts; attempt++ {
		title := g.title(kw)
		company := pick(g.rng, sampleCompanies)
		location := pick(g.rng, sampleLocations)

		key := title + "_" + company + "_" + location
		if _, dup := used[key]; dup {
			continue
		}
		used[key] = struct{}{}

		out = append(out, model.Posting{
			Title:       title,
			Company:     company,
			Location:    location,
			TimePosted:  pick(g.rng, times),
			Link:        g.link(),
			Description: fmt.Sprintf(pick(g.rng, descriptionTemplates), kw),
			Source:      SampleName,
		})
	}

	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (g *SampleGenerator) title(keywords string) string {
	lower := strings.ToLower(keywords)
	var variants []string
	switch {
	case strings.Contains(lower, "data"):
		variants = []string{
			pick(g.rng, titlePrefixes) + " " + pick(g.rng, dataRoles),
			pick(g.rng, dataRoles) + " - " + pick(g.rng, []string{"Remote", "Hybrid", "San Francisco"}),
			pick(g.rng, dataRoles) + " (" + pick(g.rng, []string{"Python", "R", "SQL", "Spark"}) + ")",
		}
	case strings.Contains(lower, "software") || strings.Contains(lower, "engineer"):
		variants = []string{
			pick(g.rng, titlePrefixes) + " " + pick(g.rng, specialties) + " " + pick(g.rng, titleSuffixes),
			pick(g.rng, specialties) + " Engineer - " + pick(g.rng, []string{"Fintech", "Healthcare", "Gaming"}),
			"Software Engineer (" + pick(g.rng, []string{"Go", "Rust", "TypeScript", "Kotlin"}) + ")",
		}
	default:
		titled := cases.Title(language.English).String(keywords)
		variants = []string{
			pick(g.rng, titlePrefixes) + " " + titled + " " + pick(g.rng, titleSuffixes),
			titled + " - " + pick(g.rng, []string{"Remote", "Leadership", "Growth"}),
			titled + " (" + pick(g.rng, []string{"5+ YOE", "10+ YOE", "Director Level"}) + ")",
		}
	}
	return pick(g.rng, variants)
}

func (g *SampleGenerator) link() string {
	var suffix string
	if id, err := uuid.NewRandomFromReader(rngReader{g.rng}); err == nil {
		suffix = strings.ReplaceAll(id.String(), "-", "")[:8]
	} else {
		suffix = fmt.Sprintf("%08x", g.rng.Uint32())
	}
	return fmt.Sprintf("https://linkedin.com/jobs/view/%d_%s", g.between(1000000, 9999999), suffix)
}

// between returns a uniform int in [lo, hi].
func (g *SampleGenerator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func pick[T any](r *rand.Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// rngReader adapts a seeded generator to io.Reader for uuid generation.
type rngReader struct{ r *rand.Rand }

func (rr rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(rr.r.Uint32())
	}
	return len(p), nil
}

// Sample is a source that only returns generated postings. Useful offline.
type Sample struct {
	gen *SampleGenerator
}

// NewSample wraps gen as a source.
func NewSample(gen *SampleGenerator) *Sample {
	return &Sample{gen: gen}
}

func (s *Sample) Name() string { return SampleName }

// Fetch returns generated postings.
func (s *Sample) Fetch(_ context.Context, q model.Query) model.FetchResult {
	if strings.TrimSpace(q.Keywords) == "" {
		return model.FetchResult{Source: SampleName}
	}
	return model.FetchResult{Source: SampleName, Postings: s.gen.Generate(q.Keywords), Fallback: true}
}

// FallbackSource wraps a source with the sample generator: when the inner
// source yields nothing, generated postings are returned instead.
type FallbackSource struct {
	inner  model.Source
	gen    *SampleGenerator
	logger *slog.Logger
}

// maxFallbackReserve caps how much of the caller's deadline is held back so
// the generator can still run after the inner source times out.
const maxFallbackReserve = 2 * time.Second

// WithSampleFallback decorates inner with the sample generator.
func WithSampleFallback(inner model.Source, gen *SampleGenerator, logger *slog.Logger) *FallbackSource {
	return &FallbackSource{inner: inner, gen: gen, logger: logger}
}

func (f *FallbackSource) Name() string { return f.inner.Name() }

// Fetch delegates to the inner source and substitutes generated postings
// when it returns none. Faults from the inner source are kept.
func (f *FallbackSource) Fetch(ctx context.Context, q model.Query) model.FetchResult {
	innerCtx := ctx
	if deadline, ok := ctx.Deadline(); ok {
		reserve := min(time.Until(deadline)/10, maxFallbackReserve)
		var cancel context.CancelFunc
		innerCtx, cancel = context.WithDeadline(ctx, deadline.Add(-reserve))
		defer cancel()
	}

	res := f.inner.Fetch(innerCtx, q)
	res.Source = f.inner.Name()
	if len(res.Postings) > 0 || strings.TrimSpace(q.Keywords) == "" {
		return res
	}

	f.logger.Info("source returned no postings, using generated samples", "source", res.Source)
	samples := f.gen.Generate(q.Keywords)
	for i := range samples {
		samples[i].Source = res.Source
	}
	res.Postings = samples
	res.Fallback = true
	return res
}

// Healthy delegates to the inner source when it supports health checks.
func (f *FallbackSource) Healthy(ctx context.Context) error {
	if hc, ok := f.inner.(model.HealthChecker); ok {
		return hc.Healthy(ctx)
	}
	return nil
}
