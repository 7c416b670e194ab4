package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/amishk599/jobsift/internal/model"
)

// SearchName identifies the web search source in run metadata.
const SearchName = "search"

const (
	// DefaultMaxQueries bounds how many search queries one fetch issues.
	DefaultMaxQueries = 5
	descriptionLimit  = 500
	recentPosted      = "Recent"
)

var (
	jobSites = []string{
		"linkedin.com/jobs", "indeed.com", "glassdoor.com",
		"monster.com", "ziprecruiter.com", "simplyhired.com",
	}
	jobIndicators = []string{
		"job", "career", "position", "opening", "hiring",
		"employment", "vacancy", "work", "apply",
	}
	headingPrefixRegex = regexp.MustCompile(`^#+\s*`)
)

// SearchEngine returns result URLs for a web search query.
type SearchEngine interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// MarkdownScraper converts a page to markdown. Optional for WebSearch.
type MarkdownScraper interface {
	Markdown(ctx context.Context, url string) (string, error)
}

// WebSearch finds job pages through a web search engine and extracts one
// posting per page.
type WebSearch struct {
	engine     SearchEngine
	scraper    MarkdownScraper
	client     *http.Client
	limiter    *HostLimiter
	maxQueries int
	logger     *slog.Logger
}

// NewWebSearch builds the search source. scraper may be nil, in which case
// pages are fetched directly and only their <title> is used.
func NewWebSearch(engine SearchEngine, scraper MarkdownScraper, client *http.Client, limiter *HostLimiter, maxQueries int, logger *slog.Logger) *WebSearch {
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}
	return &WebSearch{
		engine:     engine,
		scraper:    scraper,
		client:     client,
		limiter:    limiter,
		maxQueries: maxQueries,
		logger:     logger,
	}
}

func (s *WebSearch) Name() string { return SearchName }

// BuildQueries returns the search queries for keywords, at most limit of them.
func BuildQueries(keywords string, limit int) []string {
	kw := strings.TrimSpace(keywords)
	queries := []string{
		fmt.Sprintf(`site:linkedin.com/jobs "%s" "posted" "ago"`, kw),
		fmt.Sprintf(`site:linkedin.com/jobs/%s`, strings.ReplaceAll(kw, " ", "-")),
		fmt.Sprintf(`linkedin jobs %s recent`, kw),
	}
	for _, site := range []string{"indeed.com", "glassdoor.com", "monster.com", "ziprecruiter.com"} {
		queries = append(queries, fmt.Sprintf(`site:%s "%s" jobs`, site, kw))
	}
	queries = append(queries,
		fmt.Sprintf(`"%s" jobs "posted today"`, kw),
		fmt.Sprintf(`"%s" hiring "apply now"`, kw),
		fmt.Sprintf(`latest %s job openings`, kw),
	)
	if limit > 0 && len(queries) > limit {
		queries = queries[:limit]
	}
	return queries
}

// IsJobURL reports whether raw looks like a job posting: a known job board
// or a URL containing a job-related word.
func IsJobURL(raw string) bool {
	if raw == "" {
		return false
	}
	u := strings.ToLower(raw)
	for _, site := range jobSites {
		if strings.Contains(u, site) {
			return true
		}
	}
	for _, w := range jobIndicators {
		if strings.Contains(u, w) {
			return true
		}
	}
	return false
}

// Fetch searches for job pages and extracts up to q.Budget postings.
func (s *WebSearch) Fetch(ctx context.Context, q model.Query) model.FetchResult {
	res := model.FetchResult{Source: SearchName}
	if strings.TrimSpace(q.Keywords) == "" {
		return res
	}
	budget := max(q.Budget, 1)

	urls, faults := s.collectURLs(ctx, q.Keywords, budget*2)
	res.Faults = append(res.Faults, faults...)

	var failed int
	var lastErr error
	for _, u := range urls {
		if len(res.Postings) >= budget {
			break
		}
		if err := s.limiter.WaitURL(ctx, u); err != nil {
			res.Faults = append(res.Faults, model.NewFault(model.FaultAdapter, SearchName, err))
			break
		}
		p, err := s.extract(ctx, u)
		if err != nil {
			s.logger.Debug("extraction failed", "url", u, "error", err)
			failed++
			lastErr = err
			continue
		}
		res.Postings = append(res.Postings, p)
	}

	if failed > 0 && len(res.Postings) == 0 {
		res.Faults = append(res.Faults, model.NewFault(model.FaultAdapter, SearchName,
			fmt.Errorf("%d pages could not be extracted: %w", failed, lastErr)))
	}
	s.logger.Info("search extraction complete", "urls", len(urls), "postings", len(res.Postings), "failed", failed)
	return res
}

// collectURLs runs every query and returns unique job URLs, at most limit.
func (s *WebSearch) collectURLs(ctx context.Context, keywords string, limit int) ([]string, []model.Fault) {
	queries := BuildQueries(keywords, s.maxQueries)
	perQuery := limit/len(queries) + 2

	var faults []model.Fault
	seen := make(map[string]struct{})
	var urls []string
	for _, query := range queries {
		if ctx.Err() != nil {
			faults = append(faults, model.NewFault(model.FaultAdapter, SearchName, ctx.Err()))
			break
		}
		found, err := s.engine.Search(ctx, query, perQuery)
		if err != nil {
			s.logger.Warn("search query failed", "query", query, "error", err)
			faults = append(faults, model.NewFault(model.FaultAdapter, SearchName, fmt.Errorf("query %q: %w", query, err)))
			continue
		}
		for _, u := range found {
			if !IsJobURL(u) {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	if len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, faults
}

func (s *WebSearch) extract(ctx context.Context, pageURL string) (model.Posting, error) {
	if s.scraper != nil {
		md, err := s.scraper.Markdown(ctx, pageURL)
		if err == nil && md != "" {
			var p model.Posting
			var ok bool
			if strings.Contains(strings.ToLower(pageURL), "linkedin.com/jobs") {
				p, ok = ParseLinkedInMarkdown(md, pageURL)
			} else {
				p, ok = ParseGenericMarkdown(md, pageURL)
			}
			if !ok {
				return model.Posting{}, errors.New("no title in page markdown")
			}
			return p, nil
		}
		if err != nil {
			s.logger.Debug("markdown scrape failed, fetching page directly", "url", pageURL, "error", err)
		}
	}
	return s.extractHTML(ctx, pageURL)
}

func (s *WebSearch) extractHTML(ctx context.Context, pageURL string) (model.Posting, error) {
	page, err := getPage(ctx, s.client, pageURL)
	if err != nil {
		return model.Posting{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return model.Posting{}, fmt.Errorf("parsing html: %w", err)
	}
	title := firstText(doc.Selection, "title", "h1")
	if title == "" {
		return model.Posting{}, errors.New("page has no title")
	}
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	return model.Posting{
		Title:       title,
		Company:     companyFromURL(pageURL),
		Location:    model.UnknownLocation,
		TimePosted:  recentPosted,
		Link:        pageURL,
		Description: truncate(extractText(desc), descriptionLimit),
		Source:      SearchName,
	}, nil
}

// Healthy checks that queries can be built.
func (s *WebSearch) Healthy(_ context.Context) error {
	if len(BuildQueries("health check", s.maxQueries)) == 0 {
		return errors.New("no search queries")
	}
	if s.engine == nil {
		return errors.New("no search engine configured")
	}
	return nil
}

// ParseLinkedInMarkdown reads a LinkedIn job page rendered as markdown. The
// first heading is the title; lines mentioning a company or location fill
// those fields, later lines overriding earlier ones.
func ParseLinkedInMarkdown(md, pageURL string) (model.Posting, bool) {
	var title, company, location string
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)

		if strings.HasPrefix(line, "#") && title == "" {
			title = headingPrefixRegex.ReplaceAllString(line, "")
		}
		if containsAnyOf(lower, "company:", "at ", "employer:") {
			company = afterLastColon(line)
		}
		if containsAnyOf(lower, "location:", "city:", "remote") {
			location = afterLastColon(line)
		}
	}
	if title == "" {
		return model.Posting{}, false
	}
	return model.Posting{
		Title:       title,
		Company:     orDefault(company, model.UnknownCompany),
		Location:    orDefault(location, model.UnknownLocation),
		TimePosted:  recentPosted,
		Link:        pageURL,
		Description: truncate(md, descriptionLimit),
		Source:      SearchName,
	}, true
}

// ParseGenericMarkdown reads any job page rendered as markdown. The company
// is derived from the site's domain.
func ParseGenericMarkdown(md, pageURL string) (model.Posting, bool) {
	var title string
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			title = headingPrefixRegex.ReplaceAllString(line, "")
			break
		}
	}
	if title == "" {
		return model.Posting{}, false
	}
	return model.Posting{
		Title:       title,
		Company:     companyFromURL(pageURL),
		Location:    model.UnknownLocation,
		TimePosted:  recentPosted,
		Link:        pageURL,
		Description: truncate(md, descriptionLimit),
		Source:      SearchName,
	}, true
}

// companyFromURL guesses a company name from the first domain label,
// e.g. https://careers.acme.com/x -> "Careers".
func companyFromURL(raw string) string {
	host := hostOf(raw)
	if host == "" {
		return model.UnknownCompany
	}
	label, _, _ := strings.Cut(host, ".")
	return cases.Title(language.English).String(label)
}

func afterLastColon(line string) string {
	if i := strings.LastIndex(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

func containsAnyOf(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
