package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsift/internal/filter"
	"github.com/amishk599/jobsift/internal/model"
)

// CrawlerName identifies the listing-page crawler in run metadata.
const CrawlerName = "crawler"

const (
	linkedInSearchURL = "https://www.linkedin.com/jobs/search/"
	linkedInOrigin    = "https://linkedin.com"
	maxCards          = 20
)

var (
	keywordCleanRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

	// Card selectors, tried in order.
	cardSelectors = []string{
		`div[class*="job-search-card"], div[class*="jobs-search__results-list"]`,
		`li[class*="result-card"], li[class*="job-result-card"]`,
	}
)

// Crawler scrapes the public LinkedIn job search page. The page is rendered
// by the first renderer in the chain that produces parseable job cards.
type Crawler struct {
	renderers []model.PageRenderer
	logger    *slog.Logger
}

// NewCrawler returns a crawler that tries renderers in order.
func NewCrawler(renderers []model.PageRenderer, logger *slog.Logger) *Crawler {
	return &Crawler{renderers: renderers, logger: logger}
}

func (c *Crawler) Name() string { return CrawlerName }

// BuildSearchURL returns the job search URL for keywords posted within the
// last hours.
func BuildSearchURL(keywords string, hours int) string {
	if hours <= 0 {
		hours = 1
	}
	clean := cleanText(keywordCleanRegex.ReplaceAllString(keywords, ""))
	params := url.Values{}
	params.Set("f_TPR", "r"+strconv.Itoa(hours*3600))
	params.Set("keywords", clean)
	params.Set("origin", "JOBS_HOME_SEARCH_BUTTON")
	return linkedInSearchURL + "?" + params.Encode()
}

// Fetch renders the search page and parses the job cards on it.
func (c *Crawler) Fetch(ctx context.Context, q model.Query) model.FetchResult {
	res := model.FetchResult{Source: CrawlerName}
	if strings.TrimSpace(q.Keywords) == "" {
		return res
	}

	pageURL := BuildSearchURL(q.Keywords, q.RecencyHours)
	for _, r := range c.renderers {
		if ctx.Err() != nil {
			res.Faults = append(res.Faults, model.NewFault(model.FaultAdapter, CrawlerName, ctx.Err()))
			break
		}

		c.logger.Debug("rendering search page", "renderer", r.Name(), "url", pageURL)
		page, err := r.Render(ctx, pageURL)
		if err != nil {
			c.logger.Warn("renderer failed", "renderer", r.Name(), "error", err)
			res.Faults = append(res.Faults, model.NewFault(model.FaultAdapter, CrawlerName, fmt.Errorf("%s: %w", r.Name(), err)))
			continue
		}

		postings, err := ParseCards(page)
		if err != nil {
			res.Faults = append(res.Faults, model.NewFault(model.FaultAdapter, CrawlerName, fmt.Errorf("%s: %w", r.Name(), err)))
			continue
		}
		postings = filter.Valid(postings)
		if len(postings) == 0 {
			c.logger.Info("no job cards found", "renderer", r.Name())
			continue
		}

		c.logger.Info("crawled postings", "renderer", r.Name(), "count", len(postings))
		res.Postings = postings
		return res
	}
	return res
}

// Healthy reports whether the crawler has anything to render pages with.
func (c *Crawler) Healthy(_ context.Context) error {
	if len(c.renderers) == 0 {
		return errors.New("no page renderers configured")
	}
	return nil
}

// ParseCards extracts postings from a job search results page. At most 20
// cards are read. Missing fields get the Unknown* placeholders.
func ParseCards(page string) ([]model.Posting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		cards = doc.Find(sel)
		if cards.Length() > 0 {
			break
		}
	}

	var postings []model.Posting
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= maxCards {
			return false
		}
		postings = append(postings, parseCard(card))
		return true
	})
	return postings, nil
}

func parseCard(card *goquery.Selection) model.Posting {
	link, _ := card.Find("a[href]").First().Attr("href")
	link = strings.TrimSpace(link)
	if link != "" && !strings.HasPrefix(link, "http") {
		link = linkedInOrigin + link
	}

	return model.Posting{
		Title:      orDefault(firstText(card, "h3", `a[class*="job-title"]`), model.UnknownTitle),
		Company:    orDefault(firstText(card, "h4", `a[class*="company"]`), model.UnknownCompany),
		Location:   orDefault(firstText(card, `span[class*="location"]`), model.UnknownLocation),
		TimePosted: orDefault(firstText(card, "time", `span[class*="time"], span[class*="date"]`), model.UnknownTime),
		Link:       link,
		Source:     CrawlerName,
	}
}
