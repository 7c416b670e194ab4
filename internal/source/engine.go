package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultSearchEndpoint is DuckDuckGo's JavaScript-free results page.
const DefaultSearchEndpoint = "https://html.duckduckgo.com/html/"

// HTMLSearchEngine queries a search engine's HTML results page and scrapes
// the result links from it.
type HTMLSearchEngine struct {
	endpoint string
	client   *http.Client
	limiter  *HostLimiter
}

// NewHTMLSearchEngine returns an engine for endpoint (DefaultSearchEndpoint
// when empty). The query is sent as the q parameter.
func NewHTMLSearchEngine(endpoint string, client *http.Client, limiter *HostLimiter) *HTMLSearchEngine {
	if endpoint == "" {
		endpoint = DefaultSearchEndpoint
	}
	return &HTMLSearchEngine{endpoint: endpoint, client: client, limiter: limiter}
}

// Search returns up to limit absolute result URLs for query.
func (e *HTMLSearchEngine) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if err := e.limiter.WaitURL(ctx, e.endpoint); err != nil {
		return nil, err
	}

	u, err := url.Parse(e.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing search endpoint: %w", err)
	}
	params := u.Query()
	params.Set("q", query)
	u.RawQuery = params.Encode()

	page, err := getPage(ctx, e.client, u.String())
	if err != nil {
		return nil, err
	}
	return ParseSearchResults(page, limit)
}

// ParseSearchResults pulls result links out of a search results page.
// Redirect wrappers are unwrapped; relative and non-http links are skipped.
func ParseSearchResults(page string, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing results: %w", err)
	}

	anchors := doc.Find("a.result__a")
	if anchors.Length() == 0 {
		anchors = doc.Find("a[href]")
	}

	var out []string
	seen := make(map[string]struct{})
	anchors.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		href, _ := a.Attr("href")
		target := resolveResultURL(href)
		if target == "" {
			return true
		}
		if _, dup := seen[target]; dup {
			return true
		}
		seen[target] = struct{}{}
		out = append(out, target)
		return true
	})
	return out, nil
}

// resolveResultURL unwraps DuckDuckGo (uddg=) and Google (/url?q=) redirect
// links and returns an absolute http(s) URL, or "" if href is not a result.
func resolveResultURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	q := u.Query()
	if target := q.Get("uddg"); target != "" {
		return resolveResultURL(target)
	}
	if u.Path == "/url" && q.Get("q") != "" {
		return resolveResultURL(q.Get("q"))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}
