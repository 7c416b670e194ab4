// Package firecrawl is a small client for the Firecrawl scrape API, which
// renders JavaScript-heavy pages server side and returns HTML or markdown.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/amishk599/jobsift/internal/model"
)

// DefaultBaseURL is the hosted Firecrawl API.
const DefaultBaseURL = "https://api.firecrawl.dev"

// Output formats accepted by the scrape endpoint.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// ScrapeOptions controls a single scrape request.
type ScrapeOptions struct {
	Formats []string `json:"formats"`
	WaitFor int      `json:"waitFor,omitempty"` // ms to wait after load
	Timeout int      `json:"timeout,omitempty"` // ms
}

// Document is the scraped page content.
type Document struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// Client calls the /v1/scrape endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a client for the API at baseURL (DefaultBaseURL when empty).
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type scrapeRequest struct {
	URL string `json:"url"`
	ScrapeOptions
}

type scrapeResponse struct {
	Success bool     `json:"success"`
	Data    Document `json:"data"`
	Error   string   `json:"error"`
}

// Scrape fetches url through Firecrawl.
func (c *Client) Scrape(ctx context.Context, url string, opts ScrapeOptions) (*Document, error) {
	body, err := json.Marshal(scrapeRequest{URL: url, ScrapeOptions: opts})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read scrape response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("firecrawl scrape failed: %s", strings.TrimSpace(string(respBytes))),
		}
	}

	var sr scrapeResponse
	if err := json.Unmarshal(respBytes, &sr); err != nil {
		return nil, fmt.Errorf("parse scrape response: %w", err)
	}
	if !sr.Success {
		msg := sr.Error
		if msg == "" {
			msg = "unsuccessful scrape"
		}
		return nil, errors.New("firecrawl: " + msg)
	}
	return &sr.Data, nil
}

// Name implements model.PageRenderer.
func (c *Client) Name() string { return "firecrawl" }

// Render returns the page HTML after giving client-side scripts two seconds
// to populate the page.
func (c *Client) Render(ctx context.Context, url string) (string, error) {
	doc, err := c.Scrape(ctx, url, ScrapeOptions{
		Formats: []string{FormatMarkdown, FormatHTML},
		WaitFor: 2000,
		Timeout: 30000,
	})
	if err != nil {
		return "", err
	}
	if doc.HTML == "" {
		return "", errors.New("firecrawl returned no html")
	}
	return doc.HTML, nil
}

// Markdown returns the page as markdown.
func (c *Client) Markdown(ctx context.Context, url string) (string, error) {
	doc, err := c.Scrape(ctx, url, ScrapeOptions{
		Formats: []string{FormatMarkdown},
		Timeout: 15000,
	})
	if err != nil {
		return "", err
	}
	return doc.Markdown, nil
}
