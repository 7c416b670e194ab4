package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/amishk599/jobsift/internal/model"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a page is read into memory.
const maxBodyBytes = 5 << 20

// getPage fetches url with a browser User-Agent and returns the body.
// Non-200 responses become a *model.HTTPError.
func getPage(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("unexpected status fetching %s", url),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}

// HTTPRenderer fetches pages with a plain GET. It is the last resort in the
// renderer chain and never executes JavaScript.
type HTTPRenderer struct {
	client *http.Client
}

// NewHTTPRenderer returns a renderer backed by client. The client timeout
// bounds each page load.
func NewHTTPRenderer(client *http.Client) *HTTPRenderer {
	return &HTTPRenderer{client: client}
}

func (r *HTTPRenderer) Name() string { return "http" }

// Render returns the raw HTML at url.
func (r *HTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	return getPage(ctx, r.client, url)
}
