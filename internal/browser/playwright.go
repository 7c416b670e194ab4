package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	defaultNavTimeout = 30 * time.Second
	settleDelay       = 3 * time.Second
	userAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Renderer loads pages in headless Chromium so client-rendered job listings
// are present in the returned HTML. The browser starts on first use.
type Renderer struct {
	logger *slog.Logger

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	started bool
}

// NewRenderer returns a renderer that launches the browser lazily.
func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{logger: logger}
}

func (r *Renderer) Name() string { return "playwright" }

func (r *Renderer) launch() (playwright.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return r.browser, nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     []string{"--disable-blink-features=AutomationControlled", "--no-sandbox"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	r.logger.Debug("headless browser started")
	r.pw, r.browser, r.started = pw, b, true
	return b, nil
}

// Render navigates to url and returns the page HTML after scripts settle.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	b, err := r.launch()
	if err != nil {
		return "", err
	}

	page, err := b.NewPage(playwright.BrowserNewPageOptions{
		UserAgent: playwright.String(userAgent),
	})
	if err != nil {
		return "", fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()

	timeout := defaultNavTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if timeout <= 0 {
		return "", context.DeadlineExceeded
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("navigating to %s: %w", url, err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(settleDelay):
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

// Close shuts down the browser if it was started.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil
	}
	r.started = false
	return errors.Join(r.browser.Close(), r.pw.Stop())
}
