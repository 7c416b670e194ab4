package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/retry"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

const (
	defaultSlackGap = 500 * time.Millisecond
	maxSlackSummary = 600
)

// SlackNotifier sends posting alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	pace       *rate.Limiter
	policy     retry.Policy
}

// SlackOption configures a SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithPacing sets the minimum gap between two messages. Zero disables pacing.
func WithPacing(gap time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		if gap <= 0 {
			s.pace = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.pace = rate.NewLimiter(rate.Every(gap), 1)
	}
}

// WithRetryPolicy overrides how failed webhook posts are retried.
func WithRetryPolicy(p retry.Policy) SlackOption {
	return func(s *SlackNotifier) { s.policy = p }
}

// NewSlackNotifier returns a notifier that posts each posting to Slack.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		pace:       rate.NewLimiter(rate.Every(defaultSlackGap), 1),
		policy:     retry.Policy{MaxRetries: 1, BaseDelay: time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Notify sends each posting as a separate Block Kit message.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(ctx context.Context, postings []model.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	failures := 0
	for _, p := range postings {
		if err := s.pace.Wait(ctx); err != nil {
			return fmt.Errorf("slack notify: %w", err)
		}

		_, err := retry.Do(ctx, s.policy, s.logger, "slack", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.send(ctx, p)
		})
		if err != nil {
			s.logger.Error("slack notification failed", "company", p.Company, "title", p.Title, "error", err)
			failures++
		}
	}

	if failures == len(postings) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", len(postings)-failures, "failed", failures)
	return nil
}

func (s *SlackNotifier) send(ctx context.Context, p model.Posting) error {
	body, err := json.Marshal(buildPayload(p))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        errors.New("slack webhook rejected message"),
		}
	}
	s.logger.Debug("slack message sent", "company", p.Company, "title", p.Title)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy posting to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	return n.Notify(ctx, []model.Posting{{
		Title:          "Test Notification: Integration Verified",
		Company:        "jobsift",
		Location:       "Everywhere",
		TimePosted:     "just now",
		Link:           "https://www.linkedin.com/jobs/",
		Summary:        "• If you can read this, notifications are wired up.",
		RelevanceScore: 1,
		Source:         "test",
	}})
}

func buildPayload(p model.Posting) slackPayload {
	posted := p.TimePosted
	if posted == "" || posted == model.UnknownTime {
		posted = "Just detected"
	}
	source := p.Source
	if source == "" {
		source = "unknown"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🔎 " + p.Company + ": " + p.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + p.Company},
				{Type: "mrkdwn", Text: "*Location:*\n" + p.Location},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + posted},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Score:*\n%.2f (%s)", p.RelevanceScore, source)},
			},
		},
	}

	if summary := strings.TrimSpace(p.Summary); summary != "" {
		if r := []rune(summary); len(r) > maxSlackSummary {
			summary = string(r[:maxSlackSummary]) + "…"
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: summary},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{{
				Type:  "button",
				Text:  slackText{Type: "plain_text", Text: "View Posting"},
				URL:   p.Link,
				Style: "primary",
			}},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
