package ai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/retry"
)

const maxPromptDescription = 1500

// LLMSummarizer implements model.Summarizer using an LLM.
type LLMSummarizer struct {
	provider LLMProvider
	tmpl     *template.Template
	policy   retry.Policy
	logger   *slog.Logger
}

// NewLLMSummarizer creates a summarizer. A nil tmpl uses SummaryTemplate.
func NewLLMSummarizer(provider LLMProvider, tmpl *template.Template, policy retry.Policy, logger *slog.Logger) *LLMSummarizer {
	if tmpl == nil {
		tmpl = SummaryTemplate
	}
	return &LLMSummarizer{
		provider: provider,
		tmpl:     tmpl,
		policy:   policy,
		logger:   logger,
	}
}

type promptData struct {
	Keywords    string
	Title       string
	Company     string
	Location    string
	TimePosted  string
	Description string
}

// Summarize asks the model for a summary of p.
func (s *LLMSummarizer) Summarize(ctx context.Context, p model.Posting, keywords string) (string, error) {
	desc := []rune(p.Description)
	if len(desc) > maxPromptDescription {
		desc = desc[:maxPromptDescription]
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, promptData{
		Keywords:    keywords,
		Title:       p.Title,
		Company:     p.Company,
		Location:    p.Location,
		TimePosted:  p.TimePosted,
		Description: string(desc),
	}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	prompt := buf.String()

	out, err := retry.Do(ctx, s.policy, s.logger, "summarize", func(ctx context.Context) (string, error) {
		return s.provider.Complete(ctx, systemPrompt, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	return out, nil
}

// SummarizeAll replaces the summary of each posting with one from s, running
// at most concurrency calls at once. Postings whose summary fails keep the
// summary they had. It returns how many summaries were replaced.
func SummarizeAll(ctx context.Context, s model.Summarizer, postings []model.Posting, keywords string, concurrency int, logger *slog.Logger) int {
	if concurrency <= 0 {
		concurrency = 1
	}

	replaced := make([]bool, len(postings))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i := range postings {
		g.Go(func() error {
			summary, err := s.Summarize(ctx, postings[i], keywords)
			if err != nil {
				logger.Warn("summary failed, keeping rule-based summary",
					"title", postings[i].Title,
					"company", postings[i].Company,
					"error", err,
				)
				return nil
			}
			postings[i].Summary = summary
			replaced[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range replaced {
		if ok {
			n++
		}
	}
	return n
}
