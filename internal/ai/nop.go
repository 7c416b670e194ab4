package ai

import (
	"context"

	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/rank"
)

// NopSummarizer is used when ai.enabled is false. It returns the rule-based
// summary without calling a model.
type NopSummarizer struct{}

// Summarize returns the posting's existing summary, or builds one.
func (NopSummarizer) Summarize(_ context.Context, p model.Posting, keywords string) (string, error) {
	if p.Summary != "" {
		return p.Summary, nil
	}
	return rank.Summary(p, keywords), nil
}
