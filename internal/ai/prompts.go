package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/summary.md
var summaryPromptRaw string

// SummaryTemplate is the prompt used for posting summaries.
var SummaryTemplate = template.Must(template.New("summary").Parse(summaryPromptRaw))

const systemPrompt = "You write concise, factual summaries of job postings for job seekers."
