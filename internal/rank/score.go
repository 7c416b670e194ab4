package rank

import (
	"strings"

	"github.com/amishk599/jobsift/internal/model"
)

const (
	titleWeight       = 0.6
	exactTitleWeight  = 0.2
	companyWeight     = 0.1
	descriptionWeight = 0.1

	relevanceShare = 0.7
	recencyShare   = 0.3

	// noKeywordsRelevance is used when the query has no usable keywords.
	noKeywordsRelevance = 0.5
)

type recencyBucket struct {
	needles []string
	score   float64
}

// Checked in order; the first bucket with a matching needle wins.
var recencyBuckets = []recencyBucket{
	{[]string{"just now", "now", "moments ago"}, 1.0},
	{[]string{"minute", "min"}, 0.9},
	{[]string{"hour", "hr"}, 0.8},
	{[]string{"today", "day"}, 0.7},
	{[]string{"yesterday", "1 day"}, 0.6},
	{[]string{"week", "wk"}, 0.4},
	{[]string{"month", "mo"}, 0.2},
}

const defaultRecency = 0.1

// RecencyScore maps a free-text posting age such as "3 hours ago" to a score
// in [0,1]. An empty string scores 0.
func RecencyScore(timePosted string) float64 {
	if timePosted == "" {
		return 0
	}
	t := strings.ToLower(timePosted)
	for _, b := range recencyBuckets {
		for _, n := range b.needles {
			if strings.Contains(t, n) {
				return b.score
			}
		}
	}
	return defaultRecency
}

// Keywords splits a keyword string into lowercase terms.
func Keywords(keywords string) []string {
	return strings.Fields(strings.ToLower(keywords))
}

// RelevanceScore measures how well a posting matches the keyword terms.
// The result is in [0,1].
func RelevanceScore(p model.Posting, terms []string) float64 {
	if len(terms) == 0 {
		return noKeywordsRelevance
	}
	k := float64(len(terms))

	title := strings.ToLower(p.Title)
	padded := " " + title + " "
	var titleHits, exactHits int
	for _, kw := range terms {
		if !strings.Contains(title, kw) {
			continue
		}
		titleHits++
		if strings.Contains(padded, " "+kw+" ") || strings.HasPrefix(title, kw) || strings.HasSuffix(title, kw) {
			exactHits++
		}
	}

	score := float64(titleHits)/k*titleWeight + float64(exactHits)/k*exactTitleWeight
	score += float64(countHits(strings.ToLower(p.Company), terms)) / k * companyWeight
	if p.Description != "" {
		score += float64(countHits(strings.ToLower(p.Description), terms)) / k * descriptionWeight
	}
	return min(score, 1.0)
}

// CombinedScore blends relevance and recency into the final ranking score.
func CombinedScore(relevance, recency float64) float64 {
	return min(relevance*relevanceShare+recency*recencyShare, 1.0)
}

// MatchedTerms returns the terms that occur in the posting title.
func MatchedTerms(p model.Posting, terms []string) []string {
	title := strings.ToLower(p.Title)
	var out []string
	for _, kw := range terms {
		if strings.Contains(title, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func countHits(s string, terms []string) int {
	n := 0
	for _, kw := range terms {
		if strings.Contains(s, kw) {
			n++
		}
	}
	return n
}
