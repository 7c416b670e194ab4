package filter

import (
	"strings"

	"github.com/amishk599/jobsift/internal/model"
)

// Valid drops postings without a usable title. Order is preserved.
func Valid(postings []model.Posting) []model.Posting {
	out := make([]model.Posting, 0, len(postings))
	for _, p := range postings {
		if p.HasValidTitle() {
			out = append(out, p)
		}
	}
	return out
}

// Apply returns the postings accepted by f. A nil filter accepts everything.
func Apply(f model.PostingFilter, postings []model.Posting) []model.Posting {
	if f == nil {
		return postings
	}
	out := make([]model.Posting, 0, len(postings))
	for _, p := range postings {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// TitleAndLocationFilter narrows search results by title and location.
// Matching is case-insensitive substring matching. Empty include lists are
// treated as "match all".
type TitleAndLocationFilter struct {
	titleKeywords    []string
	titleExclude     []string
	locations        []string
	excludeLocations []string
}

// NewTitleAndLocationFilter returns a filter that requires a title keyword
// match and a location match, and rejects any excluded title keyword or
// location.
func NewTitleAndLocationFilter(titleKeywords, titleExclude, locations, excludeLocations []string) *TitleAndLocationFilter {
	return &TitleAndLocationFilter{
		titleKeywords:    lowerAll(titleKeywords),
		titleExclude:     lowerAll(titleExclude),
		locations:        lowerAll(locations),
		excludeLocations: lowerAll(excludeLocations),
	}
}

// Empty reports whether the filter has no criteria at all.
func (f *TitleAndLocationFilter) Empty() bool {
	return len(f.titleKeywords) == 0 && len(f.titleExclude) == 0 &&
		len(f.locations) == 0 && len(f.excludeLocations) == 0
}

// Match returns true if the posting passes every configured criterion.
func (f *TitleAndLocationFilter) Match(p model.Posting) bool {
	title := strings.ToLower(p.Title)
	location := strings.ToLower(p.Location)

	if containsAny(title, f.titleExclude) {
		return false
	}
	if len(f.titleKeywords) > 0 && !containsAny(title, f.titleKeywords) {
		return false
	}
	if containsAny(location, f.excludeLocations) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(location, f.locations) {
		return false
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
