// Package dedup removes repeated postings using link equality plus a union of
// normalized title/company/location signatures.
package dedup

import (
	"regexp"
	"strings"

	"github.com/amishk599/jobsift/internal/model"
)

var (
	nonAlnumRegex      = regexp.MustCompile(`[^a-z0-9\s]`)
	workModeRegex      = regexp.MustCompile(`\b(remote|hybrid|on site|onsite)\b`)
	seniorityRegex     = regexp.MustCompile(`\b(junior|senior|lead|staff|principal)\b`)
	employmentRegex    = regexp.MustCompile(`\b(full time|part time|contract|freelance)\b`)
	unknownLocationKey = Normalize(model.UnknownLocation)
)

// Normalize reduces s to a comparison key: lowercase, whitespace collapsed,
// punctuation dropped, and work-mode, seniority and employment-type words
// removed. Gaps left by removed words are kept as-is.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	s = nonAlnumRegex.ReplaceAllString(s, "")
	s = workModeRegex.ReplaceAllString(s, "")
	s = seniorityRegex.ReplaceAllString(s, "")
	s = employmentRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Signatures returns the composite keys a posting is identified by.
func Signatures(p model.Posting) []string {
	title := Normalize(p.Title)
	location := Normalize(p.Location)

	sigs := []string{title + "|" + Normalize(p.Company)}
	if location != unknownLocationKey {
		sigs = append(sigs, title+"|"+location)
	}
	if p.Link != "" {
		sigs = append(sigs, p.Link)
	}
	return sigs
}

// Fingerprint returns a single stable key for a posting, preferring its link.
func Fingerprint(p model.Posting) string {
	if p.Link != "" {
		return p.Link
	}
	return Signatures(p)[0]
}

// Result is the outcome of a dedup pass.
type Result struct {
	Postings []model.Posting
	Invalid  int // dropped for a missing title
	Dropped  int // dropped as duplicates
}

// Dedupe keeps the first occurrence of every posting. A posting is a
// duplicate when its link was already accepted or when any of its signatures
// matches one from an accepted posting. Survivor order follows input order.
func Dedupe(postings []model.Posting) []model.Posting {
	return DedupeWithStats(postings).Postings
}

// DedupeWithStats is Dedupe plus counts of what was removed.
func DedupeWithStats(postings []model.Posting) Result {
	seenLinks := make(map[string]struct{})
	seenSigs := make(map[string]struct{})
	res := Result{Postings: make([]model.Posting, 0, len(postings))}

	for _, p := range postings {
		if !p.HasValidTitle() {
			res.Invalid++
			continue
		}
		if p.Link != "" {
			if _, ok := seenLinks[p.Link]; ok {
				res.Dropped++
				continue
			}
		}

		sigs := Signatures(p)
		if anySeen(seenSigs, sigs) {
			res.Dropped++
			continue
		}

		for _, s := range sigs {
			seenSigs[s] = struct{}{}
		}
		if p.Link != "" {
			seenLinks[p.Link] = struct{}{}
		}
		res.Postings = append(res.Postings, p)
	}
	return res
}

func anySeen(seen map[string]struct{}, sigs []string) bool {
	for _, s := range sigs {
		if _, ok := seen[s]; ok {
			return true
		}
	}
	return false
}
