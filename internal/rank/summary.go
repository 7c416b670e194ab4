package rank

import (
	"fmt"
	"strings"

	"github.com/amishk599/jobsift/internal/model"
)

// Summary renders a short bulleted description of why a posting was surfaced.
func Summary(p model.Posting, keywords string) string {
	lines := []string{fmt.Sprintf("• %s position at %s", p.Title, p.Company)}

	if p.Location != "" && p.Location != model.UnknownLocation {
		lines = append(lines, "• Location: "+p.Location)
	}

	if strings.TrimSpace(keywords) != "" {
		if matched := MatchedTerms(p, Keywords(keywords)); len(matched) > 0 {
			lines = append(lines, "• Matches your search for: "+strings.Join(matched, ", "))
		} else {
			lines = append(lines, "• Related to: "+keywords)
		}
	}

	t := strings.ToLower(p.TimePosted)
	if strings.Contains(t, "hour") || strings.Contains(t, "minute") {
		lines = append(lines, "• Recently posted: "+p.TimePosted)
	}

	return strings.Join(lines, "\n")
}

// BasicSummary is the minimal summary used when normal scoring fails.
func BasicSummary(p model.Posting) string {
	s := fmt.Sprintf("%s at %s", p.Title, p.Company)
	if p.Location != "" && p.Location != model.UnknownLocation {
		s += " in " + p.Location
	}
	return s
}
