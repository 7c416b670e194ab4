package tui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsift/internal/model"
)

// Lines per posting in the list view (title + subtitle + blank separator).
const itemHeight = 3

func renderPostings(postings []model.Posting, cursor int) string {
	if len(postings) == 0 {
		return "  (no postings)"
	}

	var b strings.Builder
	for i, p := range postings {
		titleSt, subtitleSt, prefix := titleStyle, subtitleStyle, "  "
		if i == cursor {
			titleSt, subtitleSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(fmt.Sprintf("%d. %s", i+1, p.Title)))
		b.WriteByte(' ')
		b.WriteString(scoreStyle.Render(fmt.Sprintf("%.2f", p.RelevanceScore)))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %s", p.Company, p.Location, p.TimePosted)))
		b.WriteByte('\n')

		if i < len(postings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

type detailState struct {
	summarizing bool
	summaryErr  string
	canSummary  bool
}

func renderDetail(p model.Posting, st detailState, width int) string {
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Title", p.Title)
	addField("Company", p.Company)
	addField("Location", p.Location)
	addField("Posted", p.TimePosted)
	addField("Score", fmt.Sprintf("%.2f", p.RelevanceScore))
	addField("Source", p.Source)
	b.WriteByte('\n')
	addField("Link", p.Link)

	wrapWidth := max(width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-lipgloss.Width(label), 3))
		return dividerStyle.Render(label + fill)
	}

	b.WriteByte('\n')
	b.WriteString(divider("── Summary ") + "\n\n")
	switch {
	case st.summarizing:
		b.WriteString(hintStyle.Render("  asking the model for a summary...") + "\n")
	default:
		b.WriteString(bodyStyle.Render(p.Summary) + "\n")
		if st.summaryErr != "" {
			b.WriteByte('\n')
			b.WriteString(errorStyle.Render("⚠ "+st.summaryErr) + "\n")
		} else if st.canSummary {
			b.WriteByte('\n')
			b.WriteString(hintStyle.Render("  press s for an AI summary") + "\n")
		}
	}

	if p.Description != "" {
		b.WriteByte('\n')
		b.WriteString(divider("── Description ") + "\n\n")
		b.WriteString(bodyStyle.Render(wordWrap(p.Description, wrapWidth)) + "\n")
	}

	return b.String()
}

func renderMetadata(meta model.RunMetadata) string {
	parts := []string{
		fmt.Sprintf("%d shown", meta.Total),
		fmt.Sprintf("%d unique of %d fetched", meta.Unique, meta.Fetched),
		meta.Elapsed.Round(time.Millisecond).String(),
	}
	if meta.Cached {
		parts = append(parts, "cached")
	}
	if meta.Fallback {
		parts = append(parts, "sample data")
	}
	if len(meta.Faults) > 0 {
		parts = append(parts, fmt.Sprintf("%d faults", len(meta.Faults)))
	}
	return strings.Join(parts, " | ")
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	if url == "" {
		return
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}
