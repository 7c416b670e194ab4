package rank

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/amishk599/jobsift/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecencyScore(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"just now", 1.0},
		{"Posted moments ago", 1.0},
		{"5 minutes ago", 0.9},
		{"2 hours ago", 0.8},
		{"1 hr", 0.8},
		{"Today", 0.7},
		{"3 days ago", 0.7},
		{"Yesterday", 0.7}, // "day" bucket is checked first
		{"2 weeks ago", 0.4},
		{"1 wk", 0.4},
		{"3 Months ago", 0.2},
		{"Recent", 0.1},
		{"1 year ago", 0.1},
		{model.UnknownTime, 1.0}, // contains "now"
	}
	for _, tt := range tests {
		if got := RecencyScore(tt.in); got != tt.want {
			t.Errorf("RecencyScore(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRelevanceScore(t *testing.T) {
	tests := []struct {
		name     string
		p        model.Posting
		keywords string
		want     float64
	}{
		{
			name:     "no keywords",
			p:        model.Posting{Title: "Anything"},
			keywords: "   ",
			want:     0.5,
		},
		{
			name:     "title match with exact words",
			p:        model.Posting{Title: "Senior Data Scientist", Company: "Acme"},
			keywords: "Data Scientist",
			want:     0.8,
		},
		{
			name:     "substring without word boundary",
			p:        model.Posting{Title: "Software Engineering Manager", Company: "Acme"},
			keywords: "engineer",
			want:     0.6,
		},
		{
			name:     "half the keywords in title",
			p:        model.Posting{Title: "Python Developer", Company: "Acme"},
			keywords: "python golang",
			want:     0.4,
		},
		{
			name:     "company and description count",
			p:        model.Posting{Title: "Developer", Company: "Go Corp", Description: "We write go daily"},
			keywords: "go",
			want:     0.2,
		},
		{
			name:     "everything matches",
			p:        model.Posting{Title: "Go Developer", Company: "Google", Description: "Go services"},
			keywords: "go",
			want:     1.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelevanceScore(tt.p, Keywords(tt.keywords))
			if !approx(got, tt.want) {
				t.Errorf("RelevanceScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	postings := []model.Posting{
		{Title: "go go go", Company: "go", Description: "go", TimePosted: "just now"},
		{Title: "Data", Company: "", TimePosted: ""},
		{Title: "x", Company: "y", Description: "z", TimePosted: "3 months ago"},
	}
	keywordSets := []string{"", "go", "go go go go", "data x y z", "nothing matches here"}
	for _, p := range postings {
		for _, kw := range keywordSets {
			v := RelevanceScore(p, Keywords(kw))
			if v < 0 || v > 1 {
				t.Errorf("relevance out of bounds for %q/%q: %v", p.Title, kw, v)
			}
			c := CombinedScore(v, RecencyScore(p.TimePosted))
			if c < 0 || c > 1 {
				t.Errorf("combined out of bounds for %q/%q: %v", p.Title, kw, c)
			}
		}
	}
}

func TestRank_OrdersByCombinedScore(t *testing.T) {
	in := []model.Posting{
		{Title: "Data Scientist", Company: "Globex", Location: "Remote", TimePosted: "3 days ago", Link: "http://x/3"},
		{Title: "Senior Data Scientist", Company: "Acme", Location: "Remote", TimePosted: "2 hours ago", Link: "http://x/1"},
	}
	r := NewRanker(discardLogger())
	got, faults := r.Rank(in, "data scientist", 10)
	if len(faults) != 0 {
		t.Fatalf("unexpected faults: %v", faults)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(got))
	}
	if got[0].TimePosted != "2 hours ago" {
		t.Errorf("expected the 2 hours ago posting first, got %q", got[0].TimePosted)
	}
	if !approx(got[0].RelevanceScore, 0.80) || !approx(got[1].RelevanceScore, 0.77) {
		t.Errorf("scores = %v, %v; want 0.80, 0.77", got[0].RelevanceScore, got[1].RelevanceScore)
	}
	if got[0].Summary == "" {
		t.Error("expected summary to be filled")
	}
}

func TestRank_StableForEqualScores(t *testing.T) {
	in := []model.Posting{
		{Title: "Barista", Company: "A", TimePosted: "1 week ago"},
		{Title: "Go Engineer", Company: "B", TimePosted: "just now"},
		{Title: "Cashier", Company: "C", TimePosted: "1 week ago"},
		{Title: "Florist", Company: "D", TimePosted: "1 week ago"},
	}
	got, _ := NewRanker(discardLogger()).Rank(in, "go", 10)
	var order []string
	for _, p := range got {
		order = append(order, p.Company)
	}
	if strings.Join(order, "") != "BACD" {
		t.Errorf("order = %v, want [B A C D]", order)
	}
}

func TestRank_TopN(t *testing.T) {
	in := make([]model.Posting, 7)
	for i := range in {
		in[i] = model.Posting{Title: "Engineer", Company: string(rune('A' + i)), TimePosted: "1 hour ago"}
	}
	r := NewRanker(discardLogger())

	tests := []struct {
		topN int
		want int
	}{
		{3, 3},
		{7, 7},
		{20, 7},
		{0, 0},
	}
	for _, tt := range tests {
		got, _ := r.Rank(in, "engineer", tt.topN)
		if len(got) != tt.want {
			t.Errorf("Rank(topN=%d) returned %d, want %d", tt.topN, len(got), tt.want)
		}
	}
}

func TestRank_PerRecordFailureFallsBack(t *testing.T) {
	boom := WithSummary(func(p model.Posting, keywords string) string {
		if p.Title == "Broken Engineer" {
			panic("summary exploded")
		}
		return Summary(p, keywords)
	})
	r := NewRanker(discardLogger(), boom)

	in := []model.Posting{
		{Title: "Broken Engineer", Company: "Acme", Location: "Berlin", TimePosted: "just now"},
		{Title: "Working Engineer", Company: "Acme", TimePosted: "just now"},
	}
	got, faults := r.Rank(in, "engineer", 10)
	if len(got) != 2 {
		t.Fatalf("expected both postings to be kept, got %d", len(got))
	}
	if len(faults) != 1 {
		t.Fatalf("expected 1 fault, got %d", len(faults))
	}
	if faults[0].Kind != model.FaultScoring {
		t.Errorf("fault kind = %v, want scoring", faults[0].Kind)
	}

	// The healthy posting ranks first with 0.7*0.8 + 0.3*1.0 = 0.86; the broken
	// one only gets its relevance (0.8).
	if got[0].Title != "Working Engineer" {
		t.Errorf("expected working posting first, got %q", got[0].Title)
	}
	broken := got[1]
	if !approx(broken.RelevanceScore, 0.8) {
		t.Errorf("fallback score = %v, want 0.8", broken.RelevanceScore)
	}
	if broken.Summary != "Broken Engineer at Acme in Berlin" {
		t.Errorf("fallback summary = %q", broken.Summary)
	}
}

func TestRank_Empty(t *testing.T) {
	got, faults := NewRanker(discardLogger()).Rank(nil, "go", 10)
	if got == nil || len(got) != 0 || faults != nil {
		t.Errorf("expected empty non-nil result, got %v %v", got, faults)
	}
}

func TestSummary(t *testing.T) {
	p := model.Posting{Title: "Senior Go Engineer", Company: "Acme", Location: "Berlin", TimePosted: "3 hours ago"}
	got := Summary(p, "go rust")
	want := strings.Join([]string{
		"• Senior Go Engineer position at Acme",
		"• Location: Berlin",
		"• Matches your search for: go",
		"• Recently posted: 3 hours ago",
	}, "\n")
	if got != want {
		t.Errorf("Summary =\n%s\nwant\n%s", got, want)
	}

	p = model.Posting{Title: "Barista", Company: "Cafe", Location: model.UnknownLocation, TimePosted: "2 days ago"}
	got = Summary(p, "go")
	want = "• Barista position at Cafe\n• Related to: go"
	if got != want {
		t.Errorf("Summary =\n%s\nwant\n%s", got, want)
	}
}

func TestSelfCheck(t *testing.T) {
	if err := NewRanker(discardLogger()).SelfCheck(); err != nil {
		t.Errorf("SelfCheck() = %v", err)
	}
	r := NewRanker(discardLogger(), WithSummary(func(model.Posting, string) string { panic("down") }))
	if err := r.SelfCheck(); err == nil {
		t.Error("expected SelfCheck to report a broken summary builder")
	}
}
