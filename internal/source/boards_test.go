package source

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/retry"
)

var boardsNow = time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

const greenhousePayload = `{
	"jobs": [
		{
			"id": 12345,
			"title": "Senior Go Engineer",
			"location": {"name": "San Francisco, CA"},
			"absolute_url": "https://boards.greenhouse.io/acme/jobs/12345",
			"content": "&lt;p&gt;Build &lt;b&gt;distributed&lt;/b&gt; systems&lt;/p&gt;",
			"first_published": "2026-02-13T09:00:00Z",
			"updated_at": "2026-02-13T10:00:00Z"
		},
		{
			"id": 67890,
			"title": "Product Designer",
			"location": {"name": "Remote, US"},
			"absolute_url": "https://boards.greenhouse.io/acme/jobs/67890",
			"first_published": "2026-02-13T11:00:00Z"
		},
		{
			"id": 11111,
			"title": "Go Platform Engineer",
			"location": {"name": "Berlin"},
			"absolute_url": "https://boards.greenhouse.io/acme/jobs/11111",
			"first_published": "2026-01-01T09:00:00Z"
		}
	]
}`

const leverPayload = `[
	{
		"id": "abc-123",
		"text": "Backend Engineer (Go)",
		"descriptionPlain": "Own   our payment APIs.",
		"categories": {"location": "New York", "allLocations": ["New York", "Remote"]},
		"createdAt": 1770958800000,
		"hostedUrl": "https://jobs.lever.co/initech/abc-123"
	}
]`

const ashbyPayload = `{
	"jobs": [
		{
			"title": "Go Developer",
			"location": "London",
			"jobUrl": "https://jobs.ashbyhq.com/hooli/1",
			"publishedAt": "2026-02-13T11:59:30Z",
			"isListed": true
		},
		{
			"title": "Go Developer (unlisted)",
			"location": "London",
			"jobUrl": "https://jobs.ashbyhq.com/hooli/2",
			"publishedAt": "2026-02-13T11:00:00Z",
			"isListed": false
		}
	]
}`

// boardClient answers each ATS host with its payload, or with status when
// the host is listed in failing.
func boardClient(failing map[string]int, calls *atomic.Int32) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if calls != nil {
				calls.Add(1)
			}
			if status, ok := failing[req.URL.Host]; ok {
				return &http.Response{
					StatusCode: status,
					Header:     http.Header{"Retry-After": []string{"0"}},
					Body:       io.NopCloser(strings.NewReader("")),
					Request:    req,
				}, nil
			}

			var body string
			switch req.URL.Host {
			case "boards-api.greenhouse.io":
				body = greenhousePayload
			case "api.lever.co":
				body = leverPayload
			case "api.ashbyhq.com":
				body = ashbyPayload
			default:
				return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("")), Request: req}, nil
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(strings.NewReader(body)),
				Request:    req,
			}, nil
		}),
	}
}

var testBoards = []Board{
	{Company: "Acme Corp", ATS: ATSGreenhouse, Token: "acme"},
	{Company: "Initech", ATS: ATSLever, Token: "initech"},
	{Company: "Hooli", ATS: ATSAshby, Token: "hooli"},
}

func newTestBoards(boards []Board, client *http.Client, policy retry.Policy) *Boards {
	b := NewBoards(boards, client, policy, discardLogger())
	b.now = func() time.Time { return boardsNow }
	return b
}

func TestBoards_FetchAllATS(t *testing.T) {
	b := newTestBoards(testBoards, boardClient(nil, nil), retry.Policy{})

	res := b.Fetch(context.Background(), model.Query{Keywords: "go", RecencyHours: 24})
	if len(res.Faults) != 0 {
		t.Fatalf("unexpected faults: %v", res.Faults)
	}
	if res.Source != BoardsName {
		t.Errorf("source = %q", res.Source)
	}

	// Newest first; the designer does not match and the January posting is too old.
	wantTitles := []string{"Go Developer", "Senior Go Engineer", "Backend Engineer (Go)"}
	if len(res.Postings) != len(wantTitles) {
		t.Fatalf("got %d postings, want %d: %+v", len(res.Postings), len(wantTitles), res.Postings)
	}
	for i, want := range wantTitles {
		if res.Postings[i].Title != want {
			t.Errorf("posting %d title = %q, want %q", i, res.Postings[i].Title, want)
		}
	}

	ashby := res.Postings[0]
	if ashby.Company != "Hooli" || ashby.TimePosted != "just now" || ashby.Link != "https://jobs.ashbyhq.com/hooli/1" {
		t.Errorf("ashby posting = %+v", ashby)
	}

	gh := res.Postings[1]
	if gh.Company != "Acme Corp" || gh.Location != "San Francisco, CA" || gh.TimePosted != "3 hours ago" {
		t.Errorf("greenhouse posting = %+v", gh)
	}
	if gh.Description != "Build distributed systems" {
		t.Errorf("greenhouse description = %q", gh.Description)
	}

	lever := res.Postings[2]
	if lever.Company != "Initech" || lever.Location != "New York, Remote" || lever.TimePosted != "7 hours ago" {
		t.Errorf("lever posting = %+v", lever)
	}
	if lever.Description != "Own our payment APIs." {
		t.Errorf("lever description = %q", lever.Description)
	}
}

func TestBoards_NoAgeLimit(t *testing.T) {
	b := newTestBoards(testBoards[:1], boardClient(nil, nil), retry.Policy{})

	res := b.Fetch(context.Background(), model.Query{Keywords: "go", RecencyHours: 0})
	if len(res.Postings) != 2 {
		t.Fatalf("got %d postings, want 2", len(res.Postings))
	}
	if res.Postings[1].TimePosted != "43 days ago" {
		t.Errorf("old posting time = %q", res.Postings[1].TimePosted)
	}
}

func TestBoards_Budget(t *testing.T) {
	b := newTestBoards(testBoards, boardClient(nil, nil), retry.Policy{})

	res := b.Fetch(context.Background(), model.Query{Keywords: "go", RecencyHours: 24, Budget: 2})
	if len(res.Postings) != 2 {
		t.Fatalf("got %d postings, want 2", len(res.Postings))
	}
	if res.Postings[0].Company != "Hooli" || res.Postings[1].Company != "Acme Corp" {
		t.Errorf("budget kept the wrong postings: %+v", res.Postings)
	}
}

func TestBoards_FailingBoardIsFault(t *testing.T) {
	client := boardClient(map[string]int{"api.lever.co": http.StatusNotFound}, nil)
	b := newTestBoards(testBoards, client, retry.Policy{})

	res := b.Fetch(context.Background(), model.Query{Keywords: "go", RecencyHours: 24})
	if len(res.Faults) != 1 {
		t.Fatalf("got %d faults, want 1", len(res.Faults))
	}
	f := res.Faults[0]
	if f.Kind != model.FaultAdapter || !strings.Contains(f.Error(), "Initech (lever)") {
		t.Errorf("fault = %v", f)
	}
	if len(res.Postings) != 2 {
		t.Errorf("other boards should still contribute, got %d postings", len(res.Postings))
	}
}

func TestBoards_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	client := boardClient(map[string]int{"boards-api.greenhouse.io": http.StatusServiceUnavailable}, &calls)
	b := newTestBoards(testBoards[:1], client, retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond})

	res := b.Fetch(context.Background(), model.Query{Keywords: "go", RecencyHours: 24})
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", got)
	}
	if len(res.Faults) != 1 || len(res.Postings) != 0 {
		t.Errorf("faults = %d, postings = %d", len(res.Faults), len(res.Postings))
	}
}

func TestBoards_UnsupportedATS(t *testing.T) {
	b := newTestBoards([]Board{{Company: "Globex", ATS: "workday", Token: "x"}}, boardClient(nil, nil), retry.Policy{})

	res := b.Fetch(context.Background(), model.Query{Keywords: "go"})
	if len(res.Faults) != 1 || !strings.Contains(res.Faults[0].Error(), `unsupported ats "workday"`) {
		t.Errorf("faults = %v", res.Faults)
	}
}

func TestBoards_EmptyKeywords(t *testing.T) {
	var calls atomic.Int32
	b := newTestBoards(testBoards, boardClient(nil, &calls), retry.Policy{})

	res := b.Fetch(context.Background(), model.Query{Keywords: "   "})
	if len(res.Postings) != 0 || calls.Load() != 0 {
		t.Errorf("empty keywords should not hit any board")
	}
}

func TestBoards_Healthy(t *testing.T) {
	if err := NewBoards(nil, http.DefaultClient, retry.Policy{}, discardLogger()).Healthy(context.Background()); err == nil {
		t.Error("expected error with no boards")
	}
	if err := NewBoards(testBoards, http.DefaultClient, retry.Policy{}, discardLogger()).Healthy(context.Background()); err != nil {
		t.Errorf("Healthy: %v", err)
	}
}

func TestPostedAgo(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}
	for _, tt := range tests {
		if got := postedAgo(boardsNow.Add(-tt.age), boardsNow); got != tt.want {
			t.Errorf("postedAgo(%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
	if got := postedAgo(time.Time{}, boardsNow); got != "" {
		t.Errorf("zero time = %q, want empty", got)
	}
}
