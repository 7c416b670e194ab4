package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsift/internal/filter"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/retry"
)

// BoardsName identifies the career-board source in run metadata.
const BoardsName = "boards"

// Supported applicant tracking systems.
const (
	ATSGreenhouse = "greenhouse"
	ATSLever      = "lever"
	ATSAshby      = "ashby"
)

const (
	greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"
	leverBaseURL      = "https://api.lever.co/v0/postings"
	ashbyBaseURL      = "https://api.ashbyhq.com/posting-api/job-board"

	boardConcurrency = 4
)

// SupportedATS reports whether ats names a board API Boards can read.
func SupportedATS(ats string) bool {
	switch ats {
	case ATSGreenhouse, ATSLever, ATSAshby:
		return true
	}
	return false
}

// Board is one company's public job board.
type Board struct {
	Company string
	ATS     string
	Token   string // greenhouse/ashby board token, lever company slug
}

// boardJob is a board listing before keyword and age filtering.
type boardJob struct {
	company     string
	title       string
	location    string
	link        string
	description string
	posted      time.Time // zero when the board does not say
}

// Boards searches company career boards through the public Greenhouse,
// Lever and Ashby APIs. A posting is kept when its title contains any
// keyword and it is younger than the recency window.
type Boards struct {
	boards []Board
	client *http.Client
	policy retry.Policy
	logger *slog.Logger
	now    func() time.Time
}

// NewBoards returns a source over boards. Each board request is retried
// under policy.
func NewBoards(boards []Board, client *http.Client, policy retry.Policy, logger *slog.Logger) *Boards {
	return &Boards{boards: boards, client: client, policy: policy, logger: logger, now: time.Now}
}

func (b *Boards) Name() string { return BoardsName }

// Fetch queries every board concurrently. A failing board becomes a fault;
// the rest still contribute postings, newest first, capped at the budget.
func (b *Boards) Fetch(ctx context.Context, q model.Query) model.FetchResult {
	res := model.FetchResult{Source: BoardsName}
	terms := strings.Fields(strings.ToLower(q.Keywords))
	if len(terms) == 0 {
		return res
	}

	var (
		mu    sync.Mutex
		found []boardJob
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(boardConcurrency)
	for _, board := range b.boards {
		g.Go(func() error {
			jobs, err := b.fetchBoard(gctx, board)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Warn("board fetch failed", "company", board.Company, "ats", board.ATS, "error", err)
				res.Faults = append(res.Faults, model.NewFault(model.FaultAdapter, BoardsName,
					fmt.Errorf("%s (%s): %w", board.Company, board.ATS, err)))
				return nil
			}
			for i := range jobs {
				jobs[i].company = board.Company
			}
			found = append(found, keepMatching(jobs, terms, q.RecencyHours, b.now())...)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(found, func(i, j int) bool { return found[i].posted.After(found[j].posted) })
	if q.Budget > 0 && len(found) > q.Budget {
		found = found[:q.Budget]
	}

	now := b.now()
	postings := make([]model.Posting, 0, len(found))
	for _, j := range found {
		postings = append(postings, j.posting(now))
	}
	res.Postings = filter.Valid(postings)
	b.logger.Debug("board postings", "boards", len(b.boards), "matched", len(res.Postings))
	return res
}

// Healthy reports whether any boards are configured.
func (b *Boards) Healthy(_ context.Context) error {
	if len(b.boards) == 0 {
		return errors.New("no boards configured")
	}
	return nil
}

func (b *Boards) fetchBoard(ctx context.Context, board Board) ([]boardJob, error) {
	if !SupportedATS(board.ATS) {
		return nil, fmt.Errorf("unsupported ats %q", board.ATS)
	}
	return retry.Do(ctx, b.policy, b.logger, "board "+board.Company, func(ctx context.Context) ([]boardJob, error) {
		return b.fetchOnce(ctx, board)
	})
}

func (b *Boards) fetchOnce(ctx context.Context, board Board) ([]boardJob, error) {
	switch board.ATS {
	case ATSGreenhouse:
		return b.fetchGreenhouse(ctx, board)
	case ATSLever:
		return b.fetchLever(ctx, board)
	case ATSAshby:
		return b.fetchAshby(ctx, board)
	default:
		return nil, fmt.Errorf("unsupported ats %q", board.ATS)
	}
}

// keepMatching drops jobs whose title misses every term or that are older
// than hours. Jobs without a date are kept. hours <= 0 disables the age check.
func keepMatching(jobs []boardJob, terms []string, hours int, now time.Time) []boardJob {
	var out []boardJob
	for _, j := range jobs {
		title := strings.ToLower(j.title)
		matched := false
		for _, t := range terms {
			if strings.Contains(title, t) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if hours > 0 && !j.posted.IsZero() && now.Sub(j.posted) > time.Duration(hours)*time.Hour {
			continue
		}
		out = append(out, j)
	}
	return out
}

func (j boardJob) posting(now time.Time) model.Posting {
	return model.Posting{
		Title:       cleanText(j.title),
		Company:     j.company,
		Location:    orDefault(cleanText(j.location), "Not specified"),
		TimePosted:  postedAgo(j.posted, now),
		Link:        j.link,
		Description: truncate(j.description, descriptionLimit),
	}
}

// postedAgo renders a posting date in the "3 hours ago" form the listing
// pages use, so board postings score on recency like everything else.
func postedAgo(posted, now time.Time) string {
	if posted.IsZero() {
		return ""
	}
	d := now.Sub(posted)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	default:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// getJSON fetches url and decodes the body into v.
func (b *Boards) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

type greenhouseResponse struct {
	Jobs []struct {
		Title    string `json:"title"`
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
		AbsoluteURL    string `json:"absolute_url"`
		Content        string `json:"content"`
		FirstPublished string `json:"first_published"`
		UpdatedAt      string `json:"updated_at"`
	} `json:"jobs"`
}

func (b *Boards) fetchGreenhouse(ctx context.Context, board Board) ([]boardJob, error) {
	var resp greenhouseResponse
	if err := b.getJSON(ctx, fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, board.Token), &resp); err != nil {
		return nil, err
	}

	jobs := make([]boardJob, 0, len(resp.Jobs))
	for _, gj := range resp.Jobs {
		jobs = append(jobs, boardJob{
			title:       gj.Title,
			location:    gj.Location.Name,
			link:        gj.AbsoluteURL,
			description: extractText(gj.Content),
			posted:      parseRFC3339(orDefault(gj.FirstPublished, gj.UpdatedAt)),
		})
	}
	return jobs, nil
}

type leverJob struct {
	Text             string `json:"text"`
	DescriptionPlain string `json:"descriptionPlain"`
	Categories       struct {
		Location     string   `json:"location"`
		AllLocations []string `json:"allLocations"`
	} `json:"categories"`
	CreatedAt int64  `json:"createdAt"`
	HostedURL string `json:"hostedUrl"`
}

func (b *Boards) fetchLever(ctx context.Context, board Board) ([]boardJob, error) {
	var resp []leverJob
	if err := b.getJSON(ctx, fmt.Sprintf("%s/%s?mode=json", leverBaseURL, board.Token), &resp); err != nil {
		return nil, err
	}

	jobs := make([]boardJob, 0, len(resp))
	for _, lj := range resp {
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}
		// createdAt is Unix milliseconds.
		var posted time.Time
		if lj.CreatedAt > 0 {
			posted = time.UnixMilli(lj.CreatedAt)
		}
		jobs = append(jobs, boardJob{
			title:       lj.Text,
			location:    location,
			link:        lj.HostedURL,
			description: cleanText(lj.DescriptionPlain),
			posted:      posted,
		})
	}
	return jobs, nil
}

type ashbyResponse struct {
	Jobs []struct {
		Title            string `json:"title"`
		Location         string `json:"location"`
		JobURL           string `json:"jobUrl"`
		PublishedAt      string `json:"publishedAt"`
		IsListed         bool   `json:"isListed"`
		DescriptionPlain string `json:"descriptionPlain"`
	} `json:"jobs"`
}

func (b *Boards) fetchAshby(ctx context.Context, board Board) ([]boardJob, error) {
	var resp ashbyResponse
	if err := b.getJSON(ctx, fmt.Sprintf("%s/%s", ashbyBaseURL, board.Token), &resp); err != nil {
		return nil, err
	}

	jobs := make([]boardJob, 0, len(resp.Jobs))
	for _, aj := range resp.Jobs {
		if !aj.IsListed {
			continue
		}
		jobs = append(jobs, boardJob{
			title:       aj.Title,
			location:    aj.Location,
			link:        aj.JobURL,
			description: cleanText(aj.DescriptionPlain),
			posted:      parseRFC3339(aj.PublishedAt),
		})
	}
	return jobs, nil
}

func parseRFC3339(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
