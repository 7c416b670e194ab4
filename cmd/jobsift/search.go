package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/server"
)

const summaryConcurrency = 3

var (
	searchJSON       bool
	searchHours      int
	searchMax        int
	searchSequential bool
	searchSummarize  bool
	searchNoCache    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <keywords>",
	Short: "Run one search and print the ranked postings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print postings and metadata as JSON")
	searchCmd.Flags().IntVar(&searchHours, "hours", 0, "only postings from the last N hours (default from config)")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "maximum postings to return (default from config)")
	searchCmd.Flags().BoolVar(&searchSequential, "sequential", false, "query sources one at a time until enough postings are found")
	searchCmd.Flags().BoolVar(&searchSummarize, "summarize", false, "replace summaries with AI summaries (needs ai config)")
	searchCmd.Flags().BoolVar(&searchNoCache, "no-cache", false, "skip the result cache")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	if searchJSON && !debug {
		logger = discardLogger()
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	a, err := buildApp(cfg, logger, buildOptions{})
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}
	defer a.Close()

	req := defaultRequest(cfg, strings.Join(args, " "))
	if cmd.Flags().Changed("hours") {
		req.RecencyHours = searchHours
	}
	if cmd.Flags().Changed("max") {
		req.MaxResults = searchMax
	}
	if cmd.Flags().Changed("sequential") {
		req.Sequential = searchSequential
	}
	req.NoCache = searchNoCache

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	postings, meta := a.orch.GetJobs(ctx, req)
	if meta.Failed() {
		return fmt.Errorf("search failed: %w", meta.Error)
	}

	if searchSummarize {
		if a.summarizer == nil {
			logger.Warn("--summarize ignored: ai is not configured")
		} else {
			n := ai.SummarizeAll(ctx, a.summarizer, postings, req.Keywords, summaryConcurrency, logger)
			logger.Info("ai summaries", "replaced", n, "total", len(postings))
		}
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(server.JobsResponse{Jobs: postings, Metadata: meta})
	}

	renderPostingTable(out, req.Keywords, postings)
	renderRunMetadata(out, meta)
	if searchSummarize {
		renderSummaries(out, postings)
	}
	return nil
}

func renderPostingTable(w io.Writer, keywords string, postings []model.Posting) {
	if len(postings) == 0 {
		fmt.Fprintf(w, "No postings found for %q.\n", keywords)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 4},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, WidthMax: 40},
		{Number: 4, WidthMax: 24},
		{Number: 5, WidthMax: 24},
	})
	t.AppendHeader(table.Row{"#", "Score", "Title", "Company", "Location", "Posted"})

	companies := make(map[string]struct{})
	var total float64
	for i, p := range postings {
		companies[p.Company] = struct{}{}
		total += p.RelevanceScore
		t.AppendRow(table.Row{i + 1, fmt.Sprintf("%.2f", p.RelevanceScore), p.Title, p.Company, p.Location, p.TimePosted})
	}

	avg := total / float64(len(postings))
	t.AppendFooter(table.Row{"", fmt.Sprintf("%.2f", avg), fmt.Sprintf("%d postings", len(postings)), fmt.Sprintf("%d companies", len(companies)), "", ""})

	fmt.Fprintf(w, "\nResults for %q:\n", keywords)
	t.Render()
}

func renderRunMetadata(w io.Writer, meta model.RunMetadata) {
	names := make([]string, 0, len(meta.SourceCounts))
	for name := range meta.SourceCounts {
		names = append(names, name)
	}
	sort.Strings(names)

	counts := make([]string, len(names))
	for i, name := range names {
		counts[i] = fmt.Sprintf("%s=%d", name, meta.SourceCounts[name])
	}

	fmt.Fprintf(w, "mode=%s sources[%s] fetched=%d unique=%d elapsed=%s",
		meta.Mode, strings.Join(counts, " "), meta.Fetched, meta.Unique, meta.Elapsed.Round(time.Millisecond))
	if meta.Cached {
		fmt.Fprint(w, " cached")
	}
	if meta.Fallback {
		fmt.Fprint(w, " sample-data")
	}
	fmt.Fprintln(w)

	for _, msg := range meta.FaultMessages() {
		fmt.Fprintf(w, "  ! %s\n", msg)
	}
}

func renderSummaries(w io.Writer, postings []model.Posting) {
	for i, p := range postings {
		if p.Summary == "" {
			continue
		}
		fmt.Fprintf(w, "\n%d. %s at %s\n%s\n", i+1, p.Title, p.Company, p.Summary)
	}
}
