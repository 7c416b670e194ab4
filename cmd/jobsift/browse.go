package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/tui"
)

var (
	browseRefresh   time.Duration
	browseNoRefresh bool
)

var browseCmd = &cobra.Command{
	Use:   "browse [keywords]",
	Short: "Browse postings interactively (TUI)",
	Long:  "Opens a terminal UI with a keyword prompt, a ranked list and a detail view. Keywords given on the command line start a search right away.",
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().DurationVar(&browseRefresh, "refresh", time.Minute, "re-run the search when the results are this old")
	browseCmd.Flags().BoolVar(&browseNoRefresh, "no-refresh", false, "disable auto-refresh")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	// Anything written to stdout before or during the alt screen corrupts the display.
	logger := discardLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(cfg, logger, buildOptions{keywordLimit: true})
	if err != nil {
		return err
	}
	defer a.Close()

	refresh := browseRefresh
	if browseNoRefresh {
		refresh = 0
	}

	return tui.Run(tui.Options{
		Searcher:    a.orch,
		Summarizer:  a.summarizer,
		Defaults:    defaultRequest(cfg, strings.Join(args, " ")),
		AutoRefresh: refresh,
	})
}
