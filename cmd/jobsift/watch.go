package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/poller"
	"github.com/amishk599/jobsift/internal/scheduler"
	"github.com/amishk599/jobsift/internal/store"
)

var watchDryRun bool

var watchCmd = &cobra.Command{
	Use:   "watch <keywords> [more keywords...]",
	Short: "Re-run searches on an interval and notify about new postings",
	Long: "Each argument is a separate search. Every watch.interval the searches run again " +
		"and postings not seen before are sent to the configured notifier. Blocks until SIGINT/SIGTERM.",
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "poll once, notify matches, remember nothing, then exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("config loaded",
		"interval", cfg.Watch.Interval.String(),
		"searches", len(args),
		"recency_hours", cfg.Search.RecencyHours,
		"max_results", cfg.Search.MaxResults,
	)

	a, err := buildApp(cfg, logger, buildOptions{})
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}
	defer a.Close()

	var seen model.SeenStore
	var cleaner scheduler.Cleaner
	if watchDryRun {
		logger.Info("dry-run mode enabled, no postings will be marked as seen")
		seen = store.NewNopStore()
	} else {
		sqlStore, err := store.NewSQLiteStore(cfg.Watch.StateDB)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			return err
		}
		defer sqlStore.Close()
		seen, cleaner = sqlStore, sqlStore
	}

	n := setupNotifier(cfg, logger)

	var opts []poller.Option
	opts = append(opts, poller.WithSilentSeed(cfg.Watch.SeedSilently && !watchDryRun))
	if cfg.Watch.Summarize {
		if a.summarizer != nil {
			opts = append(opts, poller.WithSummarizer(a.summarizer))
		} else {
			opts = append(opts, poller.WithSummarizer(ai.NopSummarizer{}))
		}
	}

	pollers := make([]*poller.SearchPoller, 0, len(args))
	for _, kw := range args {
		p := poller.NewSearchPoller(a.orch, defaultRequest(cfg, kw), seen, n, logger, opts...)
		pollers = append(pollers, p)
		logger.Info("registered search", "keywords", p.Name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watchDryRun {
		for _, p := range pollers {
			if err := p.Poll(ctx); err != nil {
				logger.Error("poll failed", "keywords", p.Name, "error", err)
			}
		}
		logger.Info("dry-run complete")
		return nil
	}

	sched := scheduler.NewScheduler(pollers, cfg.Watch.Interval, cfg.Watch.Gap, cleaner, cfg.Watch.Retention, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}
