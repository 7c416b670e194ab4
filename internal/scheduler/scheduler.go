package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/jobsift/internal/poller"
)

// Cleaner prunes seen-store entries older than a retention window.
type Cleaner interface {
	Cleanup(olderThan time.Duration) error
}

// Scheduler owns the watch loop: it ticks on an interval and runs each
// poller sequentially, pausing gap between searches.
type Scheduler struct {
	pollers   []*poller.SearchPoller
	interval  time.Duration
	gap       time.Duration
	cleaner   Cleaner
	retention time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a scheduler. cleaner may be nil; otherwise entries
// older than retention are pruned after every cycle.
func NewScheduler(pollers []*poller.SearchPoller, interval, gap time.Duration, cleaner Cleaner, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		pollers:   pollers,
		interval:  interval,
		gap:       gap,
		cleaner:   cleaner,
		retention: retention,
		logger:    logger,
	}
}

// Run runs one immediate cycle, then ticks on the configured interval. It
// returns nil when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(),
		"searches", len(s.pollers),
	)

	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	for i, p := range s.pollers {
		if ctx.Err() != nil {
			return
		}

		if err := p.Poll(ctx); err != nil {
			s.logger.Error("poll failed", "keywords", p.Name, "error", err)
		}

		if i < len(s.pollers)-1 && s.gap > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.gap):
			}
		}
	}

	if s.cleaner != nil && s.retention > 0 {
		if err := s.cleaner.Cleanup(s.retention); err != nil {
			s.logger.Warn("seen store cleanup failed", "error", err)
		}
	}
}
