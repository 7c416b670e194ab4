package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsift/internal/filter"
	"github.com/amishk599/jobsift/internal/metrics"
	"github.com/amishk599/jobsift/internal/model"
)

// DefaultSourceTimeout bounds each source independently.
const DefaultSourceTimeout = 60 * time.Second

// ErrSourceTimeout is recorded when a source exceeds its timeout.
var ErrSourceTimeout = errors.New("source timed out")

// Outcome is the merged result of one aggregation.
type Outcome struct {
	Postings     []model.Posting
	SourceCounts map[string]int
	Faults       []model.Fault
	// Fallback is set when any source served generated samples.
	Fallback bool
}

// Aggregator fans a query out to every source and merges the results.
type Aggregator struct {
	timeout time.Duration
	logger  *slog.Logger
}

// New returns an aggregator. A non-positive timeout uses DefaultSourceTimeout.
func New(timeout time.Duration, logger *slog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &Aggregator{timeout: timeout, logger: logger}
}

// Aggregate runs every source concurrently. A slow, failing or panicking
// source contributes no postings and one fault; the others are unaffected.
// Postings are merged in the order sources complete.
func (a *Aggregator) Aggregate(ctx context.Context, sources []model.Source, q model.Query) Outcome {
	out := Outcome{SourceCounts: make(map[string]int, len(sources))}
	if len(sources) == 0 {
		return out
	}

	// Plain group: sources never cancel each other.
	var g errgroup.Group
	results := make(chan model.FetchResult, len(sources))

	for _, src := range sources {
		g.Go(func() error {
			results <- a.fetchOne(ctx, src, q)
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	for res := range results {
		out.merge(res)
	}

	a.logger.Info("aggregation complete",
		"sources", len(sources),
		"postings", len(out.Postings),
		"faults", len(out.Faults),
	)
	return out
}

// Sequential runs sources one at a time in order, asking each for the
// remainder of limit and stopping once limit postings are collected. Every
// posting a source returns is kept; trimming to limit happens after dedup
// and ranking.
func (a *Aggregator) Sequential(ctx context.Context, sources []model.Source, q model.Query, limit int) Outcome {
	out := Outcome{SourceCounts: make(map[string]int, len(sources))}
	for _, src := range sources {
		if len(out.Postings) >= limit {
			break
		}
		if ctx.Err() != nil {
			out.Faults = append(out.Faults, model.NewFault(model.FaultAdapter, src.Name(), ctx.Err()))
			break
		}

		sq := q
		sq.Budget = limit - len(out.Postings)
		out.merge(a.fetchOne(ctx, src, sq))
	}

	a.logger.Info("sequential aggregation complete", "postings", len(out.Postings), "faults", len(out.Faults))
	return out
}

func (o *Outcome) merge(res model.FetchResult) {
	valid := filter.Valid(res.Postings)
	o.Postings = append(o.Postings, valid...)
	o.SourceCounts[res.Source] += len(valid)
	o.Faults = append(o.Faults, res.Faults...)
	if res.Fallback && len(valid) > 0 {
		o.Fallback = true
	}
}

// fetchOne runs a single source under its own timeout. The source runs in
// its own goroutine so a source that ignores cancellation still cannot hold
// up the run.
func (a *Aggregator) fetchOne(ctx context.Context, src model.Source, q model.Query) model.FetchResult {
	name := src.Name()
	fctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan model.FetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- model.FetchResult{
					Source: name,
					Faults: []model.Fault{model.NewFault(model.FaultAdapter, name, fmt.Errorf("panic: %v", r))},
				}
			}
		}()
		done <- src.Fetch(fctx, q)
	}()

	var res model.FetchResult
	status := "ok"
	select {
	case res = <-done:
		res.Source = name
		switch {
		case len(res.Faults) > 0 && len(res.Postings) == 0:
			status = "fault"
		case res.Fallback:
			status = "fallback"
		case len(res.Postings) == 0:
			status = "empty"
		}
	case <-fctx.Done():
		err := ErrSourceTimeout
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		a.logger.Warn("source did not finish in time", "source", name, "timeout", a.timeout)
		res = model.FetchResult{
			Source: name,
			Faults: []model.Fault{model.NewFault(model.FaultAdapter, name, fmt.Errorf("%w after %s", err, a.timeout))},
		}
		status = "timeout"
	}

	metrics.ObserveFetch(name, status, len(res.Postings), time.Since(start))
	a.logger.Debug("source finished", "source", name, "status", status, "postings", len(res.Postings))
	return res
}
