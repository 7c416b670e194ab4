package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/pipeline"
)

const healthTimeout = 30 * time.Second

var errUnhealthy = errors.New("one or more components are unhealthy")

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that every source and the ranker are ready",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

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

	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()

	report := a.orch.Health(ctx)
	renderHealth(cmd.OutOrStdout(), report)
	if !report.Healthy {
		return errUnhealthy
	}
	return nil
}

func renderHealth(w io.Writer, report pipeline.HealthReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Component", "Status", "Error"})
	for _, s := range report.Sources {
		t.AppendRow(table.Row{"source/" + s.Name, s.Status, s.Error})
	}
	t.AppendRow(table.Row{"ranker", report.Ranker.Status, report.Ranker.Error})
	t.AppendFooter(table.Row{"overall", overallStatus(report.Healthy), ""})
	t.Render()

	fmt.Fprintf(w, "firecrawl configured: %s  ai configured: %s\n",
		yesNo(report.FirecrawlConfigured), yesNo(report.AIConfigured))
}

func overallStatus(healthy bool) string {
	if healthy {
		return pipeline.StatusHealthy
	}
	return pipeline.StatusUnhealthy
}
