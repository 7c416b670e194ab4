package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsift/internal/config"
	"github.com/amishk599/jobsift/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured job sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		renderSources(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func renderSources(w io.Writer, cfg *config.Config) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Enabled", "Backend", "Sample Fallback"})

	fallback := cfg.Sources.Sample.Fallback

	backend := "http"
	if cfg.Sources.Crawler.Browser {
		backend = "playwright, " + backend
	}
	if cfg.Firecrawl.Configured() {
		backend = "firecrawl, " + backend
	}
	t.AppendRow(table.Row{source.CrawlerName, yesNo(cfg.Sources.Crawler.Enabled), backend, yesNo(fallback)})

	endpoint := cfg.Sources.Search.Endpoint
	if endpoint == "" {
		endpoint = source.DefaultSearchEndpoint
	}
	t.AppendRow(table.Row{
		source.SearchName,
		yesNo(cfg.Sources.Search.Enabled),
		fmt.Sprintf("%s (%d queries, %.1f req/s)", endpoint, cfg.Sources.Search.MaxQueries, cfg.Sources.Search.RequestsPerSecond),
		yesNo(fallback),
	})

	companies := make([]string, 0, len(cfg.Sources.Boards.Companies))
	for _, c := range cfg.Sources.Boards.Companies {
		companies = append(companies, fmt.Sprintf("%s (%s)", c.Name, c.ATS))
	}
	t.AppendRow(table.Row{source.BoardsName, yesNo(cfg.Sources.Boards.Enabled), orNone(strings.Join(companies, ", ")), "-"})

	t.AppendRow(table.Row{source.SampleName, yesNo(cfg.Sources.Sample.Enabled), fmt.Sprintf("generator (seed %d)", cfg.Sources.Sample.Seed), "-"})
	t.Render()
}

func orNone(s string) string {
	if s == "" {
		return "none configured"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
