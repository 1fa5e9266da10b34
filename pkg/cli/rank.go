package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mchmarny/scirank/pkg/config"
	"github.com/mchmarny/scirank/pkg/pipeline"
	"github.com/mchmarny/scirank/pkg/report"
	"github.com/urfave/cli/v3"
)

const defaultPrettyWidth = 120

func newRankCmd() *cli.Command {
	return &cli.Command{
		Name:            "rank",
		Aliases:         []string{"report"},
		Usage:           "Score, rank and render the ranking report",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			inputFlag(),
			benchFlag(),
			repoFilterFlag(),
			noIndexFlag(),
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Report format [markdown, csv, json, yaml, prom] (default: from --output extension)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the report to this file (default: stdout)"},
			&cli.StringFlag{Name: "title", Usage: "Report title", Value: report.DefaultTitle},
			&cli.IntFlag{Name: "top", Usage: "Only the first N rows"},
			&cli.IntFlag{Name: "fastest", Usage: "Passing tools listed in the benchmark summary", Value: report.DefaultFastest},
			&cli.BoolFlag{Name: "pretty", Usage: "Render markdown for the terminal"},
			&cli.StringFlag{Name: "style", Usage: "Terminal style [dark, light, dracula, notty]", Value: report.StyleDark},
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Re-render when the config or input files change"},
		},
		Action: cmdRank,
	}
}

func cmdRank(ctx context.Context, cmd *cli.Command) error {
	format, err := rankFormat(cmd)
	if err != nil {
		return err
	}

	if err := renderRank(ctx, cmd, format); err != nil {
		return err
	}
	if !cmd.Bool("watch") {
		return nil
	}

	a := getConfig(cmd)
	confPath, _ := filepath.Abs(a.ConfigPath)
	paths := []string{a.ConfigPath, cmd.String(flagInput), cmd.String(flagBench)}
	err = config.Watch(ctx, func(path string) {
		slog.Info("change detected, re-ranking", "path", path)
		if path == confPath {
			c, err := config.LoadOrDefault(a.ConfigPath)
			if err != nil {
				slog.Error("config reload failed, keeping previous", "error", err)
				return
			}
			a.Config = c
		}
		if err := renderRank(ctx, cmd, format); err != nil {
			slog.Error("rendering failed", "error", err)
		}
	}, paths...)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func rankFormat(cmd *cli.Command) (report.Format, error) {
	if v := cmd.String("format"); v != "" {
		return report.ParseFormat(v)
	}
	if out := cmd.String("output"); out != "" && out != "-" {
		return report.FormatFromPath(out), nil
	}
	return report.FormatMarkdown, nil
}

func renderRank(ctx context.Context, cmd *cli.Command, format report.Format) error {
	doc, err := buildDocument(ctx, cmd)
	if err != nil {
		return err
	}

	// validate before touching the output file
	if err := doc.Validate(); err != nil {
		return err
	}

	if cmd.Bool("pretty") && format == report.FormatMarkdown {
		style := cmd.String("style")
		if o := cmd.String("output"); (o == "" || o == "-") && !isTerminal(os.Stdout) {
			style = report.StyleNoTTY
		}
		out, err := report.Pretty(report.Markdown(doc), defaultPrettyWidth, style)
		if err != nil {
			return err
		}
		return writeFile(cmd, cmd.String("output"), func(w io.Writer) error {
			_, err := io.WriteString(w, out)
			return err
		})
	}

	return writeFile(cmd, cmd.String("output"), func(w io.Writer) error {
		return report.Write(w, format, doc)
	})
}

func buildDocument(ctx context.Context, cmd *cli.Command) (*report.Document, error) {
	a := getConfig(cmd)

	repos, flagged, err := loadRepos(cmd)
	if err != nil {
		return nil, err
	}
	bench, benchFlagged, err := loadBench(cmd)
	if err != nil {
		return nil, err
	}

	res, err := newResolver(cmd)
	if err != nil {
		return nil, err
	}

	table := pipeline.New(a.Config, res).Rank(ctx, repos, bench)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("ranking canceled: %w", ctx.Err())
	}

	slog.Info("ranked", "tools", table.Len(), "flagged", len(flagged)+len(benchFlagged))

	var summary *report.BenchSummary
	if len(bench) > 0 {
		summary = report.Summarize(bench, cmd.Int("fastest"))
	}

	return &report.Document{
		Title:       cmd.String("title"),
		GeneratedAt: time.Now().UTC(),
		Table:       pipeline.Top(table, cmd.Int("top")),
		Tools:       pipeline.Tools(table),
		Bench:       summary,
		Flagged:     append(flagged, benchFlagged...),
	}, nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
