package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/discover"
	"github.com/mchmarny/scirank/pkg/input"
	"github.com/mchmarny/scirank/pkg/net"
	"github.com/urfave/cli/v3"
)

func newDiscoverCmd() *cli.Command {
	return &cli.Command{
		Name:            "discover",
		Aliases:         []string{"d"},
		Usage:           "Search GitHub for scientific tools and store their metadata",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			tokenFlag(),
			&cli.StringSliceFlag{Name: "org", Usage: "Harvest all repositories of this org (repeatable)"},
			&cli.StringSliceFlag{Name: "topic", Usage: "Search this topic (repeatable, replaces configured topics)"},
			&cli.StringSliceFlag{Name: "query", Usage: "Free text search term (repeatable)"},
			&cli.StringSliceFlag{Name: "repo", Usage: "Enrich this org/name directly (repeatable, skips search)"},
			&cli.IntFlag{Name: "min-stars", Usage: "Minimum stars (default: from config)"},
			&cli.IntFlag{Name: "max-pages", Usage: "Search result pages per query (default: from config)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Also export the metadata as CSV to this file"},
			&cli.BoolFlag{Name: "no-store", Usage: "Do not save results in the database"},
		},
		Action: cmdDiscover,
	}
}

func cmdDiscover(ctx context.Context, cmd *cli.Command) error {
	a := getConfig(cmd)
	dc := a.Config.Discovery

	if v := cmd.StringSlice("org"); len(v) > 0 {
		dc.Orgs = v
	}
	if v := cmd.StringSlice("topic"); len(v) > 0 {
		dc.Topics = v
	}
	if v := cmd.StringSlice("query"); len(v) > 0 {
		dc.Queries = v
	}
	if cmd.IsSet("min-stars") {
		dc.MinStars = cmd.Int("min-stars")
	}
	if cmd.IsSet("max-pages") {
		dc.MaxPages = cmd.Int("max-pages")
	}
	// explicit orgs without topics only harvest the orgs
	if cmd.IsSet("org") && !cmd.IsSet("topic") {
		dc.Topics = nil
	}

	hc := net.GetOAuthClient(ctx, getGitHubToken(cmd, a.HomeDir))
	client, err := discover.New(hc, dc)
	if err != nil {
		return fmt.Errorf("creating discovery client: %w", err)
	}

	var repos []*data.Repo
	if ids := cmd.StringSlice("repo"); len(ids) > 0 {
		repos = make([]*data.Repo, 0, len(ids))
		for _, id := range ids {
			r, err := client.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("getting %s: %w", id, err)
			}
			repos = append(repos, r)
		}
	} else {
		if repos, err = client.Discover(ctx); err != nil {
			return fmt.Errorf("discovering repos: %w", err)
		}
	}

	if !cmd.Bool("no-store") {
		s, err := a.Store()
		if err != nil {
			return err
		}
		if err := data.SaveRepos(s, repos); err != nil {
			return fmt.Errorf("saving repos: %w", err)
		}
		slog.Info("stored repos", "count", len(repos))
	}

	if out := cmd.String("out"); out != "" {
		if err := writeFile(cmd, out, func(w io.Writer) error {
			return input.WriteRepos(w, repos)
		}); err != nil {
			return err
		}
		slog.Info("exported repos", "path", out)
	}

	return encode(cmd, discoverSummary(repos))
}

type discoverResult struct {
	Repos   int            `json:"repos" yaml:"repos"`
	Domains map[string]int `json:"domains" yaml:"domains"`
}

func discoverSummary(repos []*data.Repo) *discoverResult {
	r := &discoverResult{Repos: len(repos), Domains: make(map[string]int)}
	for _, repo := range repos {
		r.Domains[repo.Domain]++
	}
	return r
}
