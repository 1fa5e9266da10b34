package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/input"
	"github.com/mchmarny/scirank/pkg/pipeline"
	"github.com/urfave/cli/v3"
)

func inputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    flagInput,
		Aliases: []string{"i"},
		Usage:   "Repository metadata CSV, - for stdin (default: stored repos)",
	}
}

func benchFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    flagBench,
		Aliases: []string{"b"},
		Usage:   "Benchmark results JSON or CSV (default: stored probes)",
	}
}

func repoFilterFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  flagRepo,
		Usage: "Only this repository (org/name)",
	}
}

// loadRepos reads the metadata CSV when given, otherwise the store.
func loadRepos(cmd *cli.Command) ([]*data.Repo, []input.Flagged, error) {
	if path := cmd.String(flagInput); path != "" {
		r, err := openInput(path)
		if err != nil {
			return nil, nil, err
		}
		defer r.Close()

		list, flagged, err := input.LoadRepos(r, path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading repos: %w", err)
		}
		for _, f := range flagged {
			slog.Warn("flagged input row", "row", f.String())
		}
		return filterRepos(list, cmd.String(flagRepo)), flagged, nil
	}

	s, err := getConfig(cmd).Store()
	if err != nil {
		return nil, nil, err
	}
	list, err := data.GetRepos(s, optional(cmd.String(flagRepo)))
	if err != nil {
		return nil, nil, fmt.Errorf("reading stored repos: %w", err)
	}
	return list, nil, nil
}

// loadBench reads the bench file when given, otherwise stored probes.
func loadBench(cmd *cli.Command) ([]input.Bench, []input.Flagged, error) {
	if path := cmd.String(flagBench); path != "" {
		r, err := openInput(path)
		if err != nil {
			return nil, nil, err
		}
		defer r.Close()

		list, flagged, err := input.LoadBench(r, path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading bench results: %w", err)
		}
		for _, f := range flagged {
			slog.Warn("flagged bench row", "row", f.String())
		}
		return list, flagged, nil
	}

	s, err := getConfig(cmd).Store()
	if err != nil {
		return nil, nil, err
	}
	probes, err := data.GetProbes(s, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("reading stored probes: %w", err)
	}
	return pipeline.FromProbes(probes), nil, nil
}

// filterRepos keeps the repo matching id, all of them when id is empty.
func filterRepos(list []*data.Repo, id string) []*data.Repo {
	if id == "" {
		return list
	}
	out := make([]*data.Repo, 0, 1)
	for _, r := range list {
		if strings.EqualFold(r.Identifier, id) {
			out = append(out, r)
		}
	}
	return out
}

func optional(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
