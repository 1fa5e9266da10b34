package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/report"
	"github.com/urfave/cli/v3"
)

func newShowCmd() *cli.Command {
	return &cli.Command{
		Name:            "show",
		Aliases:         []string{"s"},
		Usage:           "Print stored data",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:   "repos",
				Usage:  "Stored repository metadata",
				Flags:  []cli.Flag{repoFilterFlag()},
				Action: cmdShowRepos,
			},
			{
				Name:   "probes",
				Usage:  "Stored probe outcomes",
				Flags:  []cli.Flag{repoFilterFlag()},
				Action: cmdShowProbes,
			},
			{
				Name:  "bench",
				Usage: "Summary of stored probe outcomes (or --bench file)",
				Flags: []cli.Flag{
					benchFlag(),
					&cli.IntFlag{Name: "fastest", Usage: "Passing tools to list", Value: report.DefaultFastest},
				},
				Action: cmdShowBench,
			},
			{
				Name:   "state",
				Usage:  "Row counts of the store",
				Action: cmdShowState,
			},
		},
		Action: cmdShowState,
	}
}

func cmdShowRepos(_ context.Context, cmd *cli.Command) error {
	s, err := getConfig(cmd).Store()
	if err != nil {
		return err
	}
	list, err := data.GetRepos(s, optional(cmd.String(flagRepo)))
	if err != nil {
		return fmt.Errorf("reading repos: %w", err)
	}
	return encode(cmd, list)
}

func cmdShowProbes(_ context.Context, cmd *cli.Command) error {
	s, err := getConfig(cmd).Store()
	if err != nil {
		return err
	}
	list, err := data.GetProbes(s, optional(cmd.String(flagRepo)))
	if err != nil {
		return fmt.Errorf("reading probes: %w", err)
	}
	return encode(cmd, list)
}

func cmdShowBench(_ context.Context, cmd *cli.Command) error {
	list, _, err := loadBench(cmd)
	if err != nil {
		return err
	}
	return encode(cmd, report.Summarize(list, cmd.Int("fastest")))
}

func cmdShowState(_ context.Context, cmd *cli.Command) error {
	a := getConfig(cmd)
	s, err := a.Store()
	if err != nil {
		return err
	}
	state, err := data.GetState(s)
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}
	v, err := s.Version()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	return encode(cmd, map[string]any{
		"db":             redactDSN(a.DSN),
		"dialect":        s.Dialect,
		"schema_version": v,
		"counts":         state,
	})
}
