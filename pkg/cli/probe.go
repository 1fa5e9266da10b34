package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/input"
	"github.com/mchmarny/scirank/pkg/pipeline"
	"github.com/mchmarny/scirank/pkg/probe"
	"github.com/urfave/cli/v3"
)

func newProbeCmd() *cli.Command {
	return &cli.Command{
		Name:            "probe",
		Aliases:         []string{"p"},
		Usage:           "Install and import-test every resolved tool",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			inputFlag(),
			repoFilterFlag(),
			noIndexFlag(),
			&cli.IntFlag{Name: "parallel", Usage: "Probes in flight (default: from config)"},
			&cli.StringFlag{Name: "installer", Usage: "Installer [pip, conda, none] (default: from config)"},
			&cli.StringFlag{Name: "python", Usage: "Python interpreter (default: from config)"},
			&cli.DurationFlag{Name: "timeout", Usage: "Per step timeout (default: from config)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Also export the results as bench JSON to this file"},
			&cli.BoolFlag{Name: "no-store", Usage: "Do not save results in the database"},
		},
		Action: cmdProbe,
	}
}

func cmdProbe(ctx context.Context, cmd *cli.Command) error {
	a := getConfig(cmd)
	pc := a.Config.Probe
	if cmd.IsSet("parallel") {
		pc.Parallel = cmd.Int("parallel")
	}
	if v := cmd.String("installer"); v != "" {
		pc.Installer = v
	}
	if v := cmd.String("python"); v != "" {
		pc.Python = v
	}
	if v := cmd.Duration("timeout"); v > 0 {
		pc.Timeout = v
	}

	repos, _, err := loadRepos(cmd)
	if err != nil {
		return err
	}

	res, err := newResolver(cmd)
	if err != nil {
		return err
	}
	tools := pipeline.New(a.Config, res).Resolve(ctx, repos)

	// partial results are still saved when canceled
	results, probeErr := probe.New(pc).ProbeAll(ctx, tools, res, pc.Parallel)

	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	slog.Info("probed", "tools", len(results), "passed", passed)

	if !cmd.Bool("no-store") && len(results) > 0 {
		s, err := a.Store()
		if err != nil {
			return err
		}
		if err := data.SaveProbes(s, pipeline.ToProbes(results, time.Now().UTC().Format(time.RFC3339))); err != nil {
			return fmt.Errorf("saving probes: %w", err)
		}
	}

	if out := cmd.String("out"); out != "" {
		if err := writeFile(cmd, out, func(w io.Writer) error {
			return input.WriteBench(w, pipeline.FromResults(results))
		}); err != nil {
			return err
		}
	}

	if probeErr != nil {
		return probeErr
	}
	return encode(cmd, results)
}
