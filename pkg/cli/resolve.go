package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mchmarny/scirank/pkg/net"
	"github.com/mchmarny/scirank/pkg/pipeline"
	"github.com/mchmarny/scirank/pkg/probe"
	"github.com/mchmarny/scirank/pkg/resolve"
	"github.com/urfave/cli/v3"
)

func noIndexFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  flagNoIndex,
		Usage: "Skip the package index dry run",
	}
}

func checkImportFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  flagCheckImport,
		Usage: "Also require the module to import in the local Python",
	}
}

func newResolveCmd() *cli.Command {
	return &cli.Command{
		Name:            "resolve",
		Usage:           "Map repositories to installable Python packages",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			inputFlag(),
			repoFilterFlag(),
			noIndexFlag(),
			checkImportFlag(),
			&cli.StringFlag{Name: "requirements", Aliases: []string{"r"}, Usage: "Also write the OK and UNKNOWN packages to this requirements file"},
		},
		Action: cmdResolve,
	}
}

type mappingItem struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Domain     string `json:"domain" yaml:"domain"`
	Status     string `json:"status" yaml:"status"`
	Package    string `json:"package,omitempty" yaml:"package,omitempty"`
	Module     string `json:"module,omitempty" yaml:"module,omitempty"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// newResolver builds the resolver for the current command flags.
func newResolver(cmd *cli.Command) (*resolve.Resolver, error) {
	cfg := *getConfig(cmd).Config
	if cmd.Bool(flagNoIndex) {
		cfg.Index.Enabled = false
	}

	hc, err := net.GetHTTPClient()
	if err != nil {
		return nil, err
	}

	var checker resolve.ImportChecker
	if cmd.Bool(flagCheckImport) {
		checker = probe.New(cfg.Probe)
	}
	return pipeline.NewResolver(&cfg, hc, checker), nil
}

func cmdResolve(ctx context.Context, cmd *cli.Command) error {
	repos, _, err := loadRepos(cmd)
	if err != nil {
		return err
	}

	res, err := newResolver(cmd)
	if err != nil {
		return err
	}

	tools := pipeline.New(getConfig(cmd).Config, res).Resolve(ctx, repos)
	if ctx.Err() != nil {
		return fmt.Errorf("resolution canceled: %w", ctx.Err())
	}

	counts := map[resolve.Status]int{}
	list := make([]*mappingItem, 0, len(tools))
	for _, t := range tools {
		counts[t.Resolution.Status()]++
		pkg, _ := t.Resolution.Package()
		reason, _ := t.Resolution.Reason()
		item := &mappingItem{
			Identifier: t.Identifier,
			Domain:     string(t.Domain),
			Status:     t.Resolution.Status().String(),
			Package:    pkg,
			Reason:     reason,
		}
		if t.Resolution.Status() == resolve.StatusOK {
			item.Module = res.ImportName(pkg)
		}
		list = append(list, item)
	}

	slog.Info("resolved",
		"ok", counts[resolve.StatusOK],
		"skipped", counts[resolve.StatusSkipped],
		"unknown", counts[resolve.StatusUnknown])

	if path := cmd.String("requirements"); path != "" {
		if err := writeFile(cmd, path, func(w io.Writer) error {
			return resolve.WriteRequirements(w, tools)
		}); err != nil {
			return err
		}
	}
	return encode(cmd, list)
}
