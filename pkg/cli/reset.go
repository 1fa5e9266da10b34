package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/mchmarny/scirank/pkg/data"
	"github.com/urfave/cli/v3"
)

func newResetCmd() *cli.Command {
	return &cli.Command{
		Name:            "reset",
		Usage:           "Delete all stored repos and probes",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: cmdReset,
	}
}

func cmdReset(_ context.Context, cmd *cli.Command) error {
	a := getConfig(cmd)
	w := stdout(cmd)

	if !cmd.Bool("yes") {
		fmt.Fprintf(w, "This will permanently delete all data in %s\n", redactDSN(a.DSN))
		fmt.Fprint(w, "Are you sure? [y/N]: ")

		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	s, err := a.Store()
	if err != nil {
		return err
	}
	if err := data.Reset(s); err != nil {
		return fmt.Errorf("resetting database: %w", err)
	}

	slog.Info("database reset", "db", redactDSN(a.DSN))
	fmt.Fprintln(w, "Reset complete.")
	return nil
}

// redactDSN hides the password of a postgres DSN.
func redactDSN(dsn string) string {
	if data.DialectOf(dsn) != data.DialectPostgres {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres://..."
	}
	return u.Redacted()
}
