package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mchmarny/scirank/pkg/config"
	"github.com/mchmarny/scirank/pkg/data"
	"github.com/mchmarny/scirank/pkg/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "scirank"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"

	flagDebug       = "debug"
	flagLogLevel    = "log-level"
	flagDB          = "db"
	flagConfig      = "config"
	flagFormatOut   = "format-out"
	flagInput       = "input"
	flagBench       = "bench"
	flagRepo        = "repo"
	flagNoIndex     = "no-index"
	flagCheckImport = "check-import"
	flagToken       = "token"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

func debugFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    flagDebug,
		Usage:   "Prints verbose logs",
		Sources: cli.EnvVars("SCIRANK_DEBUG"),
	}
}

func logLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    flagLogLevel,
		Usage:   "Log level [debug, info, warn, error]",
		Value:   "info",
		Sources: cli.EnvVars("SCIRANK_LOG_LEVEL"),
	}
}

func dbFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    flagDB,
		Usage:   "SQLite file path or postgres:// DSN (default: $HOME/.scirank/data.db)",
		Sources: cli.EnvVars("SCIRANK_DB"),
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    flagConfig,
		Usage:   "Path to the scoring policy YAML (default: $HOME/.scirank/config.yaml)",
		Sources: cli.EnvVars("SCIRANK_CONFIG"),
	}
}

func formatOutFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  flagFormatOut,
		Usage: "Structured output format [json, yaml]",
		Value: formatJSON,
	}
}

type appConfig struct {
	HomeDir    string
	DSN        string
	ConfigPath string
	Format     string
	Debug      bool
	Config     *config.Config

	store *data.Store
}

// Store opens the database on first use.
func (a *appConfig) Store() (*data.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if err := data.Init(a.DSN); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	s, err := data.GetDB(a.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.store = s
	return s, nil
}

func (a *appConfig) close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}

// Execute creates and runs the CLI application.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}

func getConfig(cmd *cli.Command) *appConfig {
	a, _ := cmd.Root().Metadata[appConfigKey].(*appConfig)
	return a
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            appName,
		Version:         fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Usage:           "Discover, probe and rank scientific Python tools on GitHub",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			debugFlag(),
			logLevelFlag(),
			dbFlag(),
			configFlag(),
			formatOutFlag(),
		},
		Commands: []*cli.Command{
			newDiscoverCmd(),
			newResolveCmd(),
			newProbeCmd(),
			newRankCmd(),
			newShowCmd(),
			newAuthCmd(),
			newResetCmd(),
		},
		Metadata: map[string]any{},
		Before:   before,
		After: func(_ context.Context, cmd *cli.Command) error {
			if a := getConfig(cmd); a != nil {
				a.close()
			}
			return nil
		},
	}
}

func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level := cmd.String(flagLogLevel)
	if cmd.Bool(flagDebug) {
		level = "debug"
	}
	initLogging(level)

	home, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return ctx, fmt.Errorf("preparing home dir: %w", err)
	}

	a := &appConfig{
		HomeDir:    home,
		DSN:        cmd.String(flagDB),
		ConfigPath: cmd.String(flagConfig),
		Debug:      level == "debug",
	}
	if a.DSN == "" {
		a.DSN = filepath.Join(home, data.DataFileName)
	}
	if a.ConfigPath == "" {
		a.ConfigPath = filepath.Join(home, config.FileName)
	}

	switch f := cmd.String(flagFormatOut); f {
	case formatJSON, "":
		a.Format = formatJSON
	case formatYAML, "yml":
		a.Format = formatYAML
	default:
		return ctx, fmt.Errorf("unsupported output format %q", f)
	}

	if a.Config, err = config.LoadOrDefault(a.ConfigPath); err != nil {
		return ctx, err
	}

	slog.Debug("app config", "db", a.DSN, "config", a.ConfigPath)
	cmd.Root().Metadata[appConfigKey] = a
	return ctx, nil
}

func initLogging(level string) {
	logging.SetDefaultCLILogger(level)
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func encode(cmd *cli.Command, v any) error {
	w := stdout(cmd)
	if a := getConfig(cmd); a != nil && a.Format == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

// openInput opens path for reading; "-" is stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

// writeFile writes through fn to path, or to the command output when path
// is empty or "-".
func writeFile(cmd *cli.Command, path string, fn func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return fn(stdout(cmd))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return fn(f)
}
