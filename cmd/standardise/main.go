// SPDX-License-Identifier: MIT

// Command standardise runs the Standardise stage of the ETL pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/ManuGH/standardise/internal/config"
	xglog "github.com/ManuGH/standardise/internal/log"
	"github.com/ManuGH/standardise/internal/metrics"
	"github.com/ManuGH/standardise/internal/runner"
	"github.com/ManuGH/standardise/internal/runstore"
	"github.com/ManuGH/standardise/internal/version"
	"github.com/ManuGH/standardise/internal/watch"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  standardise [run] [flags]      standardise one dataset (default)")
	_, _ = fmt.Fprintln(w, "  standardise watch [flags]      standardise files as they appear in a directory")
	_, _ = fmt.Fprintln(w, "  standardise validate [flags]   check the configuration and exit")
	_, _ = fmt.Fprintln(w, "  standardise history [flags]    print recent runs from the run ledger")
	_, _ = fmt.Fprintln(w, "  standardise version            print build information")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "run":
		return runOnce(ctx, args, stderr)
	case "watch":
		return runWatch(ctx, args, stderr)
	case "validate":
		return runValidate(args, stdout, stderr)
	case "history":
		return runHistory(ctx, args, stdout, stderr)
	case "version":
		_, _ = fmt.Fprintln(stdout, version.String())
		return exitOK
	case "help":
		printUsage(stdout)
		return exitOK
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", cmd)
		printUsage(stderr)
		return exitUsage
	}
}

// commonFlags are shared by every subcommand that loads configuration.
type commonFlags struct {
	config    string
	in        string
	out       string
	inFormat  string
	outFormat string
	inTable   string
	outTable  string
	logLevel  string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet("standardise "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &commonFlags{}
	fs.StringVar(&c.config, "config", "", "path to a YAML or TOML configuration file")
	fs.StringVar(&c.in, "in", "", "input dataset path")
	fs.StringVar(&c.out, "out", "", "output dataset path")
	fs.StringVar(&c.inFormat, "in-format", "", "input format (parquet, csv, jsonl, sqlite)")
	fs.StringVar(&c.outFormat, "out-format", "", "output format (parquet, csv, jsonl, sqlite)")
	fs.StringVar(&c.inTable, "in-table", "", "input table name (sqlite)")
	fs.StringVar(&c.outTable, "out-table", "", "output table name (sqlite)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	return fs, c
}

// load resolves the configuration. Flags win over ENV, file and defaults.
func (c *commonFlags) load() (config.AppConfig, error) {
	loader := config.NewLoader(strings.TrimSpace(c.config), version.Version).
		WithOverride(func(cfg *config.AppConfig) {
			if c.in != "" {
				cfg.Input.Path = c.in
			}
			if c.out != "" {
				cfg.Output.Path = c.out
			}
			if c.inFormat != "" {
				cfg.Input.Format = c.inFormat
			}
			if c.outFormat != "" {
				cfg.Output.Format = c.outFormat
			}
			if c.inTable != "" {
				cfg.Input.Table = c.inTable
			}
			if c.outTable != "" {
				cfg.Output.Table = c.outTable
			}
			if c.logLevel != "" {
				cfg.LogLevel = c.logLevel
			}
		})
	return loader.Load()
}

func configureLogging(cfg config.AppConfig, stderr io.Writer) {
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  stderr,
		Version: cfg.Version,
	})
}

// setup parses flags and loads configuration. A non-negative code means the
// caller must exit with it.
func setup(name string, args []string, stderr io.Writer, extra func(*flag.FlagSet)) (config.AppConfig, int) {
	fs, flags := newFlagSet(name, stderr)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return config.AppConfig{}, exitOK
		}
		return config.AppConfig{}, exitUsage
	}
	if fs.NArg() > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return config.AppConfig{}, exitUsage
	}
	cfg, err := flags.load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return config.AppConfig{}, exitFailure
	}
	configureLogging(cfg, stderr)
	return cfg, -1
}

func runOnce(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, code := setup("run", args, stderr, nil)
	if code >= 0 {
		return code
	}
	if _, err := runner.Run(ctx, cfg); err != nil {
		return exitFailure
	}
	return exitOK
}

func runWatch(ctx context.Context, args []string, stderr io.Writer) int {
	var dir, outDir, pattern, listen string
	cfg, code := setup("watch", args, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&dir, "dir", "", "directory to watch for input files")
		fs.StringVar(&outDir, "out-dir", "", "directory receiving standardised files")
		fs.StringVar(&pattern, "pattern", "", "glob of input file names")
		fs.StringVar(&listen, "listen", "", "address serving /healthz and /metrics")
	})
	if code >= 0 {
		return code
	}
	if dir != "" {
		cfg.Watch.Dir = dir
	}
	if outDir != "" {
		cfg.Watch.OutputDir = outDir
	}
	if pattern != "" {
		cfg.Watch.Pattern = pattern
	}
	if listen != "" {
		cfg.Watch.Listen = listen
	}

	logger := xglog.WithComponent("cli")
	var store *runstore.Store
	if cfg.RunStore != "" {
		s, err := runstore.Open(cfg.RunStore)
		if err != nil {
			logger.Error().Err(err).Str(xglog.FieldEvent, "runstore.open_failed").Msg("could not open run ledger")
			return exitFailure
		}
		defer func() { _ = s.Close() }()
		store = s
	}
	metrics.EnableRuntimeCollectors()

	w, err := watch.New(cfg, func(ctx context.Context, fileCfg config.AppConfig) (runner.Report, error) {
		var opts []runner.Option
		if store != nil {
			opts = append(opts, runner.WithStore(store))
		}
		return runner.New(fileCfg, opts...).Run(ctx)
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return exitFailure
	}
	if err := w.Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "watch.failed").Msg("watch mode failed")
		return exitFailure
	}
	return exitOK
}

func runValidate(args []string, stdout, stderr io.Writer) int {
	cfg, code := setup("validate", args, stderr, nil)
	if code >= 0 {
		return code
	}
	_, _ = fmt.Fprintf(stdout, "configuration OK: %s -> %s (stages: %s)\n",
		cfg.Input.Path, cfg.Output.Path, strings.Join(cfg.Stages.Enabled, ","))
	return exitOK
}

func runHistory(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var limit int
	cfg, code := setup("history", args, stderr, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "n", 20, "number of runs to print")
	})
	if code >= 0 {
		return code
	}
	if cfg.RunStore == "" {
		_, _ = fmt.Fprintln(stderr, "no run ledger configured (set runStore or STANDARDISE_RUN_STORE)")
		return exitFailure
	}
	store, err := runstore.Open(cfg.RunStore)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "open run ledger: %v\n", err)
		return exitFailure
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "read run ledger: %v\n", err)
		return exitFailure
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATUS\tROWS IN\tROWS OUT\tDUPLICATES\tINPUT\tOUTPUT")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status,
			r.RowsIn, r.RowsOut, r.Duplicates, r.Input, r.Output)
	}
	if err := tw.Flush(); err != nil {
		return exitFailure
	}
	return exitOK
}
