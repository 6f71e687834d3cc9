package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/chains-project/calltrace/decode_calls/binanalyzer"
	"github.com/chains-project/calltrace/decode_calls/config"
	"github.com/chains-project/calltrace/decode_calls/stackanalyzer"
)

func newLogger(w io.Writer, verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}

func checkError(logger log.Logger, err error) int {
	if err == nil {
		return 0
	}
	level.Error(logger).Log("msg", "decoding calls failed", "err", err)
	return 1
}

func loadConfig(args RuntimeConfig) (config.Config, error) {
	cfg := config.Default()
	if args.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(args.ConfigFile); err != nil {
			return cfg, err
		}
	}
	cfg.Apply(args.Overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// buildSymbolTable runs the symbol tools. An interrupt kills them; once the
// table is built the default signal behaviour is restored.
func buildSymbolTable(ctx context.Context, logger log.Logger, cfg config.Config) (*binanalyzer.SymbolTable, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := binanalyzer.Build(ctx, cfg.Binary.Path, cfg.BuildOptions(logger)...)
	if err != nil {
		return nil, errors.Wrap(err, "building symbol table")
	}
	if table.Len() == 0 {
		level.Warn(logger).Log("msg", "symbol table is empty, nothing will resolve", "binary", cfg.Binary.Path)
	}
	return table, nil
}

func run(ctx context.Context, logger log.Logger, args RuntimeConfig, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	table, err := buildSymbolTable(ctx, logger, cfg)
	if err != nil {
		return err
	}

	printer := stackanalyzer.NewColorPrinter(stdout, stackanalyzer.ColorMode(cfg.Output.Color))
	resolver := stackanalyzer.NewResolver(table, printer, logger)

	if len(args.TraceFiles) == 0 {
		_, err := resolver.Run(ctx, stdin)
		return errors.Wrap(err, "decoding stdin")
	}

	var total stackanalyzer.Stats
	for _, name := range args.TraceFiles {
		stats, err := decodeFile(ctx, resolver, name)
		total = total.Add(stats)
		if err != nil {
			return err
		}
	}
	level.Debug(logger).Log("msg", "all traces decoded", "files", len(args.TraceFiles),
		"lines", total.Lines, "resolved", total.Resolved, "unresolved", total.Unresolved)
	return nil
}

func decodeFile(ctx context.Context, resolver *stackanalyzer.Resolver, name string) (stackanalyzer.Stats, error) {
	f, err := os.Open(name)
	if err != nil {
		return stackanalyzer.Stats{}, errors.Wrap(err, "opening trace")
	}
	defer f.Close()

	stats, err := resolver.Run(ctx, f)
	return stats, errors.Wrapf(err, "decoding %s", name)
}
