package main

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/chains-project/calltrace/decode_calls/config"
)

type RuntimeConfig struct {
	ConfigFile string
	Overrides  config.Overrides
	Verbose    bool
	TraceFiles []string
}

func main() {
	var args RuntimeConfig

	app := kingpin.New(filepath.Base(os.Args[0]), "Resolve the 0x addresses of captured call traces to symbols of a debug build.")
	app.HelpFlag.Short('h')
	app.Flag("config", "TOML config file.").Short('c').StringVar(&args.ConfigFile)
	app.Flag("binary", "Debug build to read symbols from. Default "+config.DefaultBinaryPath+".").Short('b').StringVar(&args.Overrides.Binary)
	app.Flag("nm", "Symbol dumper command, the binary path is appended. Default 'nm -S'.").StringVar(&args.Overrides.Dumper)
	app.Flag("demangler", "Demangler command the listing is piped through. Default 'c++filt'.").StringVar(&args.Overrides.Demangler)
	app.Flag("demangle", "Where to demangle names: external, builtin or none.").EnumVar(&args.Overrides.Demangle, "external", "builtin", "none")
	app.Flag("demangle-style", "Builtin demangler output: full, templates or simplified.").EnumVar(&args.Overrides.DemangleStyle, "full", "templates", "simplified")
	app.Flag("skip-malformed", "Skip symbol lines without a hex address instead of failing.").BoolVar(&args.Overrides.SkipMalformed)
	app.Flag("color", "Color output: auto, always or never.").EnumVar(&args.Overrides.Color, "auto", "always", "never")
	app.Flag("verbose", "Enable debug logging.").Short('v').BoolVar(&args.Verbose)
	app.Arg("trace-file", "Trace logs to decode. Reads stdin when none is given.").ExistingFilesVar(&args.TraceFiles)

	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := newLogger(os.Stderr, args.Verbose)
	os.Exit(checkError(logger, run(context.Background(), logger, args, os.Stdin, os.Stdout)))
}
