package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/chains-project/calltrace/decode_calls/binanalyzer"
	"github.com/chains-project/calltrace/decode_calls/stackanalyzer"
)

// DefaultBinaryPath is the firmware debug build, relative to the working
// directory.
const DefaultBinaryPath = "build/fk-naturalist-main.elf"

type Config struct {
	Binary  BinaryConfig  `toml:"binary"`
	Tools   ToolsConfig   `toml:"tools"`
	Symbols SymbolsConfig `toml:"symbols"`
	Output  OutputConfig  `toml:"output"`
}

type BinaryConfig struct {
	Path string `toml:"path"`
}

type ToolsConfig struct {
	// Dumper and Demangler are a command followed by its arguments.
	Dumper        []string `toml:"dumper"`
	Demangler     []string `toml:"demangler"`
	Demangle      string   `toml:"demangle"`
	DemangleStyle string   `toml:"demangle_style"`
}

type SymbolsConfig struct {
	MaxFields     int  `toml:"max_fields"`
	NameField     int  `toml:"name_field"`
	SkipMalformed bool `toml:"skip_malformed"`
}

type OutputConfig struct {
	Color string `toml:"color"`
}

func Default() Config {
	return Config{
		Binary: BinaryConfig{Path: DefaultBinaryPath},
		Tools: ToolsConfig{
			Dumper:        commandSlice(binanalyzer.DefaultDumper),
			Demangler:     commandSlice(binanalyzer.DefaultDemangler),
			Demangle:      string(binanalyzer.DemangleExternal),
			DemangleStyle: string(binanalyzer.DemangleFull),
		},
		Symbols: SymbolsConfig{
			MaxFields: binanalyzer.DefaultLayout.MaxFields,
			NameField: binanalyzer.DefaultLayout.NameField,
		},
		Output: OutputConfig{Color: string(stackanalyzer.ColorAuto)},
	}
}

// Load reads a TOML file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	return cfg, nil
}

// Overrides are command line values. Empty values leave the config as is.
type Overrides struct {
	Binary        string
	Dumper        string
	Demangler     string
	Demangle      string
	DemangleStyle string
	Color         string
	SkipMalformed bool
}

func (c *Config) Apply(o Overrides) {
	if o.Binary != "" {
		c.Binary.Path = o.Binary
	}
	if o.Dumper != "" {
		c.Tools.Dumper = strings.Fields(o.Dumper)
	}
	if o.Demangler != "" {
		c.Tools.Demangler = strings.Fields(o.Demangler)
	}
	if o.Demangle != "" {
		c.Tools.Demangle = o.Demangle
	}
	if o.DemangleStyle != "" {
		c.Tools.DemangleStyle = o.DemangleStyle
	}
	if o.Color != "" {
		c.Output.Color = o.Color
	}
	if o.SkipMalformed {
		c.Symbols.SkipMalformed = true
	}
}

func (c Config) Validate() error {
	if c.Binary.Path == "" {
		return errors.New("binary path is empty")
	}
	if len(c.Tools.Dumper) == 0 || c.Tools.Dumper[0] == "" {
		return errors.New("dumper command is empty")
	}
	mode, err := binanalyzer.ParseDemangleMode(c.Tools.Demangle)
	if err != nil {
		return err
	}
	if mode == binanalyzer.DemangleExternal && (len(c.Tools.Demangler) == 0 || c.Tools.Demangler[0] == "") {
		return errors.New("demangler command is empty")
	}
	if _, err := binanalyzer.ParseDemangleStyle(c.Tools.DemangleStyle); err != nil {
		return err
	}
	if c.Symbols.MaxFields < 1 {
		return errors.Errorf("max_fields must be at least 1, got %d", c.Symbols.MaxFields)
	}
	if c.Symbols.NameField >= c.Symbols.MaxFields || c.Symbols.NameField < -c.Symbols.MaxFields {
		return errors.Errorf("name_field %d out of range for %d fields", c.Symbols.NameField, c.Symbols.MaxFields)
	}
	if _, err := stackanalyzer.ParseColorMode(c.Output.Color); err != nil {
		return err
	}
	return nil
}

// BuildOptions translates a validated config for binanalyzer.Build.
func (c Config) BuildOptions(logger log.Logger) []binanalyzer.BuildOption {
	return []binanalyzer.BuildOption{
		binanalyzer.BuildWithDumper(command(c.Tools.Dumper)),
		binanalyzer.BuildWithDemangler(command(c.Tools.Demangler)),
		binanalyzer.BuildWithDemangleMode(binanalyzer.DemangleMode(c.Tools.Demangle)),
		binanalyzer.BuildWithDemangleStyle(binanalyzer.DemangleStyle(c.Tools.DemangleStyle)),
		binanalyzer.BuildWithLayout(binanalyzer.Layout{
			MaxFields: c.Symbols.MaxFields,
			NameField: c.Symbols.NameField,
		}),
		binanalyzer.BuildWithSkipMalformed(c.Symbols.SkipMalformed),
		binanalyzer.BuildWithLogger(logger),
	}
}

func command(s []string) binanalyzer.Command {
	if len(s) == 0 {
		return binanalyzer.Command{}
	}
	return binanalyzer.Command{Path: s[0], Args: s[1:]}
}

func commandSlice(c binanalyzer.Command) []string {
	return append([]string{c.Path}, c.Args...)
}
