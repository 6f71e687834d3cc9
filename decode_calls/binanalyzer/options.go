package binanalyzer

import (
	"strings"

	"github.com/go-kit/log"
)

// Command is an external tool invocation. The binary path is appended to the
// dumper's arguments.
type Command struct {
	Path string
	Args []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

var (
	DefaultDumper    = Command{Path: "nm", Args: []string{"-S"}}
	DefaultDemangler = Command{Path: "c++filt"}
)

type buildOptions struct {
	dumper        Command
	demangler     Command
	mode          DemangleMode
	style         DemangleStyle
	layout        Layout
	skipMalformed bool
	logger        log.Logger
}

func newBuildOptions(opts []BuildOption) *buildOptions {
	o := &buildOptions{
		dumper:    DefaultDumper,
		demangler: DefaultDemangler,
		mode:      DemangleExternal,
		style:     DemangleFull,
		layout:    DefaultLayout,
		logger:    log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BuildOption configures Build and ReadTable.
type BuildOption func(*buildOptions)

// BuildWithDumper sets the command that lists the binary's symbols.
func BuildWithDumper(c Command) BuildOption {
	return func(o *buildOptions) {
		o.dumper = c
	}
}

// BuildWithDemangler sets the command the listing is piped through in
// DemangleExternal mode.
func BuildWithDemangler(c Command) BuildOption {
	return func(o *buildOptions) {
		o.demangler = c
	}
}

func BuildWithDemangleMode(m DemangleMode) BuildOption {
	return func(o *buildOptions) {
		o.mode = m
	}
}

// BuildWithDemangleStyle selects how much of a name the builtin demangler keeps.
func BuildWithDemangleStyle(s DemangleStyle) BuildOption {
	return func(o *buildOptions) {
		o.style = s
	}
}

// BuildWithLayout sets how listing lines are split. A MaxFields below one
// keeps the default layout.
func BuildWithLayout(l Layout) BuildOption {
	return func(o *buildOptions) {
		if l.MaxFields < 1 {
			return
		}
		o.layout = l
	}
}

// BuildWithSkipMalformed makes lines with a non-hexadecimal first field be
// logged and skipped instead of failing the build.
func BuildWithSkipMalformed(enabled bool) BuildOption {
	return func(o *buildOptions) {
		o.skipMalformed = enabled
	}
}

func BuildWithLogger(l log.Logger) BuildOption {
	return func(o *buildOptions) {
		if l == nil {
			l = log.NewNopLogger()
		}
		o.logger = l
	}
}
