package binanalyzer

import (
	"strings"

	"github.com/ianlancetaylor/demangle"
	"github.com/pkg/errors"
)

// DemangleMode selects where C++ names in the listing get demangled.
type DemangleMode string

const (
	// DemangleExternal pipes the listing through the demangler command.
	DemangleExternal DemangleMode = "external"
	// DemangleBuiltin demangles in process, no second tool is started.
	DemangleBuiltin DemangleMode = "builtin"
	// DemangleNone keeps names as the dumper printed them.
	DemangleNone DemangleMode = "none"
)

func ParseDemangleMode(s string) (DemangleMode, error) {
	switch m := DemangleMode(s); m {
	case DemangleExternal, DemangleBuiltin, DemangleNone:
		return m, nil
	}
	return "", errors.Errorf("unknown demangle mode %q, use external, builtin or none", s)
}

// DemangleStyle controls the builtin demangler output.
type DemangleStyle string

const (
	DemangleFull       DemangleStyle = "full"
	DemangleTemplates  DemangleStyle = "templates"
	DemangleSimplified DemangleStyle = "simplified"
)

func ParseDemangleStyle(s string) (DemangleStyle, error) {
	switch st := DemangleStyle(s); st {
	case DemangleFull, DemangleTemplates, DemangleSimplified:
		return st, nil
	}
	return "", errors.Errorf("unknown demangle style %q, use full, templates or simplified", s)
}

func (s DemangleStyle) options() []demangle.Option {
	switch s {
	case DemangleSimplified:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams, demangle.NoTemplateParams}
	case DemangleTemplates:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams}
	default:
		return []demangle.Option{demangle.NoClones}
	}
}

func (o *buildOptions) demangleFunc() func(string) string {
	if o.mode != DemangleBuiltin {
		return nil
	}
	opts := o.style.options()
	return func(line string) string {
		return demangleWords(line, opts)
	}
}

// demangleWords behaves like c++filt on a single line: every space separated
// word that is a mangled name is replaced, everything else is kept as is.
func demangleWords(line string, opts []demangle.Option) string {
	words := strings.Split(line, " ")
	for i, w := range words {
		// Filter may drop entries from the option slice it is given.
		words[i] = demangle.Filter(w, append([]demangle.Option(nil), opts...)...)
	}
	return strings.Join(words, " ")
}
