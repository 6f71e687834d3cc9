package binanalyzer

import (
	"fmt"
	"strings"
)

// ToolInvocationError is returned when the symbol dumper or the demangler
// cannot produce a listing: the tool is missing, fails to start, exits with
// an error, or the binary does not exist.
type ToolInvocationError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolInvocationError) Error() string {
	cmd := strings.Join(append([]string{e.Tool}, e.Args...), " ")
	if e.Stderr != "" {
		return fmt.Sprintf("running %s: %v: %s", cmd, e.Err, e.Stderr)
	}
	return fmt.Sprintf("running %s: %v", cmd, e.Err)
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}

// MalformedSymbolLineError is returned for a listing line whose first field
// is not a hexadecimal address.
type MalformedSymbolLineError struct {
	Line int
	Text string
	Err  error
}

func (e *MalformedSymbolLineError) Error() string {
	return fmt.Sprintf("symbol listing line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *MalformedSymbolLineError) Unwrap() error {
	return e.Err
}
