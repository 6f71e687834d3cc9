package stackanalyzer

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/chains-project/calltrace/decode_calls/binanalyzer"
)

// Printer writes one resolved symbol.
type Printer interface {
	Print(sym binanalyzer.SymbolRecord) error
}

type plainPrinter struct {
	w io.Writer
}

// NewPlainPrinter writes "<address> <name>" lines.
func NewPlainPrinter(w io.Writer) Printer {
	return &plainPrinter{w: w}
}

func (p *plainPrinter) Print(sym binanalyzer.SymbolRecord) error {
	_, err := fmt.Fprintf(p.w, "%s %s\n", sym.Raw(), sym.Name)
	return err
}

type ColorMode string

const (
	// ColorAuto colors when stdout is a terminal and NO_COLOR is unset.
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	}
	return "", errors.Errorf("unknown color mode %q, use auto, always or never", s)
}

type colorPrinter struct {
	w    io.Writer
	addr *color.Color
	name *color.Color
}

// NewColorPrinter writes the same lines as NewPlainPrinter with the address
// and the name highlighted.
func NewColorPrinter(w io.Writer, mode ColorMode) Printer {
	if mode == ColorNever {
		return NewPlainPrinter(w)
	}
	p := &colorPrinter{
		w:    w,
		addr: color.New(color.FgYellow),
		name: color.New(color.FgGreen, color.Bold),
	}
	if mode == ColorAlways {
		p.addr.EnableColor()
		p.name.EnableColor()
	}
	return p
}

func (p *colorPrinter) Print(sym binanalyzer.SymbolRecord) error {
	_, err := fmt.Fprintf(p.w, "%s %s\n", p.addr.Sprint(sym.Raw()), p.name.Sprint(sym.Name))
	return err
}
