package binanalyzer

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// SymbolRecord is one line of the demangled symbol listing.
type SymbolRecord struct {
	Address uint64
	// Fields holds the line split on single spaces. Fields[0] is the address
	// as printed by the dumper.
	Fields []string
	// Name is the field selected as display name by the Layout.
	Name string
}

// Raw returns the address exactly as the dumper printed it.
func (r SymbolRecord) Raw() string {
	if len(r.Fields) == 0 {
		return ""
	}
	return r.Fields[0]
}

// Layout describes how a listing line is split into fields. NameField counts
// from the end when negative, -1 being the last field.
type Layout struct {
	MaxFields int
	NameField int
}

// DefaultLayout matches `nm -S` output: address, size, type, name.
var DefaultLayout = Layout{MaxFields: 4, NameField: -1}

func (l Layout) name(fields []string) string {
	i := l.NameField
	if i < 0 {
		i += len(fields)
	}
	// short lines (no size column) fall back to the nearest field
	if i < 0 {
		i = 0
	}
	if i >= len(fields) {
		i = len(fields) - 1
	}
	return fields[i]
}

// SymbolTable maps addresses to symbols. It is never modified after it has
// been built.
type SymbolTable struct {
	symbols map[uint64]SymbolRecord
}

// NewSymbolTable builds a table from records. A later record replaces an
// earlier one with the same address.
func NewSymbolTable(records ...SymbolRecord) *SymbolTable {
	t := &SymbolTable{symbols: make(map[uint64]SymbolRecord, len(records))}
	for _, sym := range records {
		t.symbols[sym.Address] = sym
	}
	return t
}

func (t *SymbolTable) Lookup(addr uint64) (SymbolRecord, bool) {
	if t == nil {
		return SymbolRecord{}, false
	}
	sym, ok := t.symbols[addr]
	return sym, ok
}

func (t *SymbolTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.symbols)
}

// ReadTable parses an already produced symbol listing. Only the options that
// affect parsing apply: layout, malformed line handling, builtin demangling
// and logging.
func ReadTable(r io.Reader, opts ...BuildOption) (*SymbolTable, error) {
	return newBuildOptions(opts).read(r)
}

func (o *buildOptions) read(r io.Reader) (*SymbolTable, error) {
	table := NewSymbolTable()
	filter := o.demangleFunc()

	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			sym, ok, perr := o.parseLine(n, line, filter)
			switch {
			case perr != nil && o.skipMalformed:
				level.Warn(o.logger).Log("msg", "skipping malformed symbol line", "err", perr)
			case perr != nil:
				return nil, perr
			case ok:
				table.symbols[sym.Address] = sym
			}
		}
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading symbol listing")
		}
	}
}

func (o *buildOptions) parseLine(n int, line string, filter func(string) string) (SymbolRecord, bool, error) {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	if filter != nil {
		line = filter(line)
	}

	// Lines starting with a space (undefined symbols) or blank lines have an
	// empty first field and carry no address.
	fields := strings.SplitN(line, " ", o.layout.MaxFields)
	if fields[0] == "" {
		return SymbolRecord{}, false, nil
	}

	addr, err := strconv.ParseUint(fields[0], 16, 64)
	if err != nil {
		return SymbolRecord{}, false, &MalformedSymbolLineError{Line: n, Text: line, Err: err}
	}
	return SymbolRecord{
		Address: addr,
		Fields:  fields,
		Name:    o.layout.name(fields),
	}, true, nil
}
