package stackanalyzer

import (
	"bufio"
	"context"
	"io"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/regexp"
	"github.com/pkg/errors"

	"github.com/chains-project/calltrace/decode_calls/binanalyzer"
)

var addressPattern = regexp.MustCompile(`0x([0-9a-f]+)`)

// FindAddresses returns every 0x-prefixed hex literal in line, left to right,
// repeats included.
func FindAddresses(line string) []uint64 {
	matches := addressPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil
	}
	addrs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		addr, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			// wider than 64 bits, cannot be in any table
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// Stats counts what a Resolver has seen.
type Stats struct {
	Lines      int
	Tokens     int
	Resolved   int
	Unresolved int
}

func (s Stats) Add(o Stats) Stats {
	return Stats{
		Lines:      s.Lines + o.Lines,
		Tokens:     s.Tokens + o.Tokens,
		Resolved:   s.Resolved + o.Resolved,
		Unresolved: s.Unresolved + o.Unresolved,
	}
}

// Resolver prints the symbol of every address found in trace lines.
type Resolver struct {
	table   *binanalyzer.SymbolTable
	printer Printer
	logger  log.Logger
}

func NewResolver(table *binanalyzer.SymbolTable, printer Printer, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Resolver{
		table:   table,
		printer: printer,
		logger:  logger,
	}
}

// ResolveSymbols looks up each address and returns the hits in order.
// Addresses missing from the table are skipped.
func (r *Resolver) ResolveSymbols(addrs []uint64) []binanalyzer.SymbolRecord {
	var resolved []binanalyzer.SymbolRecord
	for _, addr := range addrs {
		if sym, ok := r.table.Lookup(addr); ok {
			resolved = append(resolved, sym)
		}
	}
	return resolved
}

func (r *Resolver) ResolveLine(line string) []binanalyzer.SymbolRecord {
	return r.ResolveSymbols(FindAddresses(line))
}

// Run reads in line by line until EOF and prints the symbols found on each
// line as it goes.
func (r *Resolver) Run(ctx context.Context, in io.Reader) (Stats, error) {
	var stats Stats
	br := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line, err := br.ReadString('\n')
		if len(line) > 0 {
			addrs := FindAddresses(line)
			resolved := r.ResolveSymbols(addrs)

			stats.Lines++
			stats.Tokens += len(addrs)
			stats.Resolved += len(resolved)
			stats.Unresolved += len(addrs) - len(resolved)

			for _, sym := range resolved {
				if perr := r.printer.Print(sym); perr != nil {
					return stats, errors.Wrap(perr, "writing symbol")
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, errors.Wrap(err, "reading trace")
		}
	}

	level.Debug(r.logger).Log(
		"msg", "trace decoded",
		"lines", stats.Lines,
		"tokens", stats.Tokens,
		"resolved", stats.Resolved,
		"unresolved", stats.Unresolved,
	)
	return stats, nil
}
