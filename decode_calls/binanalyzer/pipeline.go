package binanalyzer

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/execabs"
)

// Build lists the symbols of binaryPath with the dumper, pipes the listing
// through the demangler and returns the parsed table.
//
// Both tools run as child processes connected by a pipe. They are waited on
// before Build returns, whatever the outcome. A parse failure or a cancelled
// context kills them.
func Build(ctx context.Context, binaryPath string, opts ...BuildOption) (*SymbolTable, error) {
	o := newBuildOptions(opts)
	start := time.Now()

	dumper := Command{
		Path: o.dumper.Path,
		Args: append(append([]string{}, o.dumper.Args...), binaryPath),
	}
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, &ToolInvocationError{Tool: dumper.Path, Args: dumper.Args, Err: err}
	}

	tools := []Command{dumper}
	if o.mode == DemangleExternal {
		tools = append(tools, o.demangler)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	p, err := startPipeline(gctx, tools)
	if err != nil {
		return nil, err
	}
	defer p.out.Close()

	last := p.stages[len(p.stages)-1]
	for _, st := range p.stages[:len(p.stages)-1] {
		st := st
		g.Go(func() error {
			return st.wait(gctx)
		})
	}

	var table *SymbolTable
	g.Go(func() error {
		t, err := o.read(p.out)
		if err != nil {
			// nobody drains the pipe anymore
			cancel()
			_ = last.wait(gctx)
			return err
		}
		table = t
		return last.wait(gctx)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "listing symbols")
	}

	level.Debug(o.logger).Log(
		"msg", "symbol table built",
		"binary", binaryPath,
		"pipeline", p.String(),
		"symbols", table.Len(),
		"duration", time.Since(start),
	)
	return table, nil
}

type stage struct {
	tool   Command
	cmd    *exec.Cmd
	stderr bytes.Buffer
}

// wait reaps the process. A process killed because the context was cancelled
// reports nothing: the cancellation cause is returned by whoever cancelled.
func (s *stage) wait(ctx context.Context) error {
	err := s.cmd.Wait()
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return s.failure(err)
}

func (s *stage) failure(err error) *ToolInvocationError {
	return &ToolInvocationError{
		Tool:   s.tool.Path,
		Args:   s.tool.Args,
		Stderr: strings.TrimSpace(s.stderr.String()),
		Err:    err,
	}
}

type pipeline struct {
	stages []*stage
	// out is the read end of the last stage's stdout, owned by the caller.
	out *os.File
}

func (p *pipeline) String() string {
	cmds := make([]string, 0, len(p.stages))
	for _, st := range p.stages {
		cmds = append(cmds, st.tool.String())
	}
	return strings.Join(cmds, " | ")
}

// startPipeline starts tools in order, each reading the previous one's
// stdout. On failure every process already started is killed and reaped.
func startPipeline(ctx context.Context, tools []Command) (*pipeline, error) {
	p := &pipeline{}
	var parentEnds []*os.File
	closeParentEnds := func() {
		for _, f := range parentEnds {
			f.Close()
		}
	}

	for i, tool := range tools {
		st := &stage{tool: tool}
		st.cmd = execabs.CommandContext(ctx, tool.Path, tool.Args...)
		st.cmd.Stderr = &st.stderr
		p.stages = append(p.stages, st)

		if i > 0 {
			r, w, err := os.Pipe()
			if err != nil {
				closeParentEnds()
				p.abort()
				return nil, errors.Wrap(err, "creating pipe")
			}
			p.stages[i-1].cmd.Stdout = w
			st.cmd.Stdin = r
			parentEnds = append(parentEnds, r, w)
		}
	}

	r, w, err := os.Pipe()
	if err != nil {
		closeParentEnds()
		return nil, errors.Wrap(err, "creating pipe")
	}
	p.stages[len(p.stages)-1].cmd.Stdout = w
	p.out = r
	parentEnds = append(parentEnds, w)

	for _, st := range p.stages {
		if err := st.cmd.Start(); err != nil {
			closeParentEnds()
			p.out.Close()
			p.abort()
			return nil, st.failure(err)
		}
	}
	// The children hold their own copies. Closing ours lets EOF and EPIPE
	// propagate when a stage exits.
	closeParentEnds()
	return p, nil
}

func (p *pipeline) abort() {
	for _, st := range p.stages {
		if st.cmd.Process == nil {
			continue
		}
		_ = st.cmd.Process.Kill()
		_ = st.cmd.Wait()
	}
}
