package maincmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/mna/mainer"

	"github.com/mna/tangle/lang/compiler"
	"github.com/mna/tangle/lang/linker"
	"github.com/mna/tangle/lang/sink"
	"github.com/mna/tangle/lang/vm"
)

// Ls implements the `ls` command: print filenames and/or tag names from
// the linked maps (spec.md §6), or one of the ambient debug renderings
// (--bytecode, --graph, --find) in its place.
func (c *Cmd) Ls(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := c.compileAndLink(stdio, args)
	if err != nil {
		return printError(stdio, err)
	}

	switch {
	case c.Bytecode:
		return printError(stdio, lsBytecode(stdio, prog))
	case c.Graph:
		return printError(stdio, lsGraph(ctx, stdio, prog))
	case c.Find != "":
		return printError(stdio, lsFind(ctx, stdio, prog, c.Find))
	default:
		return lsNames(stdio, prog)
	}
}

func lsNames(stdio mainer.Stdio, prog *linker.Program) error {
	for _, name := range fileNames(prog) {
		fmt.Fprintf(stdio.Stdout, "file\t%s\n", name)
	}
	for _, tag := range tagNames(prog) {
		fmt.Fprintf(stdio.Stdout, "tag\t%s\n", tag)
	}
	return nil
}

func tagNames(prog *linker.Program) []string {
	var tags []string
	prog.Procedures.Iter(func(tag string, _ linker.Addr) bool {
		tags = append(tags, tag)
		return false
	})
	sort.Strings(tags)
	return tags
}

func lsBytecode(stdio mainer.Stdio, prog *linker.Program) error {
	for mi, mod := range prog.Modules {
		fmt.Fprintf(stdio.Stdout, "; module %d\n", mi)
		if err := compiler.Disassemble(stdio.Stdout, mod); err != nil {
			return err
		}
	}
	return nil
}

func lsGraph(ctx context.Context, stdio mainer.Stdio, prog *linker.Program) error {
	// each run is rooted at the tag it executes, so the edges from that tag
	// to its direct callees are recorded.
	all := &sink.Graph{}
	for _, tag := range tagNames(prog) {
		g := sink.NewGraph(tag)
		if err := vm.New(ctx, prog, g).Call(tag); err != nil {
			return err
		}
		all.Edges = append(all.Edges, g.Edges...)
	}
	fmt.Fprint(stdio.Stdout, all.DOT())
	return nil
}

func lsFind(ctx context.Context, stdio mainer.Stdio, prog *linker.Program, target string) error {
	var hits []sink.Hit
	for _, tag := range tagNames(prog) {
		f := sink.NewFind(tag, target)
		if err := vm.New(ctx, prog, f).Call(tag); err != nil {
			return err
		}
		hits = append(hits, f.Hits...)
	}
	for _, hit := range hits {
		fmt.Fprintf(stdio.Stdout, "%s (module %d, offset %d)\n", hit.Caller, hit.Module, hit.Offset)
	}
	return nil
}
