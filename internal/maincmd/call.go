package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/mna/tangle/lang/linker"
	"github.com/mna/tangle/lang/sink"
	"github.com/mna/tangle/lang/vm"
)

// Call implements the `call` command: for each --tag=NAME / --file=PATH,
// execute it into stdout (spec.md §6). With --trace, it instead prints
// the Find sink's cross-reference hits for a single named target.
func (c *Cmd) Call(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := c.compileAndLink(stdio, args)
	if err != nil {
		return printError(stdio, err)
	}

	tags := splitList(c.Tag)
	files := splitList(c.File)

	if c.Trace {
		return printError(stdio, traceCall(ctx, stdio, prog, tags, files))
	}

	th := vm.New(ctx, prog, sink.NewStream(stdio.Stdout))
	for _, tag := range tags {
		if err := th.Call(tag); err != nil {
			return printError(stdio, err)
		}
	}
	for _, file := range files {
		if err := th.CallFile(file); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func traceCall(ctx context.Context, stdio mainer.Stdio, prog *linker.Program, tags, files []string) error {
	if len(tags)+len(files) != 1 {
		return fmt.Errorf("call --trace: exactly one of --tag or --file naming one target is required")
	}

	var target string
	if len(tags) == 1 {
		target = tags[0]
	} else {
		target = files[0]
	}

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
