package maincmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/mna/mainer"
	"github.com/viant/afs"

	"github.com/mna/tangle/lang/linker"
	"github.com/mna/tangle/lang/sink"
	"github.com/mna/tangle/lang/vm"
)

// Tangle implements the `tangle` command: for every filename in the
// linked `files` map, execute callFile into a FileStream sink and upload
// the result through afs (spec.md §6).
func (c *Cmd) Tangle(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := c.compileAndLink(stdio, args)
	if err != nil {
		return printError(stdio, err)
	}

	fs := afs.New()
	for _, name := range fileNames(prog) {
		if err := c.checkOutputPath(name); err != nil {
			return printError(stdio, err)
		}
		if err := tangleOneFile(ctx, fs, prog, name, c.OmitTrailingNewline); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func fileNames(prog *linker.Program) []string {
	var names []string
	prog.Files.Iter(func(name string, _ linker.Addr) bool {
		names = append(names, name)
		return false
	})
	sort.Strings(names)
	return names
}

func tangleOneFile(ctx context.Context, fs afs.Service, prog *linker.Program, name string, omitTrailingNewline bool) error {
	fstream := sink.NewFileStream(ctx, fs, name)
	th := vm.New(ctx, prog, fstream)
	if err := th.CallFile(name); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !omitTrailingNewline {
		if err := fstream.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := fstream.Close(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
