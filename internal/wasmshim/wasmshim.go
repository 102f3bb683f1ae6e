// Package wasmshim hosts a linked tangling program inside a wazero WASM
// guest: a guest module can import "tangle_call"/"tangle_file" to drive
// the interpreter and "tangle_read" to copy its tangled output into its
// own linear memory (spec.md §1's optional WASM shim, scoped here to its interface
// to the core only).
package wasmshim

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/mna/tangle/lang/linker"
	"github.com/mna/tangle/lang/sink"
	"github.com/mna/tangle/lang/vm"
)

// Host wraps a wazero runtime preconfigured with the "tangle" host module
// exporting tangle_call, tangle_file and tangle_read.
type Host struct {
	runtime wazero.Runtime
	prog    *linker.Program

	// lastOutput holds the result of the most recent tangle_call/tangle_file
	// invocation; a guest reads it back with tangle_read after checking the
	// byte count the call returned.
	lastOutput []byte
}

// NewHost instantiates a wazero runtime and registers the "tangle" host
// module against prog. The caller links prog once and may reuse a single
// Host across many guest instantiations.
func NewHost(ctx context.Context, prog *linker.Program) (*Host, error) {
	h := &Host{runtime: wazero.NewRuntime(ctx), prog: prog}

	_, err := h.runtime.NewHostModuleBuilder("tangle").
		NewFunctionBuilder().WithFunc(h.tangleCall).Export("tangle_call").
		NewFunctionBuilder().WithFunc(h.tangleFile).Export("tangle_file").
		NewFunctionBuilder().WithFunc(h.tangleRead).Export("tangle_read").
		Instantiate(ctx)
	if err != nil {
		h.runtime.Close(ctx)
		return nil, fmt.Errorf("tangle: wasm host setup: %w", err)
	}
	return h, nil
}

// Close releases every resource the underlying wazero runtime created.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

// Runtime exposes the underlying wazero runtime so a caller can instantiate
// its own guest module against it.
func (h *Host) Runtime() wazero.Runtime { return h.runtime }

// tangleCall is exported to guests as tangle_call(tagPtr, tagLen uint32)
// (resultLen uint32). It executes the named tag's procedure and buffers
// its output for a subsequent tangle_read.
func (h *Host) tangleCall(ctx context.Context, m api.Module, tagPtr, tagLen uint32) uint32 {
	tag, ok := m.Memory().Read(tagPtr, tagLen)
	if !ok {
		return 0
	}
	var buf bytes.Buffer
	th := vm.New(ctx, h.prog, sink.NewStream(&buf))
	if err := th.Call(string(tag)); err != nil {
		h.lastOutput = []byte(err.Error())
		return 0
	}
	h.lastOutput = buf.Bytes()
	return uint32(len(h.lastOutput))
}

// tangleFile is exported to guests as tangle_file(pathPtr, pathLen uint32)
// (resultLen uint32), the file-entry-point equivalent of tangle_call.
func (h *Host) tangleFile(ctx context.Context, m api.Module, pathPtr, pathLen uint32) uint32 {
	path, ok := m.Memory().Read(pathPtr, pathLen)
	if !ok {
		return 0
	}
	var buf bytes.Buffer
	th := vm.New(ctx, h.prog, sink.NewStream(&buf))
	if err := th.CallFile(string(path)); err != nil {
		h.lastOutput = []byte(err.Error())
		return 0
	}
	h.lastOutput = buf.Bytes()
	return uint32(len(h.lastOutput))
}

// tangleRead is exported to guests as tangle_read(destPtr uint32), copying
// the most recent tangle_call/tangle_file result into the guest's own
// linear memory at destPtr. The guest must allocate at least the byte
// count the preceding call returned before invoking this.
func (h *Host) tangleRead(_ context.Context, m api.Module, destPtr uint32) uint32 {
	if !m.Memory().Write(destPtr, h.lastOutput) {
		return 0
	}
	return uint32(len(h.lastOutput))
}
