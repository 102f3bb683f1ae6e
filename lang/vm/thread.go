// Package vm implements the interpreter: a stack machine that executes a
// linked program against a pluggable sink.Sink (spec.md §4.4).
package vm

import (
	"context"
	"fmt"

	"github.com/mna/tangle/lang/compiler"
	"github.com/mna/tangle/lang/linker"
	"github.com/mna/tangle/lang/sink"
)

// Thread executes one call (or file entry point) of a linker.Program
// against a sink.Sink. A Thread is not safe for concurrent use, but
// distinct Threads sharing the same read-only Program may run concurrently
// (spec.md §5's "Tokenizer/Compiler/Linker are stateless/single-use;
// Interpreter threads are the only long-lived, resumable state").
type Thread struct {
	prog *linker.Program
	sink sink.Hooks
	ctx  context.Context

	module uint16
	ip     uint32
	stack  []frame
	active map[linker.Addr]bool

	indent      uint16
	lastNewline bool
	capture     *captureBuffer
}

// New returns a Thread ready to execute calls against prog, sending output
// to s.
func New(ctx context.Context, prog *linker.Program, s sink.Sink) *Thread {
	return &Thread{
		prog:        prog,
		sink:        sink.Probe(s),
		ctx:         ctx,
		active:      make(map[linker.Addr]bool),
		lastNewline: true,
	}
}

// Call executes the named tag's procedure from its entry address to
// termination.
func (t *Thread) Call(tag string) error {
	addr, ok := t.prog.Procedures.Get(tag)
	if !ok {
		return fmt.Errorf("tangle: undefined tag %q", tag)
	}
	return t.run(addr)
}

// CallFile executes the procedure registered for the given `file="..."`
// path from its entry address to termination.
func (t *Thread) CallFile(path string) error {
	addr, ok := t.prog.Files.Get(path)
	if !ok {
		return fmt.Errorf("tangle: undefined file %q", path)
	}
	return t.run(addr)
}

func (t *Thread) run(start linker.Addr) error {
	t.module, t.ip = start.Module, start.Offset
	t.stack = t.stack[:0]
	t.indent = 0
	t.lastNewline = true
	t.capture = nil

	t.active[start] = true
	defer delete(t.active, start)

	for {
		done, err := t.step()
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	return t.sink.OnTerminate()
}

// step executes a single instruction and reports whether the thread has
// terminated (the frame stack emptied out on a RET).
func (t *Thread) step() (done bool, err error) {
	mod := t.prog.Modules[t.module]
	if int(t.ip) >= len(mod.Program) {
		return false, fmt.Errorf("tangle: instruction pointer %d out of range in module %d", t.ip, t.module)
	}
	in := mod.Program[t.ip]

	switch in.Op() {
	case compiler.WRITE:
		start, length, nl := in.WriteData()
		text := mod.Text[start : start+uint32(length)]
		if err := t.emit(text, nl); err != nil {
			return false, err
		}
		t.ip++

	case compiler.CALL:
		return false, t.execCall(mod, in)

	case compiler.JMP:
		addr, module, gen := in.JmpData()
		if gen == 0 {
			// a JMP threaded by the compiler within one document carries
			// module 0 as "same module"; only linker-threaded JMPs (generation
			// >= 1) name an absolute module index.
			module = t.module
		}
		if err := t.rawWrite([]byte{'\n'}); err != nil {
			return false, err
		}
		t.lastNewline = true
		if err := t.sink.OnJmp(module, addr); err != nil {
			return false, err
		}
		t.module, t.ip = module, addr

	case compiler.RET:
		return t.execRet()

	case compiler.SHELL:
		// reached only if a SHELL instruction was not preceded by a CALL (the
		// compiler never emits this); nothing to filter, advance past it.
		t.ip++

	default:
		return false, fmt.Errorf("tangle: illegal opcode %d at module %d offset %d", in[0], t.module, t.ip)
	}
	return false, nil
}

func (t *Thread) execCall(mod *compiler.Object, in compiler.Instruction) error {
	addr, module, indent := in.CallData()
	target := linker.Addr{Module: module, Offset: addr}

	if t.active[target] {
		tag, _ := t.prog.EntryNames.Get(target)
		return fmt.Errorf("tangle: cyclic tag reference detected calling %q", tag)
	}

	tag, _ := t.prog.EntryNames.Get(target)
	if err := t.sink.OnCall(tag, module, addr); err != nil {
		return err
	}

	nextIsShell := int(t.ip)+1 < len(mod.Program) && mod.Program[t.ip+1].Op() == compiler.SHELL
	var shellCapture *captureBuffer
	myCapture := t.capture
	if nextIsShell {
		shellCapture = newCaptureBuffer()
		myCapture = shellCapture
	}

	t.active[target] = true
	t.stack = append(t.stack, frame{
		retModule:    t.module,
		retOffset:    t.ip + 1,
		retIndent:    t.indent,
		target:       target,
		prevCapture:  t.capture,
		shellCapture: shellCapture,
	})

	t.capture = myCapture
	t.module, t.ip = target.Module, target.Offset
	t.indent += indent
	return nil
}

func (t *Thread) execRet() (done bool, err error) {
	if len(t.stack) == 0 {
		return true, nil
	}
	fr := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	delete(t.active, fr.target)
	t.indent = fr.retIndent
	t.capture = fr.prevCapture

	if tag, ok := t.prog.EntryNames.Get(fr.target); ok {
		if err := t.sink.OnRet(tag); err != nil {
			return false, err
		}
	}

	if fr.shellCapture == nil {
		t.module, t.ip = fr.retModule, fr.retOffset
		return false, nil
	}

	shellIn := t.prog.Modules[fr.retModule].Program[fr.retOffset]
	cmdOff, _, cmdLen := shellIn.ShellData()
	cmd := string(t.prog.Modules[fr.retModule].Text[cmdOff : cmdOff+uint32(cmdLen)])
	if err := t.sink.OnShell(cmd); err != nil {
		return false, err
	}
	out, runErr := fr.shellCapture.run(t.ctx, cmd)
	if runErr != nil {
		return false, runErr
	}
	if err := t.emit(out, 0); err != nil {
		return false, err
	}
	t.module, t.ip = fr.retModule, fr.retOffset+1 // also skip the SHELL instruction
	return false, nil
}
