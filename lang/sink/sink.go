// Package sink defines the pluggable output visitor a lang/vm.Thread drives
// while it executes a linked program, plus the canonical Stream, Graph and
// Find sinks (spec.md §4.5).
package sink

// Sink is the minimal contract a lang/vm.Thread requires: a place to send
// the literal output bytes of a tangled procedure, already indentation-
// adjusted by the interpreter.
//
// A concrete Sink may additionally implement any of CallObserver,
// RetObserver, JmpObserver, ShellObserver or Terminator to be notified of
// the corresponding VM event; the interpreter probes for these with a type
// assertion rather than requiring every Sink to implement every hook
// (mirrored on the teacher's optional-interface probe for callable
// position information).
type Sink interface {
	Write(p []byte) error
}

// CallObserver is notified every time the interpreter executes a CALL,
// before it transfers control to the callee.
type CallObserver interface {
	Call(tag string, module uint16, offset uint32) error
}

// RetObserver is notified every time the interpreter executes a RET that
// pops a non-empty frame stack (i.e. a real return, not final
// termination).
type RetObserver interface {
	Ret(tag string) error
}

// JmpObserver is notified every time the interpreter follows a threaded
// JMP from one block to the next block in the same tag's chain.
type JmpObserver interface {
	Jmp(module uint16, offset uint32) error
}

// ShellObserver is notified every time the interpreter executes a SHELL
// instruction, before running the filter command.
type ShellObserver interface {
	Shell(command string) error
}

// Terminator is notified once, when the interpreter's frame stack empties
// out and execution of the current Call/CallFile ends.
type Terminator interface {
	Terminate() error
}

// probe inspects a Sink for its optional hooks once, so lang/vm does not
// repeat the type assertions on every instruction.
type probe struct {
	Sink
	call      CallObserver
	ret       RetObserver
	jmp       JmpObserver
	shell     ShellObserver
	terminate Terminator
}

// Probe wraps s, resolving its optional hook interfaces once up front, and
// returns a Hooks value lang/vm can call unconditionally.
func Probe(s Sink) Hooks {
	p := &probe{Sink: s}
	p.call, _ = s.(CallObserver)
	p.ret, _ = s.(RetObserver)
	p.jmp, _ = s.(JmpObserver)
	p.shell, _ = s.(ShellObserver)
	p.terminate, _ = s.(Terminator)
	return p
}

func (p *probe) OnCall(tag string, module uint16, offset uint32) error {
	if p.call == nil {
		return nil
	}
	return p.call.Call(tag, module, offset)
}

func (p *probe) OnRet(tag string) error {
	if p.ret == nil {
		return nil
	}
	return p.ret.Ret(tag)
}

func (p *probe) OnJmp(module uint16, offset uint32) error {
	if p.jmp == nil {
		return nil
	}
	return p.jmp.Jmp(module, offset)
}

func (p *probe) OnShell(command string) error {
	if p.shell == nil {
		return nil
	}
	return p.shell.Shell(command)
}

func (p *probe) OnTerminate() error {
	if p.terminate == nil {
		return nil
	}
	return p.terminate.Terminate()
}

// Hooks is the hook-dispatch surface lang/vm drives; Probe is the only way
// to obtain one, so every hook is safe to call unconditionally even if the
// wrapped Sink implements none of the optional interfaces.
type Hooks interface {
	Sink
	OnCall(tag string, module uint16, offset uint32) error
	OnRet(tag string) error
	OnJmp(module uint16, offset uint32) error
	OnShell(command string) error
	OnTerminate() error
}

var _ Hooks = (*probe)(nil)
