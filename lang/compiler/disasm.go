package compiler

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable listing of an Object's bytecode to w,
// one instruction per line, for the `ls --bytecode` debug command. It is
// one-way: there is no assembler, since bytecode is always produced by
// compiling a document, never hand-authored.
func Disassemble(w io.Writer, o *Object) error {
	for off, in := range o.Program {
		line, err := disasmOne(o, uint32(off), in)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func disasmOne(o *Object, off uint32, in Instruction) (string, error) {
	switch in.Op() {
	case WRITE:
		start, length, nl := in.WriteData()
		return fmt.Sprintf("%06d  write  %q nl=%d", off, snippet(o.Text, start, length), nl), nil
	case CALL:
		addr, module, indent := in.CallData()
		return fmt.Sprintf("%06d  call   ->%d module=%d indent=%d", off, addr, module, indent), nil
	case JMP:
		addr, module, gen := in.JmpData()
		return fmt.Sprintf("%06d  jmp    ->%d module=%d gen=%d", off, addr, module, gen), nil
	case RET:
		nameStart, nameLen := in.RetData()
		return fmt.Sprintf("%06d  ret    %q", off, snippet(o.Text, nameStart, nameLen)), nil
	case SHELL:
		cmd, module, length := in.ShellData()
		return fmt.Sprintf("%06d  shell  %q module=%d", off, snippet(o.Text, cmd, uint16(length)), module), nil
	default:
		return "", fmt.Errorf("disassemble: illegal opcode %d at offset %d", in[0], off)
	}
}

func snippet(text []byte, start uint32, length uint16) string {
	end := int(start) + int(length)
	if int(start) > len(text) || end > len(text) {
		return "<out of range>"
	}
	return string(text[start:end])
}
