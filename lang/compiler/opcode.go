package compiler

import "fmt"

// Version numbers the bytecode format. Nothing in this module saves
// bytecode to disk or reads this constant.
const Version = 0

// Opcode identifies the operation encoded in an Instruction (spec.md §3).
type Opcode uint8

//nolint:revive
const (
	// WRITE emits text[Start:Start+Len] then Newlines newline bytes.
	WRITE Opcode = iota
	// CALL invokes a procedure, pushing a return frame.
	CALL
	// JMP performs a non-returning transfer, used to thread adjacent blocks
	// sharing a tag.
	JMP
	// RET pops the current frame; if the frame stack is empty, execution
	// terminates.
	RET
	// SHELL pipes a tag's expansion through a named filter command.
	SHELL

	maxOpcode
)

var opcodeNames = [...]string{
	WRITE: "write",
	CALL:  "call",
	JMP:   "jmp",
	RET:   "ret",
	SHELL: "shell",
}

func (op Opcode) String() string {
	if op < maxOpcode {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

// InstructionSize is the fixed size in bytes of every Instruction: one
// opcode byte plus eight data bytes (spec.md §3).
const InstructionSize = 9

// Instruction is a fixed-size 9-byte record: one opcode byte followed by
// eight data bytes, interpreted according to the opcode. All multi-byte
// fields are little-endian.
//
//	WRITE  (start u32, len u16, nl u16)
//	CALL   (address u32, module u16, indent u16)
//	JMP    (address u32, module u16, generation u16)
//	RET    (nameStart u32, nameLen u16, _ u16)
//	SHELL  (command u32, module u16, len u8, _ u8)
type Instruction [InstructionSize]byte

func (in Instruction) Op() Opcode { return Opcode(in[0]) }

func u32(b []byte) uint32 { return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24 }
func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func u16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// MakeWrite builds a WRITE instruction.
func MakeWrite(start uint32, length, nl uint16) Instruction {
	var in Instruction
	in[0] = byte(WRITE)
	putU32(in[1:5], start)
	putU16(in[5:7], length)
	putU16(in[7:9], nl)
	return in
}

// WriteData decodes a WRITE instruction's operands.
func (in Instruction) WriteData() (start uint32, length, nl uint16) {
	return u32(in[1:5]), u16(in[5:7]), u16(in[7:9])
}

// MakeCall builds a CALL instruction. The compiler emits address and module
// as 0; the linker patches them with the target's offset and absolute module
// index, which is what the interpreter follows.
func MakeCall(address uint32, module, indent uint16) Instruction {
	var in Instruction
	in[0] = byte(CALL)
	putU32(in[1:5], address)
	putU16(in[5:7], module)
	putU16(in[7:9], indent)
	return in
}

// CallData decodes a CALL instruction's operands.
func (in Instruction) CallData() (address uint32, module, indent uint16) {
	return u32(in[1:5]), u16(in[5:7]), u16(in[7:9])
}

// SetCallTarget patches a CALL instruction's address and module in place
// (used by the linker's call-resolution phase).
func (in *Instruction) SetCallTarget(address uint32, module uint16) {
	putU32(in[1:5], address)
	putU16(in[5:7], module)
}

// MakeJmp builds a JMP instruction.
func MakeJmp(address uint32, module, generation uint16) Instruction {
	var in Instruction
	in[0] = byte(JMP)
	putU32(in[1:5], address)
	putU16(in[5:7], module)
	putU16(in[7:9], generation)
	return in
}

// JmpData decodes a JMP instruction's operands.
func (in Instruction) JmpData() (address uint32, module, generation uint16) {
	return u32(in[1:5]), u16(in[5:7]), u16(in[7:9])
}

// MakeRet builds a RET instruction.
func MakeRet(nameStart uint32, nameLen uint16) Instruction {
	var in Instruction
	in[0] = byte(RET)
	putU32(in[1:5], nameStart)
	putU16(in[5:7], nameLen)
	return in
}

// RetData decodes a RET instruction's operands.
func (in Instruction) RetData() (nameStart uint32, nameLen uint16) {
	return u32(in[1:5]), u16(in[5:7])
}

// MakeShell builds a SHELL instruction. Unlike CALL, a SHELL's command text
// always lives in the instruction's own containing module (a shell filter
// is never threaded across documents), so module is currently always 0 and
// the interpreter reads the command from whichever module it is executing
// in, exactly as it does for WRITE.
func MakeShell(command uint32, module uint16, length uint8) Instruction {
	var in Instruction
	in[0] = byte(SHELL)
	putU32(in[1:5], command)
	putU16(in[5:7], module)
	in[7] = length
	return in
}

// ShellData decodes a SHELL instruction's operands.
func (in Instruction) ShellData() (command uint32, module uint16, length uint8) {
	return u32(in[1:5]), u16(in[5:7]), in[7]
}
