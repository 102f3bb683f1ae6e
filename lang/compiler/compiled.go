package compiler

import "github.com/dolthub/swiss"

// Adjacency records the first and last instruction offset of the chain of
// blocks sharing one tag within a single document (spec.md §3).
type Adjacency struct {
	Entry uint32 // offset of the chain's first instruction
	Exit  uint32 // offset of the chain's terminal RET (or, once linked, JMP)
}

// Scope is a tag's declared visibility (spec.md §3 Header.scope).
type Scope uint8

const (
	Local Scope = iota
	Global
)

func (s Scope) String() string {
	if s == Global {
		return "global"
	}
	return "local"
}

// Object is the per-document compiled program: bytecode plus the
// symbol/adjacency/file tables the Linker needs to merge documents
// together (spec.md §3).
type Object struct {
	// Text is the document's raw bytes. Every WRITE instruction's (start,
	// len) indexes into this slice; Object borrows it rather than copying,
	// so the caller must keep it alive for as long as the Object (and any
	// Linker holding it) is in use.
	Text []byte

	// Program is the compiled bytecode.
	Program []Instruction

	// Symbols maps a referenced tag name to the bytecode offsets of every
	// CALL instruction invoking it, for the linker's call-resolution phase.
	Symbols *swiss.Map[string, []uint32]

	// Adjacent maps a defined tag name to the entry/exit offsets of the
	// chain of same-tag blocks compiled from this document, in source
	// order.
	Adjacent *swiss.Map[string, Adjacency]

	// Files maps an output file name (from a `file="..."` block attribute)
	// to the entry offset of its defining block.
	Files *swiss.Map[string, uint32]

	// Scopes records the declared scope (local vs global) of every tag
	// defined in this document, so the compiler and linker can reject a
	// scope mismatch across a chain (spec.md §4.2).
	Scopes *swiss.Map[string, Scope]
}

// NewObject returns an empty Object ready to receive compiled output for
// the given source text.
func NewObject(text []byte) *Object {
	return &Object{
		Text:     text,
		Symbols:  swiss.NewMap[string, []uint32](8),
		Adjacent: swiss.NewMap[string, Adjacency](8),
		Files:    swiss.NewMap[string, uint32](4),
		Scopes:   swiss.NewMap[string, Scope](8),
	}
}

// Offset returns the bytecode offset (as an instruction index) one past the
// last instruction of Program, i.e. the offset the next Emit call will use.
func (o *Object) Offset() uint32 { return uint32(len(o.Program)) }

// Emit appends an instruction and returns its offset.
func (o *Object) Emit(in Instruction) uint32 {
	off := o.Offset()
	o.Program = append(o.Program, in)
	return off
}
