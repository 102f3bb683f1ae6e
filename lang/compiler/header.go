package compiler

import "fmt"

// EscPair is a matched pair of placeholder delimiters, e.g. "<<"/">>"
// (spec.md §3 Header.esc).
type EscPair struct {
	Open, Close string
}

// KnownEscPairs lists the placeholder delimiter pairs spec.md §6
// recognizes, the default chevron pair included. parseEsc does not
// restrict `esc` to this list: any even-length value is split in half.
var KnownEscPairs = []EscPair{
	{"<<", ">>"},
	{"{{", "}}"},
	{"((", "))"},
	{"[[", "]]"},
}

// DefaultEsc is the delimiter pair used when a block header omits `esc`.
var DefaultEsc = EscPair{"<<", ">>"}

// BlockKind distinguishes the mutually-exclusive purposes a recognized
// block header may declare (spec.md §3: exactly one of file/tag/doctest,
// or the `example` sentinel).
type BlockKind uint8

const (
	KindTag BlockKind = iota
	KindFile
	KindDoctest
	KindExample
)

// Header is a parsed fenced-code-block header (spec.md §3).
type Header struct {
	Lang string

	// Esc is nil only when the block declared `esc="none"`; otherwise it
	// holds DefaultEsc or the declared pair. Example and Doctest blocks keep
	// their Esc but compile to no bytecode, so it is never used for them.
	Esc *EscPair

	Kind    BlockKind
	File    string // set when Kind == KindFile
	Tag     string // set when Kind == KindTag
	Doctest string // the shell command, set when Kind == KindDoctest

	Scope Scope

	FenceLen int // length of the opening fence run, body ends at a matching-length fence
}

// scansPlaceholders reports whether a block with this header inlines
// placeholders in its body (spec.md §3 "A block body whose containing
// block had esc = none contains no placeholders").
func (h *Header) scansPlaceholders() bool {
	return h.Esc != nil && h.Kind != KindExample
}

func (h *Header) String() string {
	var which string
	switch h.Kind {
	case KindFile:
		which = fmt.Sprintf("file=%q", h.File)
	case KindTag:
		which = fmt.Sprintf("#%s scope=%s", h.Tag, h.Scope)
	case KindDoctest:
		which = fmt.Sprintf("doctest=%q", h.Doctest)
	case KindExample:
		which = "example"
	}
	esc := "none"
	if h.Esc != nil {
		esc = h.Esc.Open + h.Esc.Close
	}
	return fmt.Sprintf("{.%s esc=%s %s}", h.Lang, esc, which)
}
