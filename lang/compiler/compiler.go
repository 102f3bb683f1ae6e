// Package compiler turns a tokenized document into a per-document bytecode
// Object: it recognizes fenced code blocks, parses their pandoc-style
// metadata headers, and emits write/call/jmp/ret/shell instructions for
// each block's body (spec.md §3, §4.2).
package compiler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mna/tangle/lang/scanner"
	"github.com/mna/tangle/lang/token"
)

// Options controls optional compiler behaviour (spec.md §9).
type Options struct {
	// ShellEnabled allows `|filter` placeholders to compile to SHELL
	// instructions. When false (the default), a `|filter` placeholder is a
	// compile error.
	ShellEnabled bool
}

// Error is a compiler diagnostic with a source position (spec.md §7).
type Error struct {
	Filename string
	Pos      token.Pos
	Msg      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", token.FormatPos(e.Filename, e.Pos), e.Msg)
}

// Compile tokenizes and compiles a single document into an Object.
func Compile(filename string, src []byte, opts Options) (*Object, error) {
	c := &compiler{filename: filename, src: src, opts: opts, obj: NewObject(src)}
	c.s.Init(src)
	c.atLineStart = true
	if err := c.run(); err != nil {
		return nil, err
	}
	return c.obj, nil
}

type compiler struct {
	filename string
	src      []byte
	opts     Options
	obj      *Object

	s           scanner.Scanner
	atLineStart bool
}

func (c *compiler) errorf(pos token.Pos, format string, args ...any) error {
	return &Error{Filename: c.filename, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// run drives the token stream, recognizing fenced blocks at the start of a
// line and skipping everything else as prose (spec.md §4.2).
func (c *compiler) run() error {
	for {
		tv := c.s.Scan()
		switch tv.Tok {
		case token.EOF:
			return nil
		case token.NEWLINE:
			c.atLineStart = true
			continue
		case token.FENCE:
			if c.atLineStart && tv.RunLen >= 3 {
				consumed, err := c.tryBlock(tv)
				if err != nil {
					return err
				}
				if consumed {
					c.atLineStart = true
					continue
				}
			}
		}
		c.atLineStart = false
	}
}

// tryBlock attempts to compile a fenced block starting at the given opening
// FENCE token. It returns consumed=false (with no error) if the fence is
// not followed, after at most one run of spaces, by a `{` metadata block, in
// which case it is
// prose and the caller resumes normal scanning; the tokens already read are
// simply discarded, matching spec.md §4.2's "unrecognised block headers are
// treated as prose".
func (c *compiler) tryBlock(fence token.Value) (consumed bool, err error) {
	afterFence := c.s.Scan()
	if afterFence.Tok == token.SPACE {
		afterFence = c.s.Scan()
	}
	if afterFence.Tok != token.L_BRACE {
		return false, nil
	}

	hdr, err := c.parseHeader(afterFence.Pos)
	if err != nil {
		return false, err
	}
	hdr.FenceLen = fence.RunLen

	bodyStart := c.s.Offset()
	bodyEnd, err := c.findBodyEnd(fence.RunLen)
	if err != nil {
		return false, err
	}

	if err := c.compileBlock(hdr, bodyStart, bodyEnd); err != nil {
		return false, err
	}
	return true, nil
}

// parseHeader parses `. lang [attrs...] }` starting right after the opening
// `{` has already been consumed (spec.md §3 Header, §4.2).
func (c *compiler) parseHeader(pos token.Pos) (*Header, error) {
	hdr := &Header{Esc: &EscPair{DefaultEsc.Open, DefaultEsc.Close}, Scope: Local}

	tv := c.s.Scan()
	if tv.Tok != token.DOT {
		return nil, c.errorf(tv.Pos, "malformed block header: expected '.' before language name")
	}
	tv = c.s.Scan()
	if tv.Tok != token.IDENTIFIER {
		return nil, c.errorf(tv.Pos, "malformed block header: expected language name")
	}
	hdr.Lang = tv.Lexeme(c.src)

	haveKind := false
	for {
		tv = c.skipSpace()
		switch tv.Tok {
		case token.R_BRACE:
			if !haveKind {
				hdr.Kind = KindExample
			}
			c.consumeHeaderEnd()
			return hdr, nil

		case token.NEWLINE, token.EOF:
			return nil, c.errorf(tv.Pos, "malformed block header: missing closing '}'")

		case token.HASH:
			idt := c.s.Scan()
			if idt.Tok != token.IDENTIFIER {
				return nil, c.errorf(idt.Pos, "malformed block header: expected tag name after '#'")
			}
			if haveKind {
				return nil, c.errorf(idt.Pos, "malformed block header: at most one of file=, #tag or doctest is allowed")
			}
			hdr.Kind, hdr.Tag, haveKind = KindTag, idt.Lexeme(c.src), true

		case token.IDENTIFIER:
			name := tv.Lexeme(c.src)
			switch name {
			case "global":
				hdr.Scope = Global
			case "example":
				if haveKind {
					return nil, c.errorf(tv.Pos, "malformed block header: at most one of file=, #tag or doctest is allowed")
				}
				hdr.Kind, haveKind = KindExample, true
			case "doctest":
				val, err := c.expectEqualsOrSpaceString(tv.Pos)
				if err != nil {
					return nil, err
				}
				if haveKind {
					return nil, c.errorf(tv.Pos, "malformed block header: at most one of file=, #tag or doctest is allowed")
				}
				hdr.Kind, hdr.Doctest, haveKind = KindDoctest, val, true
			case "file":
				val, err := c.expectEquals(tv.Pos)
				if err != nil {
					return nil, err
				}
				if haveKind {
					return nil, c.errorf(tv.Pos, "malformed block header: at most one of file=, #tag or doctest is allowed")
				}
				hdr.Kind, hdr.File, haveKind = KindFile, val, true
			case "esc":
				val, err := c.expectEquals(tv.Pos)
				if err != nil {
					return nil, err
				}
				pair, err := parseEsc(val)
				if err != nil {
					return nil, c.errorf(tv.Pos, "%s", err)
				}
				hdr.Esc = pair
			default:
				// unknown key="value" attribute: consumed syntactically, ignored
				// semantically (spec.md §4.2).
				if _, err := c.expectEquals(tv.Pos); err != nil {
					return nil, err
				}
			}

		default:
			return nil, c.errorf(tv.Pos, "malformed block header: unexpected %s", tv.Tok)
		}
	}
}

func (c *compiler) skipSpace() token.Value {
	tv := c.s.Scan()
	for tv.Tok == token.SPACE {
		tv = c.s.Scan()
	}
	return tv
}

// expectEquals requires `= "value"` right after the current position and
// returns the unquoted value.
func (c *compiler) expectEquals(pos token.Pos) (string, error) {
	tv := c.skipSpace()
	if tv.Tok != token.EQUAL {
		return "", c.errorf(pos, "malformed block header: expected '=' after attribute name")
	}
	tv = c.skipSpace()
	if tv.Tok != token.STRING {
		return "", c.errorf(tv.Pos, "malformed block header: expected a quoted string value")
	}
	return unquote(tv.Lexeme(c.src)), nil
}

// expectEqualsOrSpaceString supports both `doctest = "cmd"` and the more
// natural `doctest "cmd"` spelling shown in spec.md §4.2.
func (c *compiler) expectEqualsOrSpaceString(pos token.Pos) (string, error) {
	tv := c.skipSpace()
	if tv.Tok == token.EQUAL {
		tv = c.skipSpace()
	}
	if tv.Tok != token.STRING {
		return "", c.errorf(tv.Pos, "malformed block header: expected a quoted command string")
	}
	return unquote(tv.Lexeme(c.src)), nil
}

func unquote(lit string) string {
	if len(lit) >= 2 && lit[0] == '"' && lit[len(lit)-1] == '"' {
		return lit[1 : len(lit)-1]
	}
	return lit
}

func parseEsc(val string) (*EscPair, error) {
	if val == "none" {
		return nil, nil
	}
	if len(val)%2 != 0 || len(val) == 0 {
		return nil, fmt.Errorf("invalid esc value %q: must be an even-length delimiter pair or \"none\"", val)
	}
	half := len(val) / 2
	return &EscPair{Open: val[:half], Close: val[half:]}, nil
}

// consumeHeaderEnd consumes the header's trailing newline, if present
// (spec.md §3 "optionally consumes a trailing newline").
func (c *compiler) consumeHeaderEnd() {
	if c.s.Offset() < len(c.src) && c.src[c.s.Offset()] == '\n' {
		c.s.Scan() // consume the NEWLINE token
	}
}

// findBodyEnd scans forward for a line beginning with a FENCE run of the
// same length as the opening fence, and returns the body's end offset
// (exclusive of that closing fence line). It resyncs the compiler's
// scanner to just past the closing fence line (and its trailing newline,
// if any).
func (c *compiler) findBodyEnd(openLen int) (bodyEnd int, err error) {
	src := c.src
	pos := c.s.Offset()
	for {
		lineStart := pos
		n, ok := fenceRunAt(src, lineStart)
		if ok && n == openLen {
			bodyEnd = lineStart
			end := lineStart + n
			for end < len(src) && src[end] != '\n' {
				end++
			}
			if end < len(src) {
				end++ // consume the trailing newline too
			}
			c.s.SkipTo(end)
			return bodyEnd, nil
		}
		nl := bytes.IndexByte(src[pos:], '\n')
		if nl < 0 {
			return 0, c.errorf(token.Pos(0), "unterminated fenced block: missing closing fence of length %d", openLen)
		}
		pos += nl + 1
	}
}

// fenceRunAt reports whether src[off:] begins a line with a run of '`', '~'
// or ':' and, if so, its length.
func fenceRunAt(src []byte, off int) (int, bool) {
	if off >= len(src) {
		return 0, false
	}
	ch := src[off]
	if ch != '`' && ch != '~' && ch != ':' {
		return 0, false
	}
	n := 0
	for off+n < len(src) && src[off+n] == ch {
		n++
	}
	return n, true
}

// compileBlock emits the bytecode for one recognized block and registers it
// in the Object's tables (spec.md §4.2, §4.3 threading).
func (c *compiler) compileBlock(hdr *Header, bodyStart, bodyEnd int) error {
	switch hdr.Kind {
	case KindExample, KindDoctest:
		return nil // never invoked; no bytecode needed (spec.md §4.2)
	}

	entry := c.obj.Offset()
	if err := c.compileBody(hdr, bodyStart, bodyEnd); err != nil {
		return err
	}

	switch hdr.Kind {
	case KindFile:
		c.obj.Emit(makeRetFor(c.src, hdr.File, bodyEnd))
		if _, ok := c.obj.Files.Get(hdr.File); ok {
			return c.errorf(token.Pos(0), "duplicate file %q in document", hdr.File)
		}
		c.obj.Files.Put(hdr.File, entry)

	case KindTag:
		exit := c.obj.Emit(makeRetFor(c.src, hdr.Tag, bodyEnd))
		if prev, ok := c.obj.Adjacent.Get(hdr.Tag); ok {
			prevScope, _ := c.obj.Scopes.Get(hdr.Tag)
			if prevScope != hdr.Scope {
				return c.errorf(token.Pos(0), "tag %q redeclared with a different scope", hdr.Tag)
			}
			c.obj.Program[prev.Exit] = MakeJmp(entry, 0, 0)
			c.obj.Adjacent.Put(hdr.Tag, Adjacency{Entry: prev.Entry, Exit: exit})
		} else {
			c.obj.Adjacent.Put(hdr.Tag, Adjacency{Entry: entry, Exit: exit})
			c.obj.Scopes.Put(hdr.Tag, hdr.Scope)
		}
	}
	return nil
}

// makeRetFor builds a RET instruction naming the tag/file by the byte range
// where that name last occurs at-or-before `near`; Tag and File values
// always originate from a lexeme inside src, so this recovers stable
// (start,len) coordinates without storing the string a second time.
func makeRetFor(src []byte, name string, near int) Instruction {
	start := bytes.LastIndex(src[:near], []byte(name))
	if start < 0 {
		start = 0
	}
	return MakeRet(uint32(start), uint16(len(name)))
}

// compileBody emits WRITE/CALL/SHELL instructions for one block's body,
// following the placeholder grammar in spec.md §4.2 and §6.
func (c *compiler) compileBody(hdr *Header, bodyStart, bodyEnd int) error {
	src := c.src
	if !hdr.scansPlaceholders() {
		c.emitSegment(src, bodyStart, bodyEnd)
		c.shortenTrailingNewline()
		return nil
	}

	openBytes, closeBytes := []byte(hdr.Esc.Open), []byte(hdr.Esc.Close)
	segStart := bodyStart
	sawCall := false

	for segStart < bodyEnd {
		rel := bytes.Index(src[segStart:bodyEnd], openBytes)
		if rel < 0 {
			c.emitSegment(src, segStart, bodyEnd)
			sawCall = false
			segStart = bodyEnd
			break
		}
		phStart := segStart + rel
		c.emitSegment(src, segStart, phStart)

		nameStart := phStart + len(openBytes)
		closeRel := bytes.Index(src[nameStart:bodyEnd], closeBytes)
		if closeRel < 0 {
			return c.errorf(token.Pos(0), "unterminated placeholder %q", hdr.Esc.Open)
		}
		inner := src[nameStart : nameStart+closeRel]
		name, filter, err := parsePlaceholder(inner)
		if err != nil {
			return c.errorf(token.Pos(0), "%s", err)
		}

		indent := leadingIndent(src, lineStartBefore(src, phStart, bodyStart))
		off := c.obj.Emit(MakeCall(0, 0, uint16(indent)))
		c.appendSymbol(name, off)
		if filter != "" {
			if !c.opts.ShellEnabled {
				return c.errorf(token.Pos(0), "shell filters are disabled (placeholder %q|%q)", name, filter)
			}
			if len(filter) > 0xff {
				return c.errorf(token.Pos(0), "shell filter command too long: %q", filter)
			}
			cmdOff := nameStart + bytes.IndexByte(inner, '|') + 1
			// SHELL immediately follows its CALL: the interpreter recognizes this
			// adjacency to capture the call's expansion and pipe it through the
			// filter command instead of writing it straight to the sink
			// (spec.md §9, shell is a partially specified, opt-in feature).
			c.obj.Emit(MakeShell(uint32(cmdOff), 0, uint8(len(filter))))
		}
		sawCall = true
		segStart = nameStart + closeRel + len(closeBytes)
	}

	if !sawCall {
		c.shortenTrailingNewline()
	}
	return nil
}

// shortenTrailingNewline implements spec.md §4.2's "the trailing newline of
// every block body is suppressed": it shortens the nl field of the last
// emitted WRITE instruction by one, so a callee never forces an extra blank
// line into its caller.
func (c *compiler) shortenTrailingNewline() {
	if len(c.obj.Program) == 0 {
		return
	}
	last := len(c.obj.Program) - 1
	if c.obj.Program[last].Op() != WRITE {
		return
	}
	start, length, nl := c.obj.Program[last].WriteData()
	if nl > 0 {
		c.obj.Program[last] = MakeWrite(start, length, nl-1)
	}
}

func (c *compiler) appendSymbol(name string, offset uint32) {
	offs, _ := c.obj.Symbols.Get(name)
	offs = append(offs, offset)
	c.obj.Symbols.Put(name, offs)
}

// emitSegment emits a single WRITE instruction covering src[start:end],
// folding any trailing run of newlines into the instruction's nl field
// rather than its byte span (spec.md §3 Instruction table). It is a no-op
// for an empty range.
func (c *compiler) emitSegment(src []byte, start, end int) {
	if start >= end {
		return
	}
	var nl uint16
	textEnd := end
	for textEnd > start && src[textEnd-1] == '\n' && nl < ^uint16(0) {
		textEnd--
		nl++
	}
	c.obj.Emit(MakeWrite(uint32(start), uint16(textEnd-start), nl))
}

// parsePlaceholder splits a placeholder's interior "name[:type][|filter]"
// into the referenced tag name and an optional shell filter command
// (spec.md §4.2).
func parsePlaceholder(inner []byte) (name, filter string, err error) {
	s := string(bytes.TrimSpace(inner))
	if pipe := strings.IndexByte(s, '|'); pipe >= 0 {
		filter = strings.TrimSpace(s[pipe+1:])
		s = s[:pipe]
	}
	if colon := strings.IndexByte(s, ':'); colon >= 0 {
		s = s[:colon] // type annotation is ignored (spec.md §4.2)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", fmt.Errorf("empty placeholder name")
	}
	return s, filter, nil
}

func leadingIndent(src []byte, lineStart int) int {
	n := 0
	for lineStart+n < len(src) && (src[lineStart+n] == ' ' || src[lineStart+n] == '\t') {
		n++
	}
	return n
}

func lineStartBefore(src []byte, offset, floor int) int {
	i := offset
	for i > floor && src[i-1] != '\n' {
		i--
	}
	return i
}
