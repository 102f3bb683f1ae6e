// Some of the scanner package's cursor handling is adapted from the Go
// source code: https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner implements the tokenizer: a single-pass, zero-lookahead
// lexer over raw document bytes (spec.md §4.1).
package scanner

import (
	"unicode"
	"unicode/utf8"

	"github.com/mna/tangle/lang/token"
)

// Scanner tokenizes a document for the compiler to consume. It produces a
// lazy stream of token.Value records; call Scan repeatedly until it returns
// token.EOF.
type Scanner struct {
	src []byte

	cur  rune // current character, -1 at end of file
	off  int  // byte offset of cur
	roff int  // byte offset just past cur

	line, col int // 1-based position of cur, maintained incrementally
}

// Init resets the scanner to tokenize src from the start.
func (s *Scanner) Init(src []byte) {
	s.src = src
	s.off = 0
	s.roff = 0
	s.line = 1
	s.col = 1
	s.cur = ' '
	s.advance()
}

func (s *Scanner) advance() {
	if s.cur == '\n' {
		s.line++
		s.col = 1
	} else if s.off < s.roff {
		s.col++
	}

	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}

	s.off = s.roff
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
	}
	s.roff += w
	s.cur = r
}

// Offset returns the byte offset of the scanner's current position (the
// start offset the next Scan call will use).
func (s *Scanner) Offset() int { return s.off }

// SkipTo repositions the scanner to resume scanning at the given absolute
// byte offset, recomputing line/column by counting newlines in the skipped
// prefix. The compiler uses this to resync past a fenced block's body once
// it has located the matching closing fence by direct byte search.
func (s *Scanner) SkipTo(offset int) {
	line, col := 1, 1
	for i := 0; i < offset && i < len(s.src); i++ {
		if s.src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	s.line, s.col = line, col
	if offset >= len(s.src) {
		s.off, s.roff, s.cur = len(s.src), len(s.src), -1
		return
	}
	r, w := rune(s.src[offset]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[offset:])
	}
	s.off, s.roff, s.cur = offset, offset+w, r
}

func (s *Scanner) pos() token.Pos {
	line, col := s.line, s.col
	if line > token.MaxLines {
		line = token.MaxLines
	}
	if col > token.MaxCols {
		col = token.MaxCols
	}
	return token.MakePos(line, col)
}

// Scan returns the next token.Value in the source. At end of file it
// repeatedly returns token.EOF.
func (s *Scanner) Scan() token.Value {
	start := s.off
	pos := s.pos()

	cur := s.cur
	switch {
	case cur == -1:
		return token.Value{Tok: token.EOF, Pos: pos, Start: start, End: start}

	case isLetter(cur):
		s.advance()
		for isIdentCont(s.cur) {
			s.advance()
		}
		return token.Value{Tok: token.IDENTIFIER, Pos: pos, Start: start, End: s.off}

	case cur == '\n':
		s.advance()
		return token.Value{Tok: token.NEWLINE, Pos: pos, Start: start, End: s.off}

	case cur == '.':
		s.advance()
		return token.Value{Tok: token.DOT, Pos: pos, Start: start, End: s.off}

	case cur == '#':
		s.advance()
		return token.Value{Tok: token.HASH, Pos: pos, Start: start, End: s.off}

	case cur == '=':
		s.advance()
		return token.Value{Tok: token.EQUAL, Pos: pos, Start: start, End: s.off}

	case cur == '"':
		return s.scanString(pos, start)

	case cur == '`' || cur == '~' || cur == ':':
		n := s.scanRun(cur)
		return token.Value{Tok: token.FENCE, Pos: pos, Start: start, End: s.off, RunLen: n, Delim: cur}

	case cur == '{' || cur == '<':
		n := s.scanRun(cur)
		if n == 1 && cur == '{' {
			return token.Value{Tok: token.L_BRACE, Pos: pos, Start: start, End: s.off, RunLen: 1, Delim: cur}
		}
		return token.Value{Tok: token.L_CHEVRON, Pos: pos, Start: start, End: s.off, RunLen: n, Delim: cur}

	case cur == '}' || cur == '>':
		n := s.scanRun(cur)
		if n == 1 && cur == '}' {
			return token.Value{Tok: token.R_BRACE, Pos: pos, Start: start, End: s.off, RunLen: 1, Delim: cur}
		}
		return token.Value{Tok: token.R_CHEVRON, Pos: pos, Start: start, End: s.off, RunLen: n, Delim: cur}

	case isSpace(cur):
		s.advance()
		for isSpace(s.cur) {
			s.advance()
		}
		return token.Value{Tok: token.SPACE, Pos: pos, Start: start, End: s.off}

	default:
		s.advance()
		for !s.startsToken(s.cur) {
			s.advance()
		}
		return token.Value{Tok: token.TEXT, Pos: pos, Start: start, End: s.off}
	}
}

// scanRun consumes the maximal run of the given rune starting at the current
// position (which must already equal r) and returns its length. It stops
// early at EOF, which is how a half-open chevron/fence run at the end of a
// document is promoted into a (shorter) valid token rather than an error.
func (s *Scanner) scanRun(r rune) int {
	n := 0
	for s.cur == r {
		n++
		s.advance()
	}
	return n
}

// startsToken reports whether r could begin a fresh, non-TEXT token; TEXT
// runs extend until such a character is seen (or EOF).
func (s *Scanner) startsToken(r rune) bool {
	switch {
	case r == -1:
		return true
	case isLetter(r):
		return true
	case isSpace(r):
		return true
	case r == '\n', r == '.', r == '#', r == '=', r == '"':
		return true
	case r == '`', r == '~', r == ':':
		return true
	case r == '{', r == '}', r == '<', r == '>':
		return true
	}
	return false
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' }

func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' ||
		'A' <= r && r <= 'Z' ||
		r == '_' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9' || r >= utf8.RuneSelf && unicode.IsDigit(r)
}

func isIdentCont(r rune) bool {
	return isLetter(r) || isDigit(r) || r == '-'
}
