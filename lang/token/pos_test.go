package token

import "testing"

func TestMakePosLineCol(t *testing.T) {
	cases := []struct {
		line, col int
	}{
		{1, 1},
		{42, 7},
		{MaxLines, MaxCols},
	}
	for _, c := range cases {
		p := MakePos(c.line, c.col)
		gotLine, gotCol := p.LineCol()
		if gotLine != c.line || gotCol != c.col {
			t.Errorf("MakePos(%d, %d).LineCol() = (%d, %d)", c.line, c.col, gotLine, gotCol)
		}
		if p.Unknown() {
			t.Errorf("MakePos(%d, %d) reported Unknown", c.line, c.col)
		}
	}
}

func TestPosUnknown(t *testing.T) {
	if !Pos(0).Unknown() {
		t.Error("zero Pos should be unknown")
	}
}

func TestFormatPos(t *testing.T) {
	p := MakePos(3, 5)
	if got, want := FormatPos("", p), "3:5"; got != want {
		t.Errorf("FormatPos(\"\", p) = %q, want %q", got, want)
	}
	if got, want := FormatPos("doc.md", p), "doc.md:3:5"; got != want {
		t.Errorf("FormatPos(doc.md, p) = %q, want %q", got, want)
	}
	if got, want := FormatPos("doc.md", Pos(0)), "doc.md:?:?"; got != want {
		t.Errorf("FormatPos(doc.md, 0) = %q, want %q", got, want)
	}
}

func TestLineCol(t *testing.T) {
	src := []byte("abc\ndef\nghi")
	cases := []struct {
		offset        int
		line, col     int
	}{
		{0, 1, 1},
		{3, 1, 4},
		{4, 2, 1},
		{7, 2, 4},
		{8, 3, 1},
		{10, 3, 3},
	}
	for _, c := range cases {
		line, col := LineCol(src, c.offset)
		if line != c.line || col != c.col {
			t.Errorf("LineCol(src, %d) = (%d, %d), want (%d, %d)", c.offset, line, col, c.line, c.col)
		}
	}
}
