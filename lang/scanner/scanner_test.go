package scanner_test

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/mna/tangle/internal/filetest"
	"github.com/mna/tangle/internal/maincmd"
	"github.com/mna/tangle/lang/scanner"
	"github.com/mna/tangle/lang/token"
)

var testUpdateScannerTests = flag.Bool("test.update-scanner-tests", false, "If set, replace expected scanner golden test results with actual results.")

// TestTokenizeGolden runs the `tokens` command's scanner-dump path against
// every document in testdata/in and diffs stdout/stderr against the
// matching golden file in testdata/out.
func TestTokenizeGolden(t *testing.T) {
	ctx := context.Background()
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".md") {
		t.Run(fi.Name(), func(t *testing.T) {
			var out, errBuf bytes.Buffer
			stdio := mainer.Stdio{Stdout: &out, Stderr: &errBuf}

			c := &maincmd.Cmd{}
			_ = c.Tokens(ctx, stdio, []string{filepath.Join(srcDir, fi.Name())})
			filetest.DiffOutput(t, fi, out.String(), resultDir, testUpdateScannerTests)
			filetest.DiffErrors(t, fi, errBuf.String(), resultDir, testUpdateScannerTests)
		})
	}
}

func scanAll(t *testing.T, src string) []token.Value {
	t.Helper()
	var s scanner.Scanner
	s.Init([]byte(src))
	var toks []token.Value
	for {
		tv := s.Scan()
		toks = append(toks, tv)
		if tv.Tok == token.EOF {
			return toks
		}
	}
}

func TestScanBasics(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []token.Token
	}{
		{"empty", "", []token.Token{token.EOF}},
		{"ident", "foo-bar_1", []token.Token{token.IDENTIFIER, token.EOF}},
		{"fence", "```", []token.Token{token.FENCE, token.EOF}},
		{"fence-tilde", "~~~~", []token.Token{token.FENCE, token.EOF}},
		{"brace-lone", "{x}", []token.Token{token.L_BRACE, token.IDENTIFIER, token.R_BRACE, token.EOF}},
		{"chevron", "<<x>>", []token.Token{token.L_CHEVRON, token.IDENTIFIER, token.R_CHEVRON, token.EOF}},
		{"brace-run", "{{x}}", []token.Token{token.L_CHEVRON, token.IDENTIFIER, token.R_CHEVRON, token.EOF}},
		{"dot-hash-eq", ".#=", []token.Token{token.DOT, token.HASH, token.EQUAL, token.EOF}},
		{"string", `"abc"`, []token.Token{token.STRING, token.EOF}},
		{"string-unterminated", "\"abc", []token.Token{token.INVALID, token.EOF}},
		{"string-newline", "\"abc\ndef\"", []token.Token{token.INVALID, token.NEWLINE, token.IDENTIFIER, token.INVALID, token.EOF}},
		{"space", "a  b", []token.Token{token.IDENTIFIER, token.SPACE, token.IDENTIFIER, token.EOF}},
		{"newline", "a\nb", []token.Token{token.IDENTIFIER, token.NEWLINE, token.IDENTIFIER, token.EOF}},
		{"text", "!!!", []token.Token{token.TEXT, token.EOF}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			toks := scanAll(t, c.src)
			require.Len(t, toks, len(c.want))
			for i, tv := range toks {
				require.Equalf(t, c.want[i], tv.Tok, "token %d", i)
			}
		})
	}
}

func TestFenceRunLen(t *testing.T) {
	toks := scanAll(t, "`````")
	require.Equal(t, token.FENCE, toks[0].Tok)
	require.Equal(t, 5, toks[0].RunLen)
	require.Equal(t, '`', toks[0].Delim)
}

func TestChevronRunLen(t *testing.T) {
	toks := scanAll(t, "<<<x>>>")
	require.Equal(t, token.L_CHEVRON, toks[0].Tok)
	require.Equal(t, 3, toks[0].RunLen)
	require.Equal(t, token.R_CHEVRON, toks[2].Tok)
	require.Equal(t, 3, toks[2].RunLen)
}

// TestScanTotality checks spec.md §8 property 1: the concatenation of all
// emitted [Start,End) ranges covers the input exactly, in order, with no
// overlap or gap.
func TestScanTotality(t *testing.T) {
	srcs := []string{
		"",
		"```{.zig #foo}\nabc\n```\n",
		"pre <<x>> post\n",
		"weird \"unterminated",
		"{{{}}}<<<>>>",
		"mix of\ttabs  and   spaces\n",
	}
	for _, src := range srcs {
		toks := scanAll(t, src)
		pos := 0
		for _, tv := range toks {
			require.Equal(t, pos, tv.Start, "gap or overlap before token at %d in %q", pos, src)
			require.GreaterOrEqual(t, tv.End, tv.Start)
			pos = tv.End
		}
		require.Equal(t, len(src), pos, "tokens did not cover %q", src)
	}
}
