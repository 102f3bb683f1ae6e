package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/tangle/lang/scanner"
	"github.com/mna/tangle/lang/token"
)

// Tokens implements the ambient `tokens` debug command: prints the raw
// token stream of one or more documents, grounded on the teacher's own
// scanner-introspection command.
func (c *Cmd) Tokens(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		if err := tokenizeFile(stdio, path); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}

func tokenizeFile(stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var s scanner.Scanner
	s.Init(src)
	for {
		tv := s.Scan()
		fmt.Fprintf(stdio.Stdout, "%s: %s", token.FormatPos(path, tv.Pos), tv.Tok)
		if lex := tv.Lexeme(src); lex != "" && tv.Tok != token.NEWLINE {
			fmt.Fprintf(stdio.Stdout, " %q", lex)
		}
		fmt.Fprintln(stdio.Stdout)
		if tv.Tok == token.EOF {
			break
		}
	}
	return nil
}
