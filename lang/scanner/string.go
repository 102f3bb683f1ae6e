package scanner

import "github.com/mna/tangle/lang/token"

// scanString scans a double-quoted string token starting at the opening
// quote (s.cur == '"'). A newline or EOF before the closing quote yields
// token.INVALID instead, per spec.md §4.1.
func (s *Scanner) scanString(pos token.Pos, start int) token.Value {
	s.advance() // consume opening quote
	for {
		switch s.cur {
		case '"':
			s.advance() // consume closing quote
			return token.Value{Tok: token.STRING, Pos: pos, Start: start, End: s.off}
		case '\n', -1:
			return token.Value{Tok: token.INVALID, Pos: pos, Start: start, End: s.off}
		default:
			s.advance()
		}
	}
}
