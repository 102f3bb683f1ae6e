package vm

import "bytes"

// rawWrite sends already-formed output bytes either to the innermost active
// shell capture buffer, or to the real sink if nothing is being captured.
func (t *Thread) rawWrite(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if t.capture != nil {
		return t.capture.Write(p)
	}
	return t.sink.Write(p)
}

// emit writes text followed by nl newline bytes, replaying the thread's
// current ambient indentation at the start of every line text begins
// (spec.md §4.4's indentation propagation: a CALL's indent is re-applied to
// every newline-started line the callee subsequently emits).
func (t *Thread) emit(text []byte, nl uint16) error {
	if len(text) > 0 {
		lines := bytes.Split(text, []byte{'\n'})
		for i, line := range lines {
			if i > 0 {
				if err := t.rawWrite([]byte{'\n'}); err != nil {
					return err
				}
				t.lastNewline = true
			}
			if len(line) == 0 {
				continue
			}
			if t.lastNewline && t.indent > 0 {
				if err := t.rawWrite(bytes.Repeat([]byte{' '}, int(t.indent))); err != nil {
					return err
				}
			}
			if err := t.rawWrite(line); err != nil {
				return err
			}
			t.lastNewline = false
		}
	}
	for i := uint16(0); i < nl; i++ {
		if err := t.rawWrite([]byte{'\n'}); err != nil {
			return err
		}
	}
	if nl > 0 {
		t.lastNewline = true
	}
	return nil
}
