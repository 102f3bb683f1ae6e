package vm

import "github.com/mna/tangle/lang/linker"

// frame records what is needed to resume a caller after a RET: where to
// resume (retModule/retOffset), the ambient indentation to restore
// (retIndent), and whether this call's expansion is being captured for a
// trailing SHELL filter rather than written straight to the sink.
//
// target doubles as the cycle-detection key: Thread.active holds the set of
// targets currently on the stack, so a CALL whose resolved target is
// already active means the tag chain calls back into itself.
type frame struct {
	retModule uint16
	retOffset uint32
	retIndent uint16
	target    linker.Addr

	// prevCapture is the ambient capture context to restore on RET.
	prevCapture *captureBuffer
	// shellCapture is non-nil when the instruction at this call's return
	// address is a SHELL: the callee's expansion was buffered here
	// instead of being written to the sink, to be piped through the filter
	// command once the call returns.
	shellCapture *captureBuffer
}
