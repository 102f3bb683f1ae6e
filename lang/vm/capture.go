package vm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// captureBuffer accumulates a CALL's expansion in memory so it can be piped
// through a shell filter command instead of being written straight to the
// sink (spec.md §9's partially-specified shell opcode).
type captureBuffer struct {
	buf bytes.Buffer
}

func newCaptureBuffer() *captureBuffer { return &captureBuffer{} }

func (c *captureBuffer) Write(p []byte) error {
	c.buf.Write(p)
	return nil
}

// run pipes the captured bytes through `sh -c command` and returns its
// standard output.
func (c *captureBuffer) run(ctx context.Context, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdin = bytes.NewReader(c.buf.Bytes())
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tangle: shell filter %q: %w", command, err)
	}
	return out.Bytes(), nil
}
