package compiler_test

import (
	"strings"
	"testing"

	"github.com/mna/tangle/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestDisassemble(t *testing.T) {
	obj := compile(t, "```{.zig #main}\npre <<body>> post\n```\n")
	var sb strings.Builder
	require.NoError(t, compiler.Disassemble(&sb, obj))
	out := sb.String()
	require.Contains(t, out, "write")
	require.Contains(t, out, "call")
	require.Contains(t, out, "ret")
}
