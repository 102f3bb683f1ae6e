package compiler_test

import (
	"testing"

	"github.com/mna/tangle/lang/compiler"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string) *compiler.Object {
	t.Helper()
	obj, err := compiler.Compile("test.md", []byte(src), compiler.Options{})
	require.NoError(t, err)
	return obj
}

// TestTangleTag covers spec.md §8 scenario S1: a single tagged block with
// no placeholders compiles to a write followed by a ret.
func TestTangleTag(t *testing.T) {
	obj := compile(t, "```{.zig #greet}\nhello\n```\n")
	require.Len(t, obj.Program, 2)
	require.Equal(t, compiler.WRITE, obj.Program[0].Op())
	start, length, nl := obj.Program[0].WriteData()
	require.Equal(t, "hello", string(obj.Text[start:start+uint32(length)]))
	require.Equal(t, uint16(5), length)
	require.Equal(t, uint16(0), nl) // trailing newline of the block body is suppressed
	require.Equal(t, compiler.RET, obj.Program[1].Op())

	adj, ok := obj.Adjacent.Get("greet")
	require.True(t, ok)
	require.Equal(t, uint32(0), adj.Entry)
	require.Equal(t, uint32(1), adj.Exit)
}

// TestTangleFile covers spec.md §8 scenario S2: a file block registers an
// entry point in the Files table.
func TestTangleFile(t *testing.T) {
	obj := compile(t, "```{.zig file=\"main.zig\"}\nconst std = 1;\n```\n")
	entry, ok := obj.Files.Get("main.zig")
	require.True(t, ok)
	require.Equal(t, uint32(0), entry)
	require.Equal(t, compiler.RET, obj.Program[len(obj.Program)-1].Op())
}

// TestPlaceholderCall covers a placeholder producing a CALL, with its
// surrounding text split into two writes.
func TestPlaceholderCall(t *testing.T) {
	obj := compile(t, "```{.zig #main}\npre <<body>> post\n```\n")
	require.Len(t, obj.Program, 4)
	require.Equal(t, compiler.WRITE, obj.Program[0].Op())
	require.Equal(t, compiler.CALL, obj.Program[1].Op())
	require.Equal(t, compiler.WRITE, obj.Program[2].Op())
	require.Equal(t, compiler.RET, obj.Program[3].Op())

	offs, ok := obj.Symbols.Get("body")
	require.True(t, ok)
	require.Equal(t, []uint32{1}, offs)
}

// TestThreadedTags covers spec.md §8 scenario S3: two blocks sharing a tag
// in the same document are threaded, the first's ret becomes a jmp.
func TestThreadedTags(t *testing.T) {
	src := "" +
		"```{.zig #body}\nfirst\n```\n" +
		"some prose\n" +
		"```{.zig #body}\nsecond\n```\n"
	obj := compile(t, src)

	adj, ok := obj.Adjacent.Get("body")
	require.True(t, ok)
	require.Equal(t, compiler.JMP, obj.Program[adj.Entry+1].Op())
	addr, _, _ := obj.Program[adj.Entry+1].JmpData()
	require.Equal(t, adj.Exit-1, addr)
	require.Equal(t, compiler.RET, obj.Program[adj.Exit].Op())
}

func TestScopeMismatchFatal(t *testing.T) {
	src := "" +
		"```{.zig #body}\nfirst\n```\n" +
		"```{.zig global #body}\nsecond\n```\n"
	_, err := compiler.Compile("test.md", []byte(src), compiler.Options{})
	require.Error(t, err)
}

func TestUnrecognizedHeaderIsProse(t *testing.T) {
	obj := compile(t, "```zig\nnot a literate block\n```\n")
	require.Empty(t, obj.Program)
}

func TestExampleBlockNoBytecode(t *testing.T) {
	obj := compile(t, "```{.zig example}\nunrendered\n```\n")
	require.Empty(t, obj.Program)
}

func TestEscNoneIsVerbatim(t *testing.T) {
	obj := compile(t, "```{.zig #raw esc=\"none\"}\n<<not a placeholder>>\n```\n")
	require.Len(t, obj.Program, 2)
	require.Equal(t, compiler.WRITE, obj.Program[0].Op())
	_, length, _ := obj.Program[0].WriteData()
	require.Equal(t, uint16(len("<<not a placeholder>>")), length)
}

func TestAlternateEscPairs(t *testing.T) {
	obj := compile(t, "```{.zig #main esc=\"(())\"}\nbefore ((body)) after\n```\n")
	_, ok := obj.Symbols.Get("body")
	require.True(t, ok)
}

func TestShellDisabledByDefault(t *testing.T) {
	_, err := compiler.Compile("test.md", []byte("```{.zig #main}\n<<cmd|sh>>\n```\n"), compiler.Options{})
	require.Error(t, err)
}

func TestShellEnabled(t *testing.T) {
	obj := compile2(t, "```{.zig #main}\n<<cmd|sh>>\n```\n", compiler.Options{ShellEnabled: true})
	var sawShell bool
	for _, in := range obj.Program {
		if in.Op() == compiler.SHELL {
			sawShell = true
		}
	}
	require.True(t, sawShell)
}

func compile2(t *testing.T, src string, opts compiler.Options) *compiler.Object {
	t.Helper()
	obj, err := compiler.Compile("test.md", []byte(src), opts)
	require.NoError(t, err)
	return obj
}
