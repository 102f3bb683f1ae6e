package linker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/tangle/lang/compiler"
	"github.com/mna/tangle/lang/linker"
)

func compile(t *testing.T, name, src string) *compiler.Object {
	t.Helper()
	obj, err := compiler.Compile(name, []byte(src), compiler.Options{})
	require.NoError(t, err)
	return obj
}

func TestLinkSingleDocument(t *testing.T) {
	l := linker.New()
	l.Add("doc.md", compile(t, "doc.md", "``` {.go #greet}\nhello\n```\n"))
	prog, err := l.Link()
	require.NoError(t, err)
	require.Len(t, prog.Modules, 1)

	addr, ok := prog.Procedures.Get("greet")
	require.True(t, ok)
	require.Equal(t, uint16(0), addr.Module)

	name, ok := prog.EntryNames.Get(addr)
	require.True(t, ok)
	require.Equal(t, "greet", name)
}

func TestLinkThreadsSameTagAcrossDocuments(t *testing.T) {
	l := linker.New()
	l.Add("a.md", compile(t, "a.md", "``` {.go #steps}\nstep one\n```\n"))
	l.Add("b.md", compile(t, "b.md", "``` {.go #steps}\nstep two\n```\n"))
	prog, err := l.Link()
	require.NoError(t, err)

	addr, ok := prog.Procedures.Get("steps")
	require.True(t, ok)
	require.Equal(t, uint16(0), addr.Module, "the chain's entry stays the first document that defined the tag")

	// the first document's terminal RET must have been rewritten into a JMP
	// crossing into the second module.
	aObj := prog.Modules[0]
	last := aObj.Program[len(aObj.Program)-1]
	require.Equal(t, compiler.JMP, last.Op())
	_, module, _ := last.JmpData()
	require.Equal(t, uint16(1), module)
}

func TestLinkResolvesCallTargets(t *testing.T) {
	l := linker.New()
	l.Add("doc.md", compile(t, "doc.md", "``` {.go #outer}\n<<inner>>\n```\n\n``` {.go #inner}\nx\n```\n"))
	prog, err := l.Link()
	require.NoError(t, err)

	innerAddr, ok := prog.Procedures.Get("inner")
	require.True(t, ok)

	obj := prog.Modules[0]
	var found bool
	for _, in := range obj.Program {
		if in.Op() != compiler.CALL {
			continue
		}
		addr, module, _ := in.CallData()
		if addr == innerAddr.Offset && module == innerAddr.Module {
			found = true
		}
	}
	require.True(t, found, "the CALL instruction must be patched to inner's resolved address")
}

func TestLinkUndefinedTagIsFatal(t *testing.T) {
	l := linker.New()
	l.Add("doc.md", compile(t, "doc.md", "``` {.go #outer}\n<<missing>>\n```\n"))
	_, err := l.Link()
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined tag")
}

func TestLinkDuplicateFileIsFatal(t *testing.T) {
	l := linker.New()
	l.Add("a.md", compile(t, "a.md", "``` {.go file=\"main.go\"}\npackage main\n```\n"))
	l.Add("b.md", compile(t, "b.md", "``` {.go file=\"main.go\"}\npackage main\n```\n"))
	_, err := l.Link()
	require.Error(t, err)
	require.Contains(t, err.Error(), "declared in more than one document")
}

func TestLinkScopeMismatchAcrossDocumentsIsFatal(t *testing.T) {
	l := linker.New()
	l.Add("a.md", compile(t, "a.md", "``` {.go #steps}\nstep one\n```\n"))
	l.Add("b.md", compile(t, "b.md", "``` {.go global #steps}\nstep two\n```\n"))
	_, err := l.Link()
	require.Error(t, err)
	require.Contains(t, err.Error(), "scope mismatch")
}

func TestLinkNoDocumentsIsFatal(t *testing.T) {
	l := linker.New()
	_, err := l.Link()
	require.Error(t, err)
}
