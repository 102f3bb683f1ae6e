package sink_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/tangle/lang/sink"
)

type bareSink struct{ buf bytes.Buffer }

func (b *bareSink) Write(p []byte) error { b.buf.Write(p); return nil }

func TestProbeNoOptionalHooksIsSafeToCallUnconditionally(t *testing.T) {
	b := &bareSink{}
	hooks := sink.Probe(b)
	require.NoError(t, hooks.Write([]byte("x")))
	require.NoError(t, hooks.OnCall("tag", 0, 0))
	require.NoError(t, hooks.OnRet("tag"))
	require.NoError(t, hooks.OnJmp(0, 0))
	require.NoError(t, hooks.OnShell("cmd"))
	require.NoError(t, hooks.OnTerminate())
	require.Equal(t, "x", b.buf.String())
}

func TestStreamWritesThrough(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewStream(&buf)
	require.NoError(t, s.Write([]byte("hello")))
	require.Equal(t, "hello", buf.String())
}

func TestGraphRecordsCallGraph(t *testing.T) {
	g := sink.NewGraph("root")
	require.NoError(t, g.Call("a", 0, 0))
	require.NoError(t, g.Call("b", 0, 0))
	require.NoError(t, g.Ret("b"))
	require.NoError(t, g.Call("c", 0, 0))

	require.Equal(t, []sink.Edge{
		{From: "root", To: "a"},
		{From: "a", To: "b"},
		{From: "a", To: "c"},
	}, g.Edges)

	dot := g.DOT()
	require.Contains(t, dot, `"root" -> "a"`)
	require.Contains(t, dot, `"a" -> "b"`)
}

func TestFindRecordsCallSitesOfTarget(t *testing.T) {
	f := sink.NewFind("root", "b")
	require.NoError(t, f.Call("a", 0, 10))
	require.NoError(t, f.Call("b", 0, 20))
	require.NoError(t, f.Ret("b"))
	require.NoError(t, f.Call("b", 1, 30))

	require.Equal(t, []sink.Hit{
		{Caller: "a", Module: 0, Offset: 20},
		{Caller: "a", Module: 1, Offset: 30},
	}, f.Hits)
}
