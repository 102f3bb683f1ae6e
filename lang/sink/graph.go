package sink

import "fmt"

// Graph records the call graph of a tangling run as a sequence of edges,
// for `ls --graph` to render with Graphviz. It discards literal output
// bytes (spec.md §4.5).
type Graph struct {
	stack []string
	Edges []Edge
}

// Edge is one caller/callee pair observed during interpretation.
type Edge struct {
	From, To string
}

// NewGraph returns an empty Graph sink rooted at the given top-level name
// (a tag or file path), pushed as the initial (empty) caller frame.
func NewGraph(root string) *Graph {
	return &Graph{stack: []string{root}}
}

func (g *Graph) Write(p []byte) error { return nil }

func (g *Graph) Call(tag string, module uint16, offset uint32) error {
	g.Edges = append(g.Edges, Edge{From: g.stack[len(g.stack)-1], To: tag})
	g.stack = append(g.stack, tag)
	return nil
}

func (g *Graph) Ret(tag string) error {
	if len(g.stack) > 1 {
		g.stack = g.stack[:len(g.stack)-1]
	}
	return nil
}

// DOT renders the recorded edges as a Graphviz "dot" document.
func (g *Graph) DOT() string {
	out := "digraph tangle {\n"
	for _, e := range g.Edges {
		out += fmt.Sprintf("\t%q -> %q;\n", e.From, e.To)
	}
	return out + "}\n"
}

var _ Sink = (*Graph)(nil)
var _ CallObserver = (*Graph)(nil)
var _ RetObserver = (*Graph)(nil)
