package graph

import (
	"fmt"
	"io"
	"strings"
)

// WriteDOT renders the graph in Graphviz DOT format, one cluster per item.
func (g *Graph) WriteDOT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph stagegrid {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for i, it := range g.Items {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&b, "    label=%q;\n", it.ID)
		for _, n := range g.Chain(i) {
			fmt.Fprintf(&b, "    %q [label=%q];\n", n.Key.String(), n.Stage.Name)
		}
		b.WriteString("  }\n")
	}

	terminal := g.Terminal()
	fmt.Fprintf(&b, "  %q [shape=doublecircle];\n", terminal.Key.String())

	for _, n := range g.Nodes {
		for _, dep := range n.Deps {
			fmt.Fprintf(&b, "  %q -> %q;\n", g.Nodes[dep].Key.String(), n.Key.String())
		}
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
