package graph

import (
	"context"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/item"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Node is a single vertex of the graph.
type Node struct {
	// Index is the node's position in Graph.Nodes.
	Index int
	Key   nodeid.Key
	// ItemIndex is the item's position in enumeration order, -1 for the
	// terminal node.
	ItemIndex int
	Item      item.Item
	// Stage is nil for the terminal node.
	Stage *stage.Stage

	Deps       []int
	Dependents []int
}

// IsTerminal reports whether n is the synthetic terminal node.
func (n *Node) IsTerminal() bool {
	return n.Stage == nil
}

// Graph is the immutable node arena of one run.
type Graph struct {
	Stages []stage.Stage
	Items  []item.Item
	Nodes  []*Node

	itemIndex map[string]int
}

// Build constructs the graph for items flowing through stages. It fails with
// a *stage.ConfigurationError on an invalid stage list or duplicate item ids.
func Build(ctx context.Context, stages []stage.Stage, items []item.Item) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "stages", len(stages), "items", len(items))

	if err := stage.Validate(stages); err != nil {
		return nil, err
	}

	g := &Graph{
		Stages:    append([]stage.Stage(nil), stages...),
		Items:     append([]item.Item(nil), items...),
		itemIndex: make(map[string]int, len(items)),
	}
	for i, it := range g.Items {
		if prev, dup := g.itemIndex[it.ID]; dup {
			return nil, &stage.ConfigurationError{
				Reason: fmt.Sprintf("duplicate item id %q (positions %d and %d)", it.ID, prev, i),
			}
		}
		g.itemIndex[it.ID] = i
	}

	// First pass: allocate the arena.
	m := len(g.Stages)
	n := len(g.Items)
	g.Nodes = make([]*Node, n*m+1)
	for i, it := range g.Items {
		for s := range m {
			idx := i*m + s
			g.Nodes[idx] = &Node{
				Index:     idx,
				Key:       nodeid.New(it.ID, s),
				ItemIndex: i,
				Item:      it,
				Stage:     &g.Stages[s],
			}
		}
	}
	terminal := &Node{Index: n * m, Key: nodeid.Terminal, ItemIndex: -1}
	g.Nodes[n*m] = terminal
	logger.Debug("Build: Node creation complete.", "node_count", len(g.Nodes))

	// Second pass: link each chain and join every chain at the terminal node.
	for i := range n {
		for s := 1; s < m; s++ {
			g.link(i*m+s-1, i*m+s)
		}
		g.link(i*m+m-1, terminal.Index)
	}
	logger.Debug("Build: Node linking complete.")

	if err := g.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}

	logger.Debug("Build: Graph construction successful.")
	return g, nil
}

func (g *Graph) link(from, to int) {
	g.Nodes[to].Deps = append(g.Nodes[to].Deps, from)
	g.Nodes[from].Dependents = append(g.Nodes[from].Dependents, to)
}

// Keys lists every node key in arena order.
func (g *Graph) Keys() []nodeid.Key {
	keys := make([]nodeid.Key, len(g.Nodes))
	for i, n := range g.Nodes {
		keys[i] = n.Key
	}
	return keys
}

// Len is the number of nodes including the terminal node.
func (g *Graph) Len() int { return len(g.Nodes) }

// Terminal returns the terminal node.
func (g *Graph) Terminal() *Node { return g.Nodes[len(g.Nodes)-1] }

// Node looks a node up by key in O(1).
func (g *Graph) Node(key nodeid.Key) (*Node, bool) {
	if key.IsTerminal() {
		return g.Terminal(), true
	}
	i, ok := g.itemIndex[key.Item]
	if !ok || key.Stage < 0 || key.Stage >= len(g.Stages) {
		return nil, false
	}
	return g.Nodes[i*len(g.Stages)+key.Stage], true
}

// Chain returns the nodes of one item in stage order.
func (g *Graph) Chain(itemIndex int) []*Node {
	m := len(g.Stages)
	return g.Nodes[itemIndex*m : itemIndex*m+m]
}

// Roots returns the first-stage node of every item in enumeration order.
func (g *Graph) Roots() []*Node {
	roots := make([]*Node, 0, len(g.Items))
	for i := range g.Items {
		roots = append(roots, g.Nodes[i*len(g.Stages)])
	}
	return roots
}

// detectCycles checks for circular dependencies using DFS. Construction
// cannot produce one, so a failure here means the arena was corrupted.
func (g *Graph) detectCycles() error {
	visiting := make([]bool, len(g.Nodes))
	visited := make([]bool, len(g.Nodes))

	var visit func(idx int) error
	visit = func(idx int) error {
		visiting[idx] = true
		for _, dep := range g.Nodes[idx].Deps {
			if visiting[dep] {
				return fmt.Errorf("cycle detected involving '%s'", g.Nodes[dep].Key)
			}
			if !visited[dep] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		visiting[idx] = false
		visited[idx] = true
		return nil
	}

	for idx := range g.Nodes {
		if !visited[idx] {
			if err := visit(idx); err != nil {
				return err
			}
		}
	}
	return nil
}
