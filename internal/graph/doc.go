/*
Package graph expands an ordered stage list and an item set into an explicit,
immutable dependency graph.

Nodes live in a flat arena. The node for item i at stage s sits at index
i*M+s, where M is the number of stages; the terminal node sits last at index
N*M. Each per-item chain is a simple path, and the terminal node depends on
the final stage of every item. Building a graph performs no computation.
*/
package graph
