/*
Package nodeid provides the structured identity of a node in the stage graph.

A node is addressed by the composite key (item id, stage index). Keys are plain
comparable values, so they can be used directly as map keys and need no string
concatenation to build or parse. The canonical text form `item[stage]` exists
for logs, reports and DOT output; the synthetic terminal node prints as
`finalize`.
*/
package nodeid
