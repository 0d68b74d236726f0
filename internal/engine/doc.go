/*
Package engine executes a stage graph.

A single coordinator goroutine owns all scheduling state: per-node dependency
counters, the FIFO ready queue and node outcomes. Workers from a bounded
errgroup pool run transforms, publish each result to the node store, and only
then report back, so a stage is dispatched strictly after its upstream result
is visible.

Cancellation of the run context is observed only when a node is about to be
dispatched. Transforms run on a context detached from run cancellation, so
in-flight work finishes and is memoized before the run reports cancelled.

A failing transform is contained to its item: the remaining stages of that
item are skipped and every other chain continues. Invariant violations (a
missing upstream result or a double publish) abort the run after in-flight
nodes drain.
*/
package engine
