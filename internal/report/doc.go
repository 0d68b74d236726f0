/*
Package report holds the outcome of a run.

A RunReport lists one ItemOutcome per enumerated item in enumeration order,
the final output of every completed item, and flags for runs that were
cancelled or aborted. An optional Profile carries wall clock, per-node
timings and resource samples recorded by internal/telemetry.

Item failures never surface as a run error; they are recorded here as
StageFailure values.
*/
package report
