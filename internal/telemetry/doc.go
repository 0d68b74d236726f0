// Package telemetry provides engine.Observer implementations that watch a
// run without influencing it: a Profiler that records node timings and
// resource samples into the report, an OpenTelemetry Tracer, Prometheus
// Metrics and a Progress logger. Combine several with Multi.
//
// Observer callbacks arrive on the engine's coordinator goroutine. Anything
// here that runs its own goroutine (the Profiler's sampler) guards its state
// with a mutex.
package telemetry
