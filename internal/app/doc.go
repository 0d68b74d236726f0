// Package app contains the core application logic. It wires a pipeline file,
// the transform registry, the engine and its observers into a single run,
// decoupled from any specific entrypoint like a CLI.
package app
