// Package cli is responsible for parsing command-line arguments into an
// app.Config and mapping outcomes to process exit codes.
package cli
