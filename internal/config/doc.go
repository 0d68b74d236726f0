// Package config defines the format-agnostic pipeline model and the Loader
// interface implemented by the format-specific packages (internal/hcl for
// .hcl files, internal/yamlcfg for .yaml files).
//
// The `config.Pipeline` is the single source of truth for the registry, the
// item enumerator and the sink factory.
package config
