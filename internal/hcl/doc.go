// Package hcl provides the concrete HCL implementation of config.Loader. It
// is responsible for parsing pipeline files, translating the HCL schema into
// the format-agnostic model, and converting cty values into plain Go values.
//
// Expressions are evaluated with one variable in scope: `env`, an object of
// the process environment, so a pipeline can write `bucket = env.BUCKET`.
package hcl
