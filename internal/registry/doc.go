// Package registry provides the central "glue" for the transform system.
//
// The Registry maps the transform names used in pipeline files (e.g.
// "sha256") to compiled Go factories. Modules register themselves through
// the Module interface at startup; stage specs from the pipeline model are
// then resolved into executable stages. Registering a name twice is a
// programming error and panics.
package registry
