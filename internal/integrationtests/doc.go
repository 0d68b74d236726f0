// Package integrationtests drives complete pipelines from a pipeline file
// through loading, graph building, execution, sinks and reporting.
package integrationtests
