package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is the top-level schema of a pipeline file.
type fileRoot struct {
	Name    *string       `hcl:"name,optional"`
	Workers *int          `hcl:"workers,optional"`
	Serial  *bool         `hcl:"serial,optional"`
	Items   *itemsBlock   `hcl:"items,block"`
	Stages  []*stageBlock `hcl:"stage,block"`
	Sinks   []*sinkBlock  `hcl:"sink,block"`
}

type itemsBlock struct {
	Dir       *string        `hcl:"dir,optional"`
	Patterns  []string       `hcl:"patterns,optional"`
	Recursive *bool          `hcl:"recursive,optional"`
	Values    hcl.Expression `hcl:"values,optional"`
}

type stageBlock struct {
	Name      string         `hcl:"name,label"`
	Transform string         `hcl:"transform"`
	Retries   *int           `hcl:"retries,optional"`
	Timeout   *string        `hcl:"timeout,optional"`
	Args      hcl.Expression `hcl:"args,optional"`
}

type sinkBlock struct {
	Kind   string  `hcl:"kind,label"`
	Dir    *string `hcl:"dir,optional"`
	Path   *string `hcl:"path,optional"`
	Bucket *string `hcl:"bucket,optional"`
	Prefix *string `hcl:"prefix,optional"`
}
