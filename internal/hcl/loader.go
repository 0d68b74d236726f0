package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Environ supplies the `env` variable. Defaults to os.Environ.
	Environ func() []string
}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{Environ: os.Environ}
}

var _ config.Loader = (*Loader)(nil)

// Load parses and translates the pipeline file at path.
func (l *Loader) Load(ctx context.Context, path string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	evalCtx := l.evalContext()
	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	p, err := l.translate(ctx, &root, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	p.ResolvePaths(filepath.Dir(path))
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline %s: %w", path, err)
	}

	logger.Debug("HCL loading complete.", "pipeline", p.Name, "stages", len(p.Stages))
	return p, nil
}

func (l *Loader) evalContext() *hcl.EvalContext {
	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}
	env := make(map[string]cty.Value)
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(env)},
	}
}
