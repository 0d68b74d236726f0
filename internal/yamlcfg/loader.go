// Package yamlcfg implements config.Loader for YAML pipeline files.
package yamlcfg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

type fileRoot struct {
	Name    string     `yaml:"name"`
	Workers int        `yaml:"workers"`
	Serial  bool       `yaml:"serial"`
	Items   itemsDef   `yaml:"items"`
	Stages  []stageDef `yaml:"stages"`
	Sink    *sinkDef   `yaml:"sink"`
}

type itemsDef struct {
	Dir       string   `yaml:"dir"`
	Patterns  []string `yaml:"patterns"`
	Recursive bool     `yaml:"recursive"`
	Values    []any    `yaml:"values"`
}

type stageDef struct {
	Name      string         `yaml:"name"`
	Transform string         `yaml:"transform"`
	Retries   int            `yaml:"retries"`
	Timeout   string         `yaml:"timeout"`
	Args      map[string]any `yaml:"args"`
}

type sinkDef struct {
	Kind   string `yaml:"kind"`
	Dir    string `yaml:"dir"`
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// Loader reads pipeline definitions from YAML. Unknown keys are rejected.
type Loader struct{}

// NewLoader creates a new YAML pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses and translates the pipeline file at path.
func (l *Loader) Load(ctx context.Context, path string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file %s: %w", path, err)
	}

	var root fileRoot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}

	p, err := translate(&root)
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

	logger.Debug("YAML loading complete.", "pipeline", p.Name, "stages", len(p.Stages))
	return p, nil
}

func translate(root *fileRoot) (*config.Pipeline, error) {
	p := &config.Pipeline{
		Name:    root.Name,
		Workers: root.Workers,
		Serial:  root.Serial,
		Items: config.ItemSource{
			Dir:       root.Items.Dir,
			Patterns:  root.Items.Patterns,
			Recursive: root.Items.Recursive,
			Values:    root.Items.Values,
		},
	}
	for _, s := range root.Stages {
		spec := config.StageSpec{
			Name:      s.Name,
			Transform: s.Transform,
			Retries:   s.Retries,
			Args:      s.Args,
		}
		if s.Timeout != "" {
			d, err := time.ParseDuration(s.Timeout)
			if err != nil {
				return nil, fmt.Errorf("stage %q: invalid timeout: %w", s.Name, err)
			}
			spec.Timeout = d
		}
		p.Stages = append(p.Stages, spec)
	}
	if root.Sink != nil {
		p.Sink = &config.SinkSpec{
			Kind:   root.Sink.Kind,
			Dir:    root.Sink.Dir,
			Path:   root.Sink.Path,
			Bucket: root.Sink.Bucket,
			Prefix: root.Sink.Prefix,
		}
	}
	return p, nil
}
