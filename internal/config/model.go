package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/specialistvlad/stagegrid/internal/item"
)

// Sink kinds understood by internal/sink.
const (
	SinkFile   = "file"
	SinkBadger = "badger"
	SinkGCS    = "gcs"
	SinkLog    = "log"
)

// Pipeline is the unified, format-agnostic representation of a pipeline file.
type Pipeline struct {
	Name    string
	Workers int
	Serial  bool
	Items   ItemSource
	Stages  []StageSpec
	// Sink is nil when the pipeline persists nothing.
	Sink *SinkSpec
}

// ItemSource selects where items come from: files under Dir, or literal
// Values. Exactly one may be set; neither yields an empty run.
type ItemSource struct {
	Dir       string
	Patterns  []string
	Recursive bool
	Values    []any
}

// StageSpec is the format-agnostic representation of a `stage` block.
type StageSpec struct {
	Name string
	// Transform names a registered transform.
	Transform string
	Retries   int
	Timeout   time.Duration
	// Args are passed to the transform factory.
	Args map[string]any
}

// SinkSpec is the format-agnostic representation of a `sink` block.
type SinkSpec struct {
	Kind   string
	Dir    string
	Path   string
	Bucket string
	Prefix string
}

// Validate checks the model for errors a loader cannot catch on its own.
func (p *Pipeline) Validate() error {
	var errs []error
	if p.Workers < 0 {
		errs = append(errs, errors.New("workers must not be negative"))
	}
	if p.Items.Dir != "" && len(p.Items.Values) > 0 {
		errs = append(errs, errors.New("items: dir and values are mutually exclusive"))
	}
	for _, pattern := range p.Items.Patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("items: invalid pattern %q: %w", pattern, err))
		}
	}
	if len(p.Stages) == 0 {
		errs = append(errs, errors.New("at least one stage is required"))
	}
	for i, s := range p.Stages {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("stage %d: name is required", i))
		}
		if s.Transform == "" {
			errs = append(errs, fmt.Errorf("stage %q: transform is required", s.Name))
		}
		if s.Retries < 0 {
			errs = append(errs, fmt.Errorf("stage %q: retries must not be negative", s.Name))
		}
		if s.Timeout < 0 {
			errs = append(errs, fmt.Errorf("stage %q: timeout must not be negative", s.Name))
		}
	}
	if p.Sink != nil {
		if err := p.Sink.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *SinkSpec) validate() error {
	switch s.Kind {
	case SinkFile:
		if s.Dir == "" {
			return errors.New(`sink "file": dir is required`)
		}
	case SinkBadger:
		if s.Path == "" {
			return errors.New(`sink "badger": path is required`)
		}
	case SinkGCS:
		if s.Bucket == "" {
			return errors.New(`sink "gcs": bucket is required`)
		}
	case SinkLog:
	default:
		return fmt.Errorf("unknown sink kind %q", s.Kind)
	}
	return nil
}

// ResolvePaths makes relative filesystem paths absolute against baseDir.
func (p *Pipeline) ResolvePaths(baseDir string) {
	p.Items.Dir = resolve(baseDir, p.Items.Dir)
	if p.Sink != nil {
		p.Sink.Dir = resolve(baseDir, p.Sink.Dir)
		p.Sink.Path = resolve(baseDir, p.Sink.Path)
	}
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Enumerator returns the item enumerator described by the source.
func (s ItemSource) Enumerator() item.Enumerator {
	if s.Dir != "" {
		return &item.DirEnumerator{Root: s.Dir, Patterns: s.Patterns, Recursive: s.Recursive}
	}
	return item.FromValues(s.Values...)
}
