// Package textstats provides the text_stats transform.
package textstats

import (
	"bytes"
	"context"

	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Stats describes a block of text.
type Stats struct {
	Bytes int `json:"bytes"`
	Lines int `json:"lines"`
	Words int `json:"words"`
}

// Count computes Stats for data. A trailing line without a newline counts.
func Count(data []byte) Stats {
	s := Stats{
		Bytes: len(data),
		Lines: bytes.Count(data, []byte{'\n'}),
		Words: len(bytes.Fields(data)),
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		s.Lines++
	}
	return s
}

func transform(_ context.Context, in stage.Input) (any, error) {
	data, err := stage.Bytes(in.Value)
	if err != nil {
		return nil, err
	}
	return Count(data), nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("text_stats", &registry.RegisteredTransform{
		Description: "Counts bytes, lines and words of text input.",
		New: func(registry.Args) (stage.TransformFunc, error) {
			return transform, nil
		},
	})
}
