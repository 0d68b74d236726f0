// Package fileread provides the file_read transform, which loads the item's
// source file into memory.
package fileread

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// New returns a transform reading the file named by its input. max_bytes
// bounds the file size; zero means no limit.
func New(args registry.Args) (stage.TransformFunc, error) {
	maxBytes, err := args.Int("max_bytes", 0)
	if err != nil {
		return nil, err
	}
	if maxBytes < 0 {
		return nil, fmt.Errorf("arg %q: must not be negative", "max_bytes")
	}
	return func(ctx context.Context, in stage.Input) (any, error) {
		path, ok := in.Value.(string)
		if !ok {
			return nil, fmt.Errorf("expected a file path, got %T", in.Value)
		}
		ctxlog.FromContext(ctx).Debug("Reading file.", "path", path)
		return read(path, int64(maxBytes))
	}, nil
}

func read(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file %s exceeds max_bytes (%d)", path, maxBytes)
	}
	return data, nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("file_read", &registry.RegisteredTransform{
		Description: "Reads the file at the input path and returns its bytes.",
		New:         New,
	})
}
