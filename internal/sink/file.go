package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// JSONFile writes each record to <dir>/<item>.json.
type JSONFile struct {
	dir string
}

// NewJSONFile creates dir if needed and returns a sink writing into it.
func NewJSONFile(dir string) (*JSONFile, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create sink directory %s: %w", dir, err)
	}
	return &JSONFile{dir: dir}, nil
}

// Persist writes the record atomically via a temp file and rename.
func (s *JSONFile) Persist(_ context.Context, rec Record) error {
	data, err := encode(rec.Output)
	if err != nil {
		return err
	}
	final := filepath.Join(s.dir, objectName(rec.ItemID))
	tmp, err := os.CreateTemp(s.dir, ".stagegrid-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", final, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", final, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", final, err)
	}
	return nil
}

// Close is a no-op.
func (s *JSONFile) Close() error { return nil }
