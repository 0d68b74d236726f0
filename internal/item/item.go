// Package item discovers the work items of a run and gives each one a stable
// identifier. Items are created once during enumeration and never change
// afterwards.
package item

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/fsutil"
)

// Item is one unit of work flowing through the stage chain.
type Item struct {
	// ID is unique within a run and stable across runs over the same input.
	ID string
	// Source is the raw input handed to the first stage: a file path for
	// directory enumeration, or the literal value for in-memory items.
	Source any
}

// Enumerator produces the finite item sequence of a run. Enumeration happens
// once, up front, before the graph is built.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]Item, error)
}

// DirEnumerator scans a directory for files matching Patterns. The item ID is
// the file's base name without its extension.
type DirEnumerator struct {
	Root      string
	Patterns  []string
	Recursive bool
}

// Enumerate implements Enumerator.
func (d *DirEnumerator) Enumerate(ctx context.Context) ([]Item, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Scanning for items.", "root", d.Root, "patterns", d.Patterns, "recursive", d.Recursive)

	paths, err := fsutil.FindFiles(d.Root, d.Patterns, d.Recursive)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", d.Root, err)
	}

	items := make([]Item, 0, len(paths))
	for _, p := range paths {
		items = append(items, Item{ID: IDFromPath(p), Source: p})
	}
	logger.Debug("Item scan complete.", "count", len(items))
	return items, nil
}

// IDFromPath derives an item id from a file path: `data/img01.tif` -> `img01`.
func IDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Static is an in-memory item list. It is what tests and literal `values`
// pipelines use.
type Static []Item

// Enumerate implements Enumerator.
func (s Static) Enumerate(context.Context) ([]Item, error) {
	out := make([]Item, len(s))
	copy(out, s)
	return out, nil
}

// FromValues wraps each value as an item that is its own raw input. The id is
// the value's default string form.
func FromValues(values ...any) Static {
	items := make(Static, 0, len(values))
	for _, v := range values {
		items = append(items, Item{ID: fmt.Sprint(v), Source: v})
	}
	return items
}
