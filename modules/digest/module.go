// Package digest provides the sha256 transform.
package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Digest is the checksum of the input.
type Digest struct {
	SHA256 string `json:"sha256"`
	Size   int    `json:"size"`
}

func transform(_ context.Context, in stage.Input) (any, error) {
	data, err := stage.Bytes(in.Value)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return Digest{SHA256: hex.EncodeToString(sum[:]), Size: len(data)}, nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("sha256", &registry.RegisteredTransform{
		Description: "Computes the hex SHA-256 digest and size of the input.",
		New: func(registry.Args) (stage.TransformFunc, error) {
			return transform, nil
		},
	})
}
