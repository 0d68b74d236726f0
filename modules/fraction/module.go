// Package fraction provides the fraction transform: the share of input bytes
// strictly above a threshold, and its complement.
package fraction

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Result is the measured share. Fraction + Complement == 1.
type Result struct {
	Fraction   float64 `json:"fraction"`
	Complement float64 `json:"complement"`
}

// ErrEmpty is returned for zero-length input.
var ErrEmpty = errors.New("empty input")

// Measure computes the share of bytes in data that are greater than above.
func Measure(data []byte, above byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrEmpty
	}
	n := 0
	for _, b := range data {
		if b > above {
			n++
		}
	}
	f := float64(n) / float64(len(data))
	return Result{Fraction: f, Complement: 1 - f}, nil
}

// New returns the transform. The `above` arg is a threshold in [0, 255],
// default 127.
func New(args registry.Args) (stage.TransformFunc, error) {
	above, err := args.Int("above", 127)
	if err != nil {
		return nil, err
	}
	if above < 0 || above > 255 {
		return nil, fmt.Errorf("arg %q: must be within [0, 255], got %d", "above", above)
	}
	return func(_ context.Context, in stage.Input) (any, error) {
		data, err := stage.Bytes(in.Value)
		if err != nil {
			return nil, err
		}
		return Measure(data, byte(above))
	}, nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("fraction", &registry.RegisteredTransform{
		Description: "Share of input bytes above a threshold, with its complement.",
		New:         New,
	})
}
