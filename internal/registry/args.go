package registry

import (
	"fmt"
	"math"
)

// Args are the decoded `args` of a stage. Numbers may arrive as any Go
// numeric type depending on the pipeline format.
type Args map[string]any

// String returns args[key] as a string, or def when absent.
func (a Args) String(key, def string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q: expected string, got %T", key, v)
	}
	return s, nil
}

// Float returns args[key] as a float64, or def when absent.
func (a Args) Float(key string, def float64) (float64, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("arg %q: expected number, got %T", key, v)
	}
}

// Int returns args[key] as an int, or def when absent. Fractional numbers
// are rejected.
func (a Args) Int(key string, def int) (int, error) {
	if _, ok := a[key]; !ok {
		return def, nil
	}
	f, err := a.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("arg %q: expected integer, got %v", key, f)
	}
	return int(f), nil
}

// Bool returns args[key] as a bool, or def when absent.
func (a Args) Bool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("arg %q: expected bool, got %T", key, v)
	}
	return b, nil
}
