package textstats

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want Stats
	}{
		{name: "empty", in: "", want: Stats{}},
		{name: "no trailing newline", in: "a b\nc", want: Stats{Bytes: 5, Lines: 2, Words: 3}},
		{name: "trailing newline", in: "one two\n", want: Stats{Bytes: 8, Lines: 1, Words: 2}},
		{name: "blank lines", in: "\n\n", want: Stats{Bytes: 2, Lines: 2}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Count([]byte(tc.in))); diff != "" {
				t.Errorf("Count() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTextStats_ViaRegistry(t *testing.T) {
	// Arrange
	r := registry.New(&Module{})
	tr, ok := r.Lookup("text_stats")
	require.True(t, ok)
	fn, err := tr.New(nil)
	require.NoError(t, err)

	// Act
	out, err := fn(context.Background(), stage.Input{Value: []byte("x y z")})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, Stats{Bytes: 5, Lines: 1, Words: 3}, out)

	_, err = fn(context.Background(), stage.Input{Value: 1.5})
	assert.Error(t, err)
}
