package fileread

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img01.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileRead(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "hello")

	testCases := []struct {
		name    string
		args    registry.Args
		input   any
		want    []byte
		wantErr string
	}{
		{name: "reads whole file", input: path, want: []byte("hello")},
		{name: "within limit", args: registry.Args{"max_bytes": 5}, input: path, want: []byte("hello")},
		{name: "over limit", args: registry.Args{"max_bytes": 4}, input: path, wantErr: "exceeds max_bytes (4)"},
		{name: "missing file", input: filepath.Join(t.TempDir(), "nope"), wantErr: "no such file"},
		{name: "not a path", input: 3, wantErr: "expected a file path, got int"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fn, err := New(tc.args)
			require.NoError(t, err)

			out, err := fn(context.Background(), stage.Input{Value: tc.input})

			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestFileRead_RejectsNegativeLimit(t *testing.T) {
	_, err := New(registry.Args{"max_bytes": -1})

	assert.Error(t, err)
}
