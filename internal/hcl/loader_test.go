package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writePipeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Load_Full(t *testing.T) {
	// --- Arrange ---
	path := writePipeline(t, `
name    = "sem-images"
workers = 4
serial  = true

items {
  dir       = "data"
  patterns  = ["*.tif"]
  recursive = true
}

stage "read" {
  transform = "file_read"
  retries   = 2
  timeout   = "1m30s"
  args = {
    max_bytes = 1024
    ratio     = 0.25
    tags      = ["a", "b"]
  }
}

stage "digest" {
  transform = "sha256"
}

sink "gcs" {
  bucket = env.RESULTS_BUCKET
  prefix = "runs/"
}
`)
	loader := &Loader{Environ: func() []string { return []string{"RESULTS_BUCKET=my-bucket", "MALFORMED"} }}

	// --- Act ---
	p, err := loader.Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	want := &config.Pipeline{
		Name:    "sem-images",
		Workers: 4,
		Serial:  true,
		Items: config.ItemSource{
			Dir:       filepath.Join(filepath.Dir(path), "data"),
			Patterns:  []string{"*.tif"},
			Recursive: true,
		},
		Stages: []config.StageSpec{
			{
				Name:      "read",
				Transform: "file_read",
				Retries:   2,
				Timeout:   90 * time.Second,
				Args:      map[string]any{"max_bytes": 1024, "ratio": 0.25, "tags": []any{"a", "b"}},
			},
			{Name: "digest", Transform: "sha256"},
		},
		Sink: &config.SinkSpec{Kind: "gcs", Bucket: "my-bucket", Prefix: "runs/"},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Load_ValuesAndDefaultName(t *testing.T) {
	path := writePipeline(t, `
items {
  values = [1, 2, 3]
}

stage "double" {
  transform = "print"
}
`)

	p, err := NewLoader().Load(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "pipeline", p.Name, "name defaults to the file stem")
	assert.Equal(t, []any{1, 2, 3}, p.Items.Values)
	assert.Nil(t, p.Sink)
	assert.Nil(t, p.Stages[0].Args)
}

func TestLoader_Load_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "syntax error", content: `stage "a" {`, wantErr: "failed to parse HCL file"},
		{name: "unknown block", content: `bogus {}`, wantErr: "failed to decode HCL file"},
		{name: "missing transform", content: `stage "a" {}`, wantErr: "failed to decode HCL file"},
		{name: "bad timeout", content: "stage \"a\" {\n transform = \"x\"\n timeout = \"soon\"\n}", wantErr: "invalid timeout"},
		{name: "args not object", content: "stage \"a\" {\n transform = \"x\"\n args = [1]\n}", wantErr: "args must be an object"},
		{name: "values not list", content: "items {\n values = \"x\"\n}\nstage \"a\" {\n transform = \"x\"\n}", wantErr: "values must be a list"},
		{name: "two sinks", content: "stage \"a\" {\n transform = \"x\"\n}\nsink \"log\" {}\nsink \"log\" {}", wantErr: "at most one sink"},
		{name: "no stages", content: `name = "empty"`, wantErr: "at least one stage is required"},
		{name: "unknown sink", content: "stage \"a\" {\n transform = \"x\"\n}\nsink \"ftp\" {}", wantErr: "unknown sink kind"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writePipeline(t, tc.content)
			_, err := NewLoader().Load(context.Background(), path)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestCtyValueToInterface(t *testing.T) {
	testCases := []struct {
		name string
		in   cty.Value
		want any
	}{
		{name: "null", in: cty.NullVal(cty.String), want: nil},
		{name: "string", in: cty.StringVal("x"), want: "x"},
		{name: "int", in: cty.NumberIntVal(42), want: 42},
		{name: "float", in: cty.NumberFloatVal(1.5), want: 1.5},
		{name: "bool", in: cty.True, want: true},
		{name: "set", in: cty.SetVal([]cty.Value{cty.StringVal("a")}), want: []any{"a"}},
		{
			name: "nested",
			in: cty.ObjectVal(map[string]cty.Value{
				"list": cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.StringVal("b")}),
				"map":  cty.MapVal(map[string]cty.Value{"k": cty.False}),
			}),
			want: map[string]any{"list": []any{1, "b"}, "map": map[string]any{"k": false}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ctyValueToInterface(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ctyValueToInterface(cty.UnknownVal(cty.String))
	assert.Error(t, err)
}
