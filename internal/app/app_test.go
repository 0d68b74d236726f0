package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/engine"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/report"
	"github.com/specialistvlad/stagegrid/internal/stage"
	"github.com/specialistvlad/stagegrid/modules/fileread"
	"github.com/specialistvlad/stagegrid/modules/textstats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arithModule registers the integer transforms used by the end-to-end tests.
type arithModule struct{}

func (arithModule) Register(r *registry.Registry) {
	r.RegisterTransform("double", &registry.RegisteredTransform{
		Description: "x -> 2x",
		New: func(registry.Args) (stage.TransformFunc, error) {
			return func(_ context.Context, in stage.Input) (any, error) {
				return in.Value.(int) * 2, nil
			}, nil
		},
	})
	r.RegisterTransform("add_one", &registry.RegisteredTransform{
		Description: "x -> x+1",
		New: func(registry.Args) (stage.TransformFunc, error) {
			return func(_ context.Context, in stage.Input) (any, error) {
				return in.Value.(int) + 1, nil
			}, nil
		},
	})
	r.RegisterTransform("fail_on_two", &registry.RegisteredTransform{
		Description: "fails for item 2",
		New: func(registry.Args) (stage.TransformFunc, error) {
			return func(_ context.Context, in stage.Input) (any, error) {
				if in.Item.ID == "2" {
					return nil, errors.New("two is not allowed")
				}
				return in.Value, nil
			}, nil
		},
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestApp(t *testing.T, cfg Config, modules ...registry.Module) (*App, *bytes.Buffer) {
	t.Helper()
	cfg.LogLevel = "debug"
	c, err := NewConfig(cfg)
	require.NoError(t, err)
	out := &bytes.Buffer{}
	a := NewApp(out, c, nil, modules...)
	t.Cleanup(func() {
		if os.Getenv("STAGEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})
	return a, out
}

const arithHCL = `
name = "arith"

items {
  values = [1, 2, 3]
}

stage "double" {
  transform = "double"
}

stage "add_one" {
  transform = "add_one"
}

sink "file" {
  dir = "out"
}
`

func TestApp_Run_EndToEnd(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	path := writeFile(t, dir, "arith.hcl", arithHCL)
	reportPath := filepath.Join(dir, "report.json")
	a, out := newTestApp(t, Config{PipelinePath: path, ReportPath: reportPath}, arithModule{})

	// --- Act ---
	rep, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": 3, "2": 5, "3": 7}, rep.Outputs())
	assert.Equal(t, []string{"double", "add_one", "save"}, rep.Stages)
	require.NotNil(t, rep.Profile)
	assert.Len(t, rep.Profile.Nodes, 3*3+1)

	saved, err := os.ReadFile(filepath.Join(dir, "out", "2.json"))
	require.NoError(t, err)
	assert.Equal(t, "5\n", string(saved))

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"pipeline": "arith"`)
	assert.Contains(t, out.String(), "3 ok / 0 failed / 0 skipped")
}

func TestApp_Run_FailedItemIsNotAnError(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	path := writeFile(t, dir, "p.yaml", `
items:
  values: [1, 2, 3]
stages:
  - name: check
    transform: fail_on_two
  - name: double
    transform: double
sink:
  kind: file
  dir: out
`)
	a, _ := newTestApp(t, Config{PipelinePath: path, Serial: true}, arithModule{})

	// --- Act ---
	rep, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	o, ok := rep.Outcome("2")
	require.True(t, ok)
	assert.Equal(t, report.StateFailed, o.State)
	assert.Equal(t, "check", o.FailedStage)
	assert.Equal(t, report.Counts{Completed: 2, Failed: 1}, rep.Counts())
	assert.NoFileExists(t, filepath.Join(dir, "out", "2.json"))
	assert.FileExists(t, filepath.Join(dir, "out", "3.json"))
}

func TestApp_Run_FilesWithCoreModules(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	writeFile(t, dir, "data/b.txt", "one two\nthree\n")
	writeFile(t, dir, "data/a.txt", "x")
	writeFile(t, dir, "data/skip.bin", "zzz")
	path := writeFile(t, dir, "texts.yaml", `
items:
  dir: data
  patterns: ["*.txt"]
stages:
  - name: read
    transform: file_read
  - name: stats
    transform: text_stats
sink:
  kind: badger
  path: results.db
`)
	a, _ := newTestApp(t, Config{PipelinePath: path, Workers: 2}, &fileread.Module{}, &textstats.Module{})

	// --- Act ---
	rep, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, rep.Items, 2)
	assert.Equal(t, "a", rep.Items[0].ItemID)
	assert.Equal(t, "b", rep.Items[1].ItemID)
	assert.Equal(t, textstats.Stats{Bytes: 14, Lines: 2, Words: 3}, rep.Items[1].Output)
	assert.DirExists(t, filepath.Join(dir, "results.db"))
}

func TestApp_Run_InvalidPipeline(t *testing.T) {
	testCases := []struct {
		name string
		file string
		body string
	}{
		{name: "unknown transform", file: "p.hcl", body: `stage "a" { transform = "nope" }`},
		{name: "syntax error", file: "p.hcl", body: `stage "a" {`},
		{name: "unsupported extension", file: "p.json", body: `{}`},
		{name: "sink stage name clash", file: "p.yaml", body: "stages:\n  - {name: save, transform: double}\nsink: {kind: log}\n"},
		{name: "missing item dir", file: "p.yaml", body: "items: {dir: nowhere}\nstages:\n  - {name: a, transform: double}\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tc.file, tc.body)
			a, _ := newTestApp(t, Config{PipelinePath: path}, arithModule{})

			rep, err := a.Run(context.Background())

			assert.Nil(t, rep)
			assert.ErrorIs(t, err, ErrInvalidPipeline)
		})
	}
}

func TestApp_Run_Cancelled(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	path := writeFile(t, dir, "arith.hcl", arithHCL)
	a, _ := newTestApp(t, Config{PipelinePath: path}, arithModule{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// --- Act ---
	rep, err := a.Run(ctx)

	// --- Assert ---
	require.Error(t, err)
	assert.True(t, engine.IsCancelled(err))
	require.NotNil(t, rep)
	assert.True(t, rep.Cancelled)
	assert.Equal(t, 3, rep.Counts().Skipped)
}

func TestApp_Run_WritesTraceFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "arith.hcl", arithHCL)
	tracePath := filepath.Join(dir, "trace.json")
	a, _ := newTestApp(t, Config{PipelinePath: path, TraceFile: tracePath}, arithModule{})

	_, err := a.Run(context.Background())

	require.NoError(t, err)
	raw, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "stagegrid.Run")
}

func TestApp_WriteGraph(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	path := writeFile(t, dir, "arith.hcl", arithHCL)
	a, _ := newTestApp(t, Config{PipelinePath: path}, arithModule{})
	var buf bytes.Buffer

	// --- Act ---
	err := a.WriteGraph(context.Background(), &buf)

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "digraph stagegrid {")
	assert.Contains(t, buf.String(), `"3[2]" -> "finalize";`)
	assert.NoDirExists(t, filepath.Join(dir, "out"), "rendering must not open the sink")
}

func TestApp_WriteTransforms(t *testing.T) {
	a, _ := newTestApp(t, Config{PipelinePath: "unused.hcl"})
	var buf bytes.Buffer

	require.NoError(t, a.WriteTransforms(&buf))

	for _, name := range []string{"file_read", "fraction", "print", "sha256", "text_stats"} {
		assert.Contains(t, buf.String(), name)
	}
}

func TestApp_HealthMux(t *testing.T) {
	a, _ := newTestApp(t, Config{PipelinePath: "unused.hcl"})
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "go_goroutines")
}

func TestLoaderFor(t *testing.T) {
	for _, p := range []string{"a.hcl", "a.HCL", "a.yaml", "a.yml"} {
		_, err := LoaderFor(p)
		assert.NoError(t, err, p)
	}
	_, err := LoaderFor("a.toml")
	assert.Error(t, err)
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{PipelinePath: "p.hcl"}},
		{name: "missing path", cfg: Config{}, wantErr: true},
		{name: "bad level", cfg: Config{PipelinePath: "p.hcl", LogLevel: "loud"}, wantErr: true},
		{name: "bad format", cfg: Config{PipelinePath: "p.hcl", LogFormat: "xml"}, wantErr: true},
		{name: "bad report format", cfg: Config{PipelinePath: "p.hcl", ReportFormat: "csv"}, wantErr: true},
		{name: "negative workers", cfg: Config{PipelinePath: "p.hcl", Workers: -1}, wantErr: true},
		{name: "bad port", cfg: Config{PipelinePath: "p.hcl", HealthcheckPort: 70000}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewConfig(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "info", c.LogLevel)
			assert.Equal(t, "text", c.LogFormat)
			assert.Equal(t, report.FormatJSON, c.ReportFormat)
		})
	}
}
