// Package apptest runs whole pipelines through app.App for integration tests.
package apptest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/report"
	"github.com/specialistvlad/stagegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Dir       string
	LogOutput string
	Report    *report.RunReport
	Err       error
	App       *app.App
}

// Path resolves name inside the run's temporary directory.
func (r *HarnessResult) Path(name string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(name))
}

// RunPipeline writes files into a temporary directory and runs the pipeline
// file named by cfg.PipelinePath (relative to that directory) with a
// background context.
func RunPipeline(t *testing.T, files map[string]string, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunPipelineWithContext(context.Background(), t, files, cfg, modules...)
}

// RunPipelineWithContext is RunPipeline with a caller supplied context.
func RunPipelineWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()

	// 1. Materialize the test files, creating subdirectories as needed.
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	// 2. Configure the app against the temporary directory.
	cfg.PipelinePath = filepath.Join(dir, cfg.PipelinePath)
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	if cfg.ReportPath != "" {
		cfg.ReportPath = filepath.Join(dir, cfg.ReportPath)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("STAGEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	// 3. Run.
	testApp := app.NewApp(logBuffer, appConfig, nil, modules...)
	rep, runErr := testApp.Run(ctx)

	return &HarnessResult{
		Dir:       dir,
		LogOutput: logBuffer.String(),
		Report:    rep,
		Err:       runErr,
		App:       testApp,
	}
}
