package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/stagegrid/internal/app"
	"github.com/specialistvlad/stagegrid/internal/registry"
	"github.com/specialistvlad/stagegrid/internal/report"
	"github.com/specialistvlad/stagegrid/internal/telemetry"
)

// Exit codes.
const (
	ExitRunFailed   = 1
	ExitUsage       = 2
	ExitItemsFailed = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

type globalFlags struct {
	logLevel  string
	logFormat string
}

type runFlags struct {
	workers          int
	serial           bool
	healthcheckPort  int
	reportPath       string
	reportFormat     string
	traceFile        string
	sampleInterval   time.Duration
	progressInterval time.Duration
	feedURL          string
	strict           bool
}

// NewRootCmd builds the stagegrid command tree. Output (logs, tables, DOT)
// goes to outW. No modules means app.CoreModules.
func NewRootCmd(outW io.Writer, modules ...registry.Module) *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "stagegrid",
		Short: "Run a fixed stage sequence over many items as a task graph",
		Long: `stagegrid applies an ordered list of stages to every item of a collection,
running independent items concurrently and memoizing every intermediate result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&g.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(
		newRunCmd(outW, &g, modules),
		newGraphCmd(outW, &g, modules),
		newTransformsCmd(outW, &g, modules),
	)
	return root
}

func pipelineArg(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageError(fmt.Errorf("expected exactly one pipeline file, got %d arguments", len(args)))
	}
	return nil
}

func newRunCmd(outW io.Writer, g *globalFlags, modules []registry.Module) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run PIPELINE",
		Short: "Execute a pipeline file (.hcl, .yaml or .yml)",
		Args:  pipelineArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.NewConfig(app.Config{
				PipelinePath:     args[0],
				Workers:          f.workers,
				Serial:           f.serial,
				LogFormat:        g.logFormat,
				LogLevel:         g.logLevel,
				HealthcheckPort:  f.healthcheckPort,
				ReportPath:       f.reportPath,
				ReportFormat:     report.Format(f.reportFormat),
				TraceFile:        f.traceFile,
				SampleInterval:   f.sampleInterval,
				ProgressInterval: f.progressInterval,
				FeedURL:          f.feedURL,
			})
			if err != nil {
				return usageError(err)
			}

			a := app.NewApp(outW, cfg, nil, modules...)
			rep, err := a.Run(cmd.Context())
			switch {
			case errors.Is(err, app.ErrInvalidPipeline):
				return usageError(err)
			case err != nil:
				return &ExitError{Code: ExitRunFailed, Message: err.Error()}
			case f.strict && !rep.Succeeded():
				c := rep.Counts()
				return &ExitError{
					Code:    ExitItemsFailed,
					Message: fmt.Sprintf("%d of %d items did not complete", c.Failed+c.Skipped, c.Total()),
				}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.workers, "workers", "w", 0, "Number of concurrent workers. 0 uses the pipeline value or the CPU count.")
	fl.BoolVar(&f.serial, "serial", false, "Run one node at a time in a deterministic order.")
	fl.IntVar(&f.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	fl.StringVar(&f.reportPath, "report", "", "Write the run report to this file.")
	fl.StringVar(&f.reportFormat, "report-format", string(report.FormatJSON), "Report file format. Options: 'json' or 'table'.")
	fl.StringVar(&f.traceFile, "trace-file", "", "Export OpenTelemetry spans as JSON to this file.")
	fl.DurationVar(&f.sampleInterval, "sample-interval", telemetry.DefaultSampleInterval, "Resource sampling interval. 0 disables sampling.")
	fl.DurationVar(&f.progressInterval, "progress-interval", 0, "Log progress at most this often. 0 disables progress lines.")
	fl.StringVar(&f.feedURL, "feed-url", "", "Stream run events to this socket.io endpoint.")
	fl.BoolVar(&f.strict, "strict", false, "Exit with code 3 when any item did not complete.")
	return cmd
}

func newGraphCmd(outW io.Writer, g *globalFlags, modules []registry.Module) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "graph PIPELINE",
		Short: "Render the pipeline's task graph in Graphviz DOT format",
		Args:  pipelineArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.NewConfig(app.Config{PipelinePath: args[0], LogFormat: g.logFormat, LogLevel: g.logLevel})
			if err != nil {
				return usageError(err)
			}
			w := outW
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return &ExitError{Code: ExitRunFailed, Message: err.Error()}
				}
				defer file.Close()
				w = file
			}
			if err := app.NewApp(outW, cfg, nil, modules...).WriteGraph(cmd.Context(), w); err != nil {
				if errors.Is(err, app.ErrInvalidPipeline) {
					return usageError(err)
				}
				return &ExitError{Code: ExitRunFailed, Message: err.Error()}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the DOT graph to this file instead of stdout.")
	return cmd
}

func newTransformsCmd(outW io.Writer, g *globalFlags, modules []registry.Module) *cobra.Command {
	return &cobra.Command{
		Use:   "transforms",
		Short: "List the transforms available to pipelines",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg := &app.Config{LogFormat: g.logFormat, LogLevel: g.logLevel}
			return app.NewApp(outW, cfg, nil, modules...).WriteTransforms(outW)
		},
	}
}

// Execute runs the command tree with args. Every returned error is an
// *ExitError.
func Execute(ctx context.Context, outW io.Writer, args []string, modules ...registry.Module) error {
	root := NewRootCmd(outW, modules...)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return usageError(err)
}
