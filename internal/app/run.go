package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/engine"
	"github.com/specialistvlad/stagegrid/internal/inmemorystore"
	"github.com/specialistvlad/stagegrid/internal/report"
	"github.com/specialistvlad/stagegrid/internal/telemetry"
	"github.com/specialistvlad/stagegrid/internal/telemetry/socketfeed"
)

// Run loads the pipeline, executes it and writes the report. The report is
// returned whenever the run started, even alongside an error. Errors wrap
// ErrInvalidPipeline when the run never started.
func (a *App) Run(ctx context.Context) (*report.RunReport, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.healthCheckServer(); err != nil {
		return nil, err
	}
	defer a.closeHealthCheckServer()

	pl, err := a.prepare(ctx, true)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := pl.close(); err != nil {
			a.logger.Error("Failed to close sink.", "error", err)
		}
	}()

	observers, cleanup, err := a.observers(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	profiler := telemetry.NewProfiler(a.config.SampleInterval)
	workers := pl.pipeline.Workers
	if a.config.Workers > 0 {
		workers = a.config.Workers
	}
	eng := engine.New(pl.graph, inmemorystore.New(pl.graph.Keys()...), engine.Options{
		Pipeline: pl.pipeline.Name,
		Workers:  workers,
		Serial:   a.config.Serial || pl.pipeline.Serial,
		Observer: telemetry.NewMulti(append([]engine.Observer{profiler}, observers...)...),
	})

	rep, runErr := profiler.Profile(ctx, eng.Run)
	if rep == nil {
		return nil, runErr
	}

	if err := rep.WriteTable(a.outW); err != nil {
		a.logger.Error("Failed to print report.", "error", err)
	}
	if a.config.ReportPath != "" {
		if err := writeReport(a.config.ReportPath, a.config.ReportFormat, rep); err != nil {
			return rep, err
		}
		a.logger.Info("📝 Report written.", "path", a.config.ReportPath, "format", a.config.ReportFormat)
	}

	a.logger.Debug("App.Run method finished.")
	return rep, runErr
}

// observers builds the optional observers from the configuration. cleanup
// flushes and closes them and is always non-nil.
func (a *App) observers(ctx context.Context) ([]engine.Observer, func(), error) {
	logger := ctxlog.FromContext(ctx)
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	observers := []engine.Observer{telemetry.NewMetrics(a.metrics)}
	if a.config.ProgressInterval > 0 {
		observers = append(observers, telemetry.NewProgress(a.config.ProgressInterval))
	}

	if a.config.TraceFile != "" {
		f, err := os.Create(a.config.TraceFile)
		if err != nil {
			return nil, cleanup, fmt.Errorf("create trace file: %w", err)
		}
		tp, err := telemetry.SetupTracing(f)
		if err != nil {
			f.Close()
			return nil, cleanup, err
		}
		closers = append(closers, func() {
			if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Error("Failed to flush traces.", "error", err)
			}
			f.Close()
		})
		observers = append(observers, telemetry.NewTracer(ctx, tp, nil))
	}

	if a.config.FeedURL != "" {
		feed, err := socketfeed.Dial(ctx, socketfeed.Config{URL: a.config.FeedURL})
		if err != nil {
			logger.Warn("Event feed unavailable, continuing without it.", "url", a.config.FeedURL, "error", err)
		} else {
			closers = append(closers, func() { feed.Close() })
			observers = append(observers, feed)
		}
	}
	return observers, cleanup, nil
}

func writeReport(path string, format report.Format, rep *report.RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := rep.Write(f, format); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// WriteGraph renders the pipeline's task graph in DOT format without running
// it.
func (a *App) WriteGraph(ctx context.Context, w io.Writer) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	pl, err := a.prepare(ctx, false)
	if err != nil {
		return err
	}
	return pl.graph.WriteDOT(w)
}

// WriteTransforms lists the registered transforms as a table.
func (a *App) WriteTransforms(w io.Writer) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Transform", "Description"})
	for _, name := range a.registry.Names() {
		tr, _ := a.registry.Lookup(name)
		t.AppendRow(table.Row{name, tr.Description})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
