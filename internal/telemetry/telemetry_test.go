package telemetry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/engine"
	"github.com/specialistvlad/stagegrid/internal/graph"
	"github.com/specialistvlad/stagegrid/internal/item"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/report"
	"github.com/specialistvlad/stagegrid/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var errOdd = errors.New("odd input")

func double(_ context.Context, in stage.Input) (any, error) {
	return in.Value.(int) * 2, nil
}

func failOnOdd(_ context.Context, in stage.Input) (any, error) {
	if in.Item.ID == "3" {
		return nil, errOdd
	}
	return in.Value, nil
}

// newEngine builds a two-stage engine over items 1..3 where item "3" fails
// at the second stage.
func newEngine(t *testing.T, obs engine.Observer) *engine.Engine {
	t.Helper()
	stages := []stage.Stage{
		{Name: "double", Transform: double},
		{Name: "check", Transform: failOnOdd},
	}
	g, err := graph.Build(context.Background(), stages, item.FromValues(1, 2, 3))
	require.NoError(t, err)
	return engine.New(g, nil, engine.Options{Pipeline: "test", Workers: 2, Observer: obs})
}

type countingObserver struct {
	started, dispatched, finished, skipped, done int
}

func (c *countingObserver) RunStarted(context.Context, engine.RunInfo) { c.started++ }
func (c *countingObserver) NodeDispatched(context.Context, engine.NodeEvent) { c.dispatched++ }
func (c *countingObserver) NodeFinished(context.Context, engine.NodeEvent) { c.finished++ }
func (c *countingObserver) NodeSkipped(context.Context, engine.NodeEvent) { c.skipped++ }
func (c *countingObserver) RunFinished(context.Context, *report.RunReport) { c.done++ }

func TestMulti_FansOutAndDropsNil(t *testing.T) {
	// Arrange
	a, b := &countingObserver{}, &countingObserver{}
	m := NewMulti(a, nil, b)
	eng := newEngine(t, m)

	// Act
	_, err := eng.Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Len(t, m, 2)
	for _, c := range []*countingObserver{a, b} {
		assert.Equal(t, 1, c.started)
		assert.Equal(t, 1, c.done)
		// 6 stage nodes plus the terminal.
		assert.Equal(t, 7, c.dispatched)
		assert.Equal(t, 7, c.finished)
		assert.Equal(t, 0, c.skipped)
	}
}

func TestProfiler_AttachesProfile(t *testing.T) {
	// Arrange
	p := NewProfiler(time.Millisecond)
	eng := newEngine(t, p)

	// Act
	rep, err := p.Profile(context.Background(), eng.Run)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, rep.Profile)
	prof := rep.Profile
	assert.Len(t, prof.Nodes, 7)
	assert.GreaterOrEqual(t, len(prof.Resources), 2, "start and end samples are always taken")
	assert.False(t, prof.Finished.Before(prof.Started))
	assert.Equal(t, prof.Finished.Sub(prof.Started), prof.WallClock)
	assert.NotZero(t, prof.PeakHeap())

	failed := 0
	for _, n := range prof.Nodes {
		assert.False(t, n.Started.Before(n.Dispatched), "node %s", n.Key)
		assert.False(t, n.Finished.Before(n.Started), "node %s", n.Key)
		if n.Failed {
			failed++
			assert.Equal(t, nodeid.Key{Item: "3", Stage: 1}, n.Key)
		}
	}
	assert.Equal(t, 1, failed)

	summary := prof.ByStage(rep.Stages)
	require.Len(t, summary, 2)
	assert.Equal(t, 3, summary[0].Nodes)
	assert.Equal(t, 3, summary[1].Nodes)
}

func TestProfiler_RecordsMemoizedOutputs(t *testing.T) {
	// Arrange
	p := NewProfiler(0)
	eng := newEngine(t, p)

	// Act
	rep, err := p.Profile(context.Background(), eng.Run)

	// Assert
	require.NoError(t, err)
	// Five stage outputs were published: 2, 4 and 6 by double, 2 and 4 by
	// check. The failed node and the terminal hold nothing.
	assert.Equal(t, report.CacheSummary{Entries: 5, Bytes: 5}, rep.Profile.Cache())
	for _, n := range rep.Profile.Nodes {
		if n.Key == nodeid.Terminal || n.Failed {
			assert.False(t, n.Memoized, "node %s", n.Key)
			assert.Zero(t, n.OutputBytes, "node %s", n.Key)
		}
	}

	summary := rep.Profile.ByStage(rep.Stages)
	assert.Equal(t, int64(3), summary[0].OutputBytes)
	assert.Equal(t, int64(2), summary[1].OutputBytes)
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{name: "nil", in: nil, want: 0},
		{name: "bytes", in: []byte("abcd"), want: 4},
		{name: "string", in: "héllo", want: 6},
		{name: "json encoded", in: map[string]int{"a": 1}, want: int64(len(`{"a":1}`))},
		{name: "not encodable", in: make(chan int), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputSize(tt.in))
		})
	}
}

func TestProfiler_DoesNotChangeOutcomes(t *testing.T) {
	// Arrange
	plain, err := newEngine(t, nil).Run(context.Background())
	require.NoError(t, err)
	p := NewProfiler(0)

	// Act
	profiled, err := p.Profile(context.Background(), newEngine(t, p).Run)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, plain.Counts(), profiled.Counts())
	assert.Equal(t, plain.Outputs(), profiled.Outputs())
	assert.Len(t, profiled.Profile.Resources, 2)
}

func TestProfiler_PassesThroughRunError(t *testing.T) {
	p := NewProfiler(0)
	boom := errors.New("boom")

	rep, err := p.Profile(context.Background(), func(context.Context) (*report.RunReport, error) {
		return nil, boom
	})

	assert.Nil(t, rep)
	assert.ErrorIs(t, err, boom)
}

func TestProgress_LogsUntilDone(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	p := NewProgress(0)
	eng := newEngine(t, p)

	// Act
	_, err := eng.Run(ctx)

	// Assert
	require.NoError(t, err)
	lines := strings.Count(buf.String(), "Progress.")
	assert.Equal(t, 8, lines, "one per resolved node plus the final line")
	assert.Contains(t, buf.String(), "done=7 total=7 percent=100")
}

func TestProgress_Throttles(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	p := NewProgress(time.Hour)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	// Act
	p.RunStarted(ctx, engine.RunInfo{Nodes: 4})
	for range 4 {
		p.NodeFinished(ctx, engine.NodeEvent{})
	}
	p.RunFinished(ctx, &report.RunReport{})

	// Assert
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "Progress."))
	assert.Contains(t, out, "done=1 total=4 percent=25")
	assert.Contains(t, out, "done=4 total=4 percent=100")
}

func TestTracer_SpanPerNode(t *testing.T) {
	// Arrange
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tr := NewTracer(context.Background(), tp, noop.NewMeterProvider())
	eng := newEngine(t, tr)

	// Act
	rep, err := eng.Run(context.Background())

	// Assert
	require.NoError(t, err)
	spans := sr.Ended()
	require.Len(t, spans, 8, "seven node spans and the run span")

	var run sdktrace.ReadOnlySpan
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		byName[s.Name()] = s
		if s.Name() == "stagegrid.Run" {
			run = s
		}
	}
	require.NotNil(t, run)
	assert.True(t, rep.Started.Equal(run.StartTime()))
	assert.True(t, rep.Finished.Equal(run.EndTime()))

	failed, ok := byName["3[1]"]
	require.True(t, ok)
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, run.SpanContext().SpanID(), failed.Parent().SpanID())
	assert.Equal(t, codes.Ok, byName["1[0]"].Status().Code)
	_, ok = byName["finalize"]
	assert.True(t, ok)
}

func TestTracer_RecordsSkippedAsEvents(t *testing.T) {
	// Arrange
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tr := NewTracer(context.Background(), tp, noop.NewMeterProvider())
	ctx := context.Background()
	now := time.Now()

	// Act
	tr.RunStarted(ctx, engine.RunInfo{RunID: "r", Started: now})
	tr.NodeSkipped(ctx, engine.NodeEvent{Key: nodeid.Key{Item: "a", Stage: 1}, Err: errOdd})
	tr.RunFinished(ctx, &report.RunReport{Started: now, Finished: now.Add(time.Second), Cancelled: true})

	// Assert
	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "node skipped", spans[0].Events()[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestMetrics_CountsOutcomes(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	eng := newEngine(t, m)

	// Act
	_, err := eng.Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.nodes.WithLabelValues("double", "completed")))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.nodes.WithLabelValues("check", "completed")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.nodes.WithLabelValues("check", "failed")))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.items.WithLabelValues(string(report.StateCompleted))))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.items.WithLabelValues(string(report.StateFailed))))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.runs.WithLabelValues("ok")))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(m.inflight))
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestSetupTracing_WritesSpans(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	tp, err := SetupTracing(&buf)
	require.NoError(t, err)
	tr := NewTracer(context.Background(), tp, noop.NewMeterProvider())

	// Act
	_, err = newEngine(t, tr).Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, tp.Shutdown(context.Background()))

	// Assert
	assert.Contains(t, buf.String(), `"Name": "stagegrid.Run"`)
	assert.Contains(t, buf.String(), fmt.Sprintf("%q", ServiceName))
}
