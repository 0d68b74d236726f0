package telemetry

import (
	"context"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/engine"
	"github.com/specialistvlad/stagegrid/internal/report"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/specialistvlad/stagegrid"

// Tracer emits one OpenTelemetry span per run and one child span per executed
// node, stamped with the node's real start and end times, and records node
// durations and outcomes as OTel metrics.
type Tracer struct {
	engine.NopObserver

	tracer trace.Tracer

	nodeLatency   metric.Float64Histogram
	nodeOutcomes  metric.Int64Counter
	nodesInflight metric.Int64UpDownCounter
	runLatency    metric.Float64Histogram

	runCtx  context.Context
	runSpan trace.Span
}

// NewTracer builds a Tracer. Nil providers fall back to the otel globals.
// Instruments that fail to register are logged and left as no-ops.
func NewTracer(ctx context.Context, tp trace.TracerProvider, mp metric.MeterProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	t := &Tracer{tracer: tp.Tracer(instrumentationName)}

	var initErrors []string
	var err error
	t.nodeLatency, err = meter.Float64Histogram("stagegrid_node_duration_seconds",
		metric.WithDescription("Time spent inside a stage transform"),
		metric.WithUnit("s"),
	)
	if err != nil {
		initErrors = append(initErrors, "node_latency: "+err.Error())
	}
	t.nodeOutcomes, err = meter.Int64Counter("stagegrid_node_outcomes_total",
		metric.WithDescription("Resolved nodes by stage and outcome"),
	)
	if err != nil {
		initErrors = append(initErrors, "node_outcomes: "+err.Error())
	}
	t.nodesInflight, err = meter.Int64UpDownCounter("stagegrid_nodes_inflight",
		metric.WithDescription("Nodes currently dispatched to a worker"),
	)
	if err != nil {
		initErrors = append(initErrors, "nodes_inflight: "+err.Error())
	}
	t.runLatency, err = meter.Float64Histogram("stagegrid_run_duration_seconds",
		metric.WithDescription("Wall clock time of a run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		initErrors = append(initErrors, "run_latency: "+err.Error())
	}
	if len(initErrors) > 0 {
		ctxlog.FromContext(ctx).Error("Failed to initialize some metrics.", "errors", initErrors)
	}
	return t
}

func (t *Tracer) RunStarted(ctx context.Context, info engine.RunInfo) {
	t.runCtx, t.runSpan = t.tracer.Start(ctx, "stagegrid.Run",
		trace.WithTimestamp(info.Started),
		trace.WithAttributes(
			attribute.String("run.id", info.RunID),
			attribute.String("pipeline", info.Pipeline),
			attribute.Int("items", info.Items),
			attribute.Int("nodes", info.Nodes),
			attribute.Int("workers", info.Workers),
		),
	)
}

func (t *Tracer) NodeDispatched(ctx context.Context, ev engine.NodeEvent) {
	if t.nodesInflight != nil {
		t.nodesInflight.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", ev.Stage)))
	}
}

func (t *Tracer) NodeFinished(ctx context.Context, ev engine.NodeEvent) {
	stageAttr := attribute.String("stage", ev.Stage)
	outcome := "completed"
	if ev.Err != nil {
		outcome = "failed"
	}

	if t.runCtx != nil {
		_, span := t.tracer.Start(t.runCtx, ev.Key.String(),
			trace.WithTimestamp(ev.Started),
			trace.WithAttributes(
				attribute.String("node.id", ev.Key.String()),
				stageAttr,
				attribute.Int("attempts", ev.Attempts),
				attribute.Int64("queue_wait_ms", ev.Started.Sub(ev.Dispatched).Milliseconds()),
			),
		)
		if ev.Err != nil {
			span.RecordError(ev.Err)
			span.SetStatus(codes.Error, ev.Err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End(trace.WithTimestamp(ev.Finished))
	}

	if t.nodesInflight != nil {
		t.nodesInflight.Add(ctx, -1, metric.WithAttributes(stageAttr))
	}
	if t.nodeLatency != nil {
		t.nodeLatency.Record(ctx, ev.Finished.Sub(ev.Started).Seconds(), metric.WithAttributes(stageAttr))
	}
	if t.nodeOutcomes != nil {
		t.nodeOutcomes.Add(ctx, 1, metric.WithAttributes(stageAttr, attribute.String("outcome", outcome)))
	}
}

func (t *Tracer) NodeSkipped(ctx context.Context, ev engine.NodeEvent) {
	if t.runSpan != nil {
		attrs := []attribute.KeyValue{attribute.String("node.id", ev.Key.String())}
		if ev.Err != nil {
			attrs = append(attrs, attribute.String("cause", ev.Err.Error()))
		}
		t.runSpan.AddEvent("node skipped", trace.WithAttributes(attrs...))
	}
	if t.nodeOutcomes != nil {
		t.nodeOutcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", ev.Stage),
			attribute.String("outcome", "skipped"),
		))
	}
}

func (t *Tracer) RunFinished(ctx context.Context, r *report.RunReport) {
	if t.runLatency != nil {
		t.runLatency.Record(ctx, r.Finished.Sub(r.Started).Seconds())
	}
	if t.runSpan == nil {
		return
	}
	c := r.Counts()
	t.runSpan.SetAttributes(
		attribute.Int("items.completed", c.Completed),
		attribute.Int("items.failed", c.Failed),
		attribute.Int("items.skipped", c.Skipped),
		attribute.Bool("cancelled", r.Cancelled),
		attribute.Bool("aborted", r.Aborted),
	)
	switch {
	case r.Aborted:
		t.runSpan.SetStatus(codes.Error, "run aborted")
	case r.Cancelled:
		t.runSpan.SetStatus(codes.Error, "run cancelled")
	case r.FinalizeErr != nil:
		t.runSpan.SetStatus(codes.Error, r.FinalizeErr.Error())
	default:
		t.runSpan.SetStatus(codes.Ok, "")
	}
	t.runSpan.End(trace.WithTimestamp(r.Finished))
	t.runSpan = nil
	t.runCtx = nil
}
