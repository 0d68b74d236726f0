package telemetry

import (
	"context"
	"time"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/engine"
	"github.com/specialistvlad/stagegrid/internal/report"
)

// Progress logs "done/total" lines as nodes resolve, at most once per
// interval, plus a final line when the run ends.
type Progress struct {
	engine.NopObserver

	interval time.Duration
	now      func() time.Time

	total   int
	done    int
	lastLog time.Time
}

// NewProgress returns a Progress that logs at most once per interval. Zero
// logs every resolved node.
func NewProgress(interval time.Duration) *Progress {
	return &Progress{interval: interval, now: time.Now}
}

func (p *Progress) RunStarted(_ context.Context, info engine.RunInfo) {
	p.total = info.Nodes
	p.done = 0
	p.lastLog = time.Time{}
}

func (p *Progress) NodeFinished(ctx context.Context, _ engine.NodeEvent) {
	p.step(ctx)
}

func (p *Progress) NodeSkipped(ctx context.Context, _ engine.NodeEvent) {
	p.step(ctx)
}

func (p *Progress) RunFinished(ctx context.Context, _ *report.RunReport) {
	p.log(ctx)
}

func (p *Progress) step(ctx context.Context) {
	p.done++
	now := p.now()
	if !p.lastLog.IsZero() && now.Sub(p.lastLog) < p.interval {
		return
	}
	p.lastLog = now
	p.log(ctx)
}

func (p *Progress) log(ctx context.Context) {
	percent := 100.0
	if p.total > 0 {
		percent = float64(p.done) * 100 / float64(p.total)
	}
	ctxlog.FromContext(ctx).Info("⏳ Progress.", "done", p.done, "total", p.total, "percent", int(percent))
}
