package telemetry

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"time"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/engine"
	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/report"
)

// DefaultSampleInterval is how often the Profiler reads process resources.
const DefaultSampleInterval = 250 * time.Millisecond

// RunFunc executes one run, typically (*engine.Engine).Run.
type RunFunc func(ctx context.Context) (*report.RunReport, error)

// Profiler records per-node timings, memoized output sizes and periodic
// resource samples and attaches them to the run report as a report.Profile.
//
// Install it as (part of) the engine's Observer and execute the run through
// Profile.
type Profiler struct {
	engine.NopObserver

	interval time.Duration
	now      func() time.Time
	sample   func(at time.Time) report.ResourceSample
	size     func(v any) int64

	mu        sync.Mutex
	nodes     []report.NodeTiming
	resources []report.ResourceSample
}

// NewProfiler returns a Profiler sampling every interval. A non-positive
// interval disables resource sampling.
func NewProfiler(interval time.Duration) *Profiler {
	return &Profiler{
		interval: interval,
		now:      time.Now,
		sample:   readResources,
		size:     outputSize,
	}
}

// NodeFinished implements engine.Observer.
func (p *Profiler) NodeFinished(_ context.Context, ev engine.NodeEvent) {
	nt := report.NodeTiming{
		Key:        ev.Key,
		Stage:      ev.Stage,
		Dispatched: ev.Dispatched,
		Started:    ev.Started,
		Finished:   ev.Finished,
		Attempts:   ev.Attempts,
		Failed:     ev.Err != nil,
	}
	if ev.Err == nil && ev.Key != nodeid.Terminal {
		nt.Memoized = true
		nt.OutputBytes = p.size(ev.Output)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes = append(p.nodes, nt)
}

// Profile executes run and attaches the collected Profile to its report.
// The run's error is returned unchanged.
func (p *Profiler) Profile(ctx context.Context, run RunFunc) (*report.RunReport, error) {
	logger := ctxlog.FromContext(ctx)
	p.mu.Lock()
	p.nodes = nil
	p.resources = nil
	p.mu.Unlock()

	started := p.now()
	p.record(started)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	if p.interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(p.interval)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case at := <-ticker.C:
					p.record(at)
				}
			}
		}()
	}

	rep, err := run(ctx)

	close(stop)
	wg.Wait()
	finished := p.now()
	p.record(finished)

	if rep == nil {
		return rep, err
	}

	p.mu.Lock()
	rep.Profile = &report.Profile{
		Started:   started,
		Finished:  finished,
		WallClock: finished.Sub(started),
		Nodes:     p.nodes,
		Resources: p.resources,
	}
	p.mu.Unlock()

	cache := rep.Profile.Cache()
	logger.Debug("Profile collected.",
		"nodes", len(rep.Profile.Nodes),
		"cached_entries", cache.Entries,
		"cached_bytes", cache.Bytes,
		"samples", len(rep.Profile.Resources),
		"wall_clock", rep.Profile.WallClock,
		"peak_heap", rep.Profile.PeakHeap(),
	)
	return rep, err
}

func (p *Profiler) record(at time.Time) {
	s := p.sample(at)
	p.mu.Lock()
	p.resources = append(p.resources, s)
	p.mu.Unlock()
}

func readResources(at time.Time) report.ResourceSample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return report.ResourceSample{
		At:         at,
		HeapAlloc:  ms.HeapAlloc,
		HeapInuse:  ms.HeapInuse,
		Goroutines: runtime.NumGoroutine(),
		NumGC:      ms.NumGC,
	}
}

// outputSize estimates the memory a memoized output holds: the length of raw
// bytes or strings, otherwise the length of its JSON encoding. Values that do
// not encode count as zero.
func outputSize(v any) int64 {
	switch v := v.(type) {
	case nil:
		return 0
	case []byte:
		return int64(len(v))
	case string:
		return int64(len(v))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
