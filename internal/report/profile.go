package report

import (
	"time"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
)

// Profile is the aggregate timing of a run.
type Profile struct {
	Started   time.Time        `json:"started"`
	Finished  time.Time        `json:"finished"`
	WallClock time.Duration    `json:"wall_clock_ns"`
	Nodes     []NodeTiming     `json:"nodes"`
	Resources []ResourceSample `json:"resources,omitempty"`
}

// NodeTiming is the recorded lifecycle of one executed node. Memoized is set
// when the node's output was published to the memo, and OutputBytes is the
// estimated size of that output.
type NodeTiming struct {
	Key         nodeid.Key `json:"key"`
	Stage       string     `json:"stage"`
	Dispatched  time.Time  `json:"dispatched"`
	Started     time.Time  `json:"started"`
	Finished    time.Time  `json:"finished"`
	Attempts    int        `json:"attempts"`
	Failed      bool       `json:"failed,omitempty"`
	Memoized    bool       `json:"memoized,omitempty"`
	OutputBytes int64      `json:"output_bytes,omitempty"`
}

// Duration is the time spent inside the transform.
func (n NodeTiming) Duration() time.Duration {
	return n.Finished.Sub(n.Started)
}

// ResourceSample is a point-in-time reading of process resources.
type ResourceSample struct {
	At         time.Time `json:"at"`
	HeapAlloc  uint64    `json:"heap_alloc"`
	HeapInuse  uint64    `json:"heap_inuse"`
	Goroutines int       `json:"goroutines"`
	NumGC      uint32    `json:"num_gc"`
}

// StageSummary aggregates node timings of one stage.
type StageSummary struct {
	Stage       string
	Nodes       int
	Total       time.Duration
	Max         time.Duration
	OutputBytes int64
}

// CacheSummary describes what the memo held at the end of a run.
type CacheSummary struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// Mean is the average node duration of the stage.
func (s StageSummary) Mean() time.Duration {
	if s.Nodes == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Nodes)
}

// ByStage groups node timings by stage, in the order of stages.
func (p *Profile) ByStage(stages []string) []StageSummary {
	idx := make(map[string]int, len(stages))
	out := make([]StageSummary, len(stages))
	for i, name := range stages {
		idx[name] = i
		out[i].Stage = name
	}
	for _, n := range p.Nodes {
		i, ok := idx[n.Stage]
		if !ok {
			continue
		}
		d := n.Duration()
		out[i].Nodes++
		out[i].Total += d
		if d > out[i].Max {
			out[i].Max = d
		}
		out[i].OutputBytes += n.OutputBytes
	}
	return out
}

// Cache counts the memoized node outputs and their estimated total size.
func (p *Profile) Cache() CacheSummary {
	var c CacheSummary
	for _, n := range p.Nodes {
		if n.Memoized {
			c.Entries++
			c.Bytes += n.OutputBytes
		}
	}
	return c
}

// PeakHeap is the largest sampled heap allocation.
func (p *Profile) PeakHeap() uint64 {
	var peak uint64
	for _, s := range p.Resources {
		peak = max(peak, s.HeapAlloc)
	}
	return peak
}
