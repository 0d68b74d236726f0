package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/graph"
	"github.com/specialistvlad/stagegrid/internal/hcl"
	"github.com/specialistvlad/stagegrid/internal/sink"
	"github.com/specialistvlad/stagegrid/internal/yamlcfg"
)

// ErrInvalidPipeline marks errors caused by the pipeline file or its
// references rather than by the run itself.
var ErrInvalidPipeline = errors.New("invalid pipeline")

// plan is a loaded pipeline ready to execute.
type plan struct {
	pipeline *config.Pipeline
	graph    *graph.Graph
	sink     sink.Sink
}

// close releases the sink, if any.
func (p *plan) close() error {
	if p.sink == nil {
		return nil
	}
	return p.sink.Close()
}

// LoaderFor picks a pipeline loader by file extension.
func LoaderFor(path string) (config.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hcl.NewLoader(), nil
	case ".yaml", ".yml":
		return yamlcfg.NewLoader(), nil
	default:
		return nil, fmt.Errorf("unsupported pipeline file %q: want .hcl, .yaml or .yml", path)
	}
}

// prepare loads the pipeline, resolves its stages, enumerates items and
// builds the graph. With withSink false no sink is opened, which keeps
// graph rendering free of side effects.
func (a *App) prepare(ctx context.Context, withSink bool) (*plan, error) {
	logger := ctxlog.FromContext(ctx)
	invalid := func(err error) error { return fmt.Errorf("%w: %w", ErrInvalidPipeline, err) }

	loader := a.loader
	if loader == nil {
		var err error
		if loader, err = LoaderFor(a.config.PipelinePath); err != nil {
			return nil, invalid(err)
		}
	}
	p, err := loader.Load(ctx, a.config.PipelinePath)
	if err != nil {
		return nil, invalid(err)
	}
	logger.Debug("Pipeline loaded.", "name", p.Name, "stages", len(p.Stages))

	stages, err := a.registry.Stages(ctx, p.Stages)
	if err != nil {
		return nil, invalid(err)
	}

	items, err := p.Items.Enumerator().Enumerate(ctx)
	if err != nil {
		return nil, invalid(fmt.Errorf("enumerating items: %w", err))
	}
	logger.Debug("Items enumerated.", "count", len(items))

	pl := &plan{pipeline: p}
	if p.Sink != nil {
		// Graph rendering only needs the stage name; its transform never runs.
		var s sink.Sink = sink.NewLog(logger)
		if withSink {
			if s, err = sink.Open(ctx, p.Sink); err != nil {
				return nil, invalid(fmt.Errorf("opening sink: %w", err))
			}
			pl.sink = s
		}
		stages = append(stages, sink.AsStage(sink.StageName, s))
	}

	g, err := graph.Build(ctx, stages, items)
	if err != nil {
		pl.close()
		return nil, invalid(err)
	}
	pl.graph = g
	logger.Info("📦 Pipeline prepared.", "pipeline", p.Name, "items", len(items), "stages", len(stages), "nodes", g.Len())
	return pl, nil
}
