// Package sink persists the final output of each item's chain.
//
// A Sink is plugged into the graph as the last stage of every chain via
// AsStage, so persistence follows the same dependency and failure rules as
// any other stage: a failed upstream stage means nothing is written for that
// item, and a failed write is a StageFailure of the sink stage.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/stage"
)

// Record is one item's final output.
type Record struct {
	ItemID string
	Output any
}

// Sink persists records. Persist is called concurrently from workers.
type Sink interface {
	Persist(ctx context.Context, rec Record) error
	Close() error
}

// StageName is the stage name AsStage uses when none is given.
const StageName = "save"

// AsStage adapts s into a stage that persists its input and passes it
// through unchanged.
func AsStage(name string, s Sink) stage.Stage {
	if name == "" {
		name = StageName
	}
	return stage.Stage{
		Name: name,
		Transform: func(ctx context.Context, in stage.Input) (any, error) {
			if err := s.Persist(ctx, Record{ItemID: in.Item.ID, Output: in.Value}); err != nil {
				return nil, err
			}
			return in.Value, nil
		},
	}
}

// Open builds the sink described by spec. A nil spec yields a nil sink.
func Open(ctx context.Context, spec *config.SinkSpec) (Sink, error) {
	if spec == nil {
		return nil, nil
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Opening sink.", "kind", spec.Kind)

	switch spec.Kind {
	case config.SinkFile:
		return NewJSONFile(spec.Dir)
	case config.SinkBadger:
		return NewBadger(BadgerConfig{Path: spec.Path, Logger: logger})
	case config.SinkGCS:
		return NewGCS(ctx, spec.Bucket, spec.Prefix)
	case config.SinkLog:
		return NewLog(logger), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", spec.Kind)
	}
}

// encode renders v as JSON with sorted object keys and four-space indent.
// Struct values are normalized through a generic decode so their keys are
// sorted too.
func encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("normalizing output: %w", err)
	}
	out, err := json.MarshalIndent(generic, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	return append(out, '\n'), nil
}

// objectName turns an item id into a single path element. The escape is
// reversible, so distinct ids never share an object.
func objectName(itemID string) string {
	return url.PathEscape(itemID) + ".json"
}
