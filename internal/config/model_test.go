package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/stagegrid/internal/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPipeline() *Pipeline {
	return &Pipeline{
		Name:   "demo",
		Items:  ItemSource{Values: []any{1, 2}},
		Stages: []StageSpec{{Name: "double", Transform: "double"}},
		Sink:   &SinkSpec{Kind: SinkLog},
	}
}

func TestPipeline_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(p *Pipeline)
		wantErr string
	}{
		{name: "valid", mutate: func(*Pipeline) {}},
		{name: "negative workers", mutate: func(p *Pipeline) { p.Workers = -1 }, wantErr: "workers"},
		{name: "dir and values", mutate: func(p *Pipeline) { p.Items.Dir = "data" }, wantErr: "mutually exclusive"},
		{name: "bad pattern", mutate: func(p *Pipeline) { p.Items.Patterns = []string{"["} }, wantErr: "invalid pattern"},
		{name: "no stages", mutate: func(p *Pipeline) { p.Stages = nil }, wantErr: "at least one stage"},
		{name: "missing transform", mutate: func(p *Pipeline) { p.Stages[0].Transform = "" }, wantErr: "transform is required"},
		{name: "negative retries", mutate: func(p *Pipeline) { p.Stages[0].Retries = -2 }, wantErr: "retries"},
		{name: "negative timeout", mutate: func(p *Pipeline) { p.Stages[0].Timeout = -time.Second }, wantErr: "timeout"},
		{name: "file sink without dir", mutate: func(p *Pipeline) { p.Sink = &SinkSpec{Kind: SinkFile} }, wantErr: "dir is required"},
		{name: "badger sink without path", mutate: func(p *Pipeline) { p.Sink = &SinkSpec{Kind: SinkBadger} }, wantErr: "path is required"},
		{name: "gcs sink without bucket", mutate: func(p *Pipeline) { p.Sink = &SinkSpec{Kind: SinkGCS} }, wantErr: "bucket is required"},
		{name: "unknown sink", mutate: func(p *Pipeline) { p.Sink = &SinkSpec{Kind: "ftp"} }, wantErr: "unknown sink kind"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := validPipeline()
			tc.mutate(p)
			err := p.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestPipeline_ResolvePaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(base, "elsewhere")
	p := &Pipeline{
		Items: ItemSource{Dir: "data"},
		Sink:  &SinkSpec{Kind: SinkBadger, Dir: "out", Path: abs},
	}

	p.ResolvePaths(base)

	assert.Equal(t, filepath.Join(base, "data"), p.Items.Dir)
	assert.Equal(t, filepath.Join(base, "out"), p.Sink.Dir)
	assert.Equal(t, abs, p.Sink.Path, "absolute paths are kept")
}

func TestItemSource_Enumerator(t *testing.T) {
	dir := ItemSource{Dir: "/data", Patterns: []string{"*.tif"}, Recursive: true}
	assert.Equal(t, &item.DirEnumerator{Root: "/data", Patterns: []string{"*.tif"}, Recursive: true}, dir.Enumerator())

	items, err := ItemSource{Values: []any{"a", 2}}.Enumerator().Enumerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []item.Item{{ID: "a", Source: "a"}, {ID: "2", Source: 2}}, items)
}
