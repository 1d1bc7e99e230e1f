package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/qcacontra/internal/model"
	"github.com/ppiankov/qcacontra/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	fail  map[string]bool
	delay time.Duration
	calls int32
}

func (s *stubAnalyzer) Run(ctx context.Context, a pipeline.Analysis) (*model.Report, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fail[a.Name] {
		return nil, errors.New("analysis error")
	}
	return &model.Report{Name: a.Name, RowClass: a.Rows.String()}, nil
}

func analyses(names ...string) []pipeline.Analysis {
	out := make([]pipeline.Analysis, len(names))
	for i, n := range names {
		out[i] = pipeline.Analysis{Name: n, Rows: model.RowsBoth}
	}
	return out
}

func TestBatchProcessor_KeepsInputOrder(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	processor := NewBatchProcessor(&stubAnalyzer{delay: time.Millisecond}, 3, nil)

	results := processor.ProcessAnalyses(context.Background(), analyses(names...))

	require.Len(t, results, len(names))
	for i, r := range results {
		require.NoError(t, r.Error)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, names[i], r.Report.Name)
	}
}

func TestBatchProcessor_ReportsFailuresPerAnalysis(t *testing.T) {
	analyzer := &stubAnalyzer{fail: map[string]bool{"b": true}}
	results := NewBatchProcessor(analyzer, 2, nil).ProcessAnalyses(context.Background(), analyses("a", "b", "c"))

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Error)
	assert.Error(t, results[1].Error)
	assert.Nil(t, results[1].Report)
	assert.NoError(t, results[2].Error)
	assert.Equal(t, int32(3), analyzer.calls)
}

func TestBatchProcessor_Empty(t *testing.T) {
	results := NewBatchProcessor(&stubAnalyzer{}, 2, nil).ProcessAnalyses(context.Background(), nil)
	assert.Empty(t, results)
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(&stubAnalyzer{}, 2, nil).ProcessAnalyses(ctx, analyses("a", "b"))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Error, context.Canceled)
	}
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analyses:
  - name: first
    data: data/lipset.csv
    table: lipset_tt.json
    rows: consistent
  - data: /abs/other.xlsx
    table: other.yaml
`), 0644))

	got, err := ReadManifest(path, model.RowsInconsistent)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, pipeline.Analysis{
		Name:      "first",
		DataPath:  filepath.Join(dir, "data", "lipset.csv"),
		TablePath: filepath.Join(dir, "lipset_tt.json"),
		Rows:      model.RowsConsistent,
	}, got[0])
	assert.Equal(t, "other-inconsistent", got[1].Name)
	assert.Equal(t, "/abs/other.xlsx", got[1].DataPath)
	assert.Equal(t, model.RowsInconsistent, got[1].Rows)
}

func TestReadManifest_Errors(t *testing.T) {
	tests := map[string]string{
		"missing table":  "analyses:\n  - data: a.csv\n",
		"bad rows":       "analyses:\n  - data: a.csv\n    table: t.json\n    rows: most\n",
		"duplicate name": "analyses:\n  - data: a.csv\n    table: t.json\n  - data: a.csv\n    table: u.json\n",
		"not yaml":       "analyses: [",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "m.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := ReadManifest(path, model.RowsBoth)
			assert.Error(t, err)
		})
	}

	_, err := ReadManifest(filepath.Join(t.TempDir(), "absent.yaml"), model.RowsBoth)
	assert.Error(t, err)
}

func TestBatchProcessor_ProcessFileWithPipeline(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	p, err := pipeline.NewPipeline(cfg, nil)
	require.NoError(t, err)

	results, err := NewBatchProcessor(p, 2, nil).ProcessFile(context.Background(),
		filepath.Join("..", "..", "testdata", "manifest.yaml"), model.RowsBoth)
	require.NoError(t, err)
	require.Len(t, results, 3)

	want := map[string]int{
		"lipset-consistent":   1,
		"lipset-inconsistent": 6,
		"lipset-both":         7,
	}
	for _, r := range results {
		require.NoError(t, r.Error, r.Analysis.Name)
		assert.Equal(t, want[r.Analysis.Name], r.Report.Summary.Contradictions, r.Analysis.Name)
	}
}
