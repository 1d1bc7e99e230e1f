package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/qcacontra/internal/model"
	"github.com/ppiankov/qcacontra/internal/pipeline"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Analyzer runs a single analysis
type Analyzer interface {
	Run(ctx context.Context, a pipeline.Analysis) (*model.Report, error)
}

// AnalysisJob runs one manifest entry
type AnalysisJob struct {
	Index    int
	Analysis pipeline.Analysis
	Analyzer Analyzer
}

// Execute runs the analysis
func (j *AnalysisJob) Execute(ctx context.Context) Result {
	report, err := j.Analyzer.Run(ctx, j.Analysis)
	return &AnalysisResult{
		Index:    j.Index,
		Analysis: j.Analysis,
		Report:   report,
		Error:    err,
	}
}

// AnalysisResult is the outcome of one manifest entry
type AnalysisResult struct {
	Index    int
	Analysis pipeline.Analysis
	Report   *model.Report
	Error    error
}

// GetError returns the analysis error, if any
func (r *AnalysisResult) GetError() error {
	return r.Error
}

// BatchProcessor runs many analyses concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	logger      *zap.Logger
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessAnalyses runs every analysis and returns the results in input order.
// Analyses that never ran because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessAnalyses(ctx context.Context, analyses []pipeline.Analysis) []*AnalysisResult {
	results := make([]*AnalysisResult, len(analyses))
	if len(analyses) == 0 {
		return results
	}

	b.logger.Info("batch started", zap.Int("analyses", len(analyses)), zap.Int("workers", b.concurrency))
	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			ar := r.(*AnalysisResult)
			results[ar.Index] = ar
			if ar.Error != nil {
				b.logger.Warn("analysis failed", zap.String("name", ar.Analysis.Name), zap.Error(ar.Error))
			}
		}
	}()

	for i, a := range analyses {
		if !pool.Submit(&AnalysisJob{Index: i, Analysis: a, Analyzer: b.analyzer}) {
			break
		}
	}
	pool.Wait()
	<-done

	for i, r := range results {
		if r != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		results[i] = &AnalysisResult{Index: i, Analysis: analyses[i], Error: err}
	}

	return results
}

// ProcessFile reads a manifest and runs its analyses
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string, defaultRows model.RowClass) ([]*AnalysisResult, error) {
	analyses, err := ReadManifest(path, defaultRows)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	b.logger.Debug("manifest loaded", zap.String("manifest", path), zap.Int("analyses", len(analyses)))
	return b.ProcessAnalyses(ctx, analyses), nil
}

// Manifest lists analyses to run in one batch
type Manifest struct {
	Analyses []ManifestEntry `yaml:"analyses"`
}

// ManifestEntry is one dataset / truth table pair. Relative paths are resolved
// against the manifest's directory.
type ManifestEntry struct {
	Name  string `yaml:"name"`
	Data  string `yaml:"data"`
	Table string `yaml:"table"`
	Rows  string `yaml:"rows"`
}

// ReadManifest parses a YAML manifest. Entries without rows use defaultRows;
// entries without a name are named after their dataset and row class.
func ReadManifest(path string, defaultRows model.RowClass) ([]pipeline.Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(m.Analyses))
	analyses := make([]pipeline.Analysis, 0, len(m.Analyses))

	for i, e := range m.Analyses {
		if e.Data == "" || e.Table == "" {
			return nil, fmt.Errorf("entry %d: data and table are required", i+1)
		}

		rows := defaultRows
		if e.Rows != "" {
			rows, err = model.ParseRowClass(e.Rows)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i+1, err)
			}
		}

		name := e.Name
		if name == "" {
			stem := strings.TrimSuffix(filepath.Base(e.Data), filepath.Ext(e.Data))
			name = stem + "-" + rows.String()
		}
		if seen[name] {
			return nil, fmt.Errorf("entry %d: duplicate analysis name %q", i+1, name)
		}
		seen[name] = true

		analyses = append(analyses, pipeline.Analysis{
			Name:      name,
			DataPath:  resolve(base, e.Data),
			TablePath: resolve(base, e.Table),
			Rows:      rows,
		})
	}

	return analyses, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
