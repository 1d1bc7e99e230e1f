package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/qcacontra/internal/cache"
	"github.com/ppiankov/qcacontra/internal/contradiction"
	"github.com/ppiankov/qcacontra/internal/load"
	"github.com/ppiankov/qcacontra/internal/model"
	"go.uber.org/zap"
)

// Analysis names one dataset / truth table pair to inspect
type Analysis struct {
	Name      string
	DataPath  string
	TablePath string
	Rows      model.RowClass
}

// Pipeline loads inputs, runs the contradiction filter and builds reports
type Pipeline struct {
	loader *load.Loader
	filter *contradiction.Filter
	cache  cache.Cache
	config *model.Config
	logger *zap.Logger
}

// NewPipeline creates a pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := contradiction.ParsePolicy(cfg.Filter.Policy)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		loader: load.NewLoader(cfg.Input, logger),
		filter: contradiction.NewFilter(contradiction.Options{
			Policy:  policy,
			Outcome: cfg.Filter.Outcome,
		}),
		cache:  cache.New(cfg.Cache),
		config: cfg,
		logger: logger,
	}, nil
}

// Run executes one analysis end to end
func (p *Pipeline) Run(ctx context.Context, a Analysis) (*model.Report, error) {
	log := p.logger.With(
		zap.String("dataset", a.DataPath),
		zap.String("table", a.TablePath),
		zap.Stringer("rows", a.Rows))

	// 1. Read inputs
	data, err := os.ReadFile(a.DataPath)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	table, err := os.ReadFile(a.TablePath)
	if err != nil {
		return nil, fmt.Errorf("read truth table: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Serve from cache when inputs and settings are unchanged
	key := p.cacheKey(a, data, table)
	if cached, ok := p.cache.Get(key); ok {
		var report model.Report
		if err := json.Unmarshal(cached, &report); err == nil {
			p.stamp(&report, a)
			report.CacheHit = true
			log.Debug("cache hit", zap.Int("contradictions", len(report.Contradictions)))
			return &report, nil
		}
		log.Warn("discarding unreadable cache entry")
		_ = p.cache.Delete(key)
	}

	// 3. Parse
	ds, err := p.loader.ParseDataset(a.DataPath, data)
	if err != nil {
		return nil, err
	}
	tt, err := p.loader.ParseTruthTable(a.TablePath, table)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. Filter
	result, err := p.filter.Apply(ds, tt, a.Rows)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	if len(result.Skipped) > 0 {
		log.Warn("ignored unknown case labels", zap.Strings("labels", result.Skipped))
	}

	// 5. Build report
	outcome := p.config.Filter.Outcome
	if outcome == "" {
		outcome = tt.Outcome
	}
	report := &model.Report{
		Outcome:        outcome,
		Conditions:     conditionColumns(ds, outcome),
		RowClass:       a.Rows.String(),
		Policy:         string(p.filter.Policy()),
		Summary:        summarize(result),
		Contradictions: result.Contradictions,
	}

	if encoded, err := json.Marshal(report); err == nil {
		if err := p.cache.Set(key, encoded, 0); err != nil {
			log.Warn("cache write failed", zap.Error(err))
		}
	}

	p.stamp(report, a)
	log.Info("analysis complete",
		zap.Int("selected_rows", result.SelectedRows),
		zap.Int("candidates", result.Candidates),
		zap.Int("contradictions", len(result.Contradictions)))

	return report, nil
}

// stamp sets the per-run fields that are never cached
func (p *Pipeline) stamp(r *model.Report, a Analysis) {
	r.RunID = uuid.NewString()
	r.Name = a.Name
	r.Dataset = a.DataPath
	r.Table = a.TablePath
	r.GeneratedAt = time.Now().UTC()
}

func (p *Pipeline) cacheKey(a Analysis, data, table []byte) string {
	return cache.Key(
		data,
		table,
		[]byte(a.Rows.String()),
		[]byte(p.filter.Policy()),
		[]byte(p.config.Filter.Outcome),
		[]byte(p.config.Input.LabelColumn),
		[]byte(p.config.Input.Sheet),
		// the format decides how the bytes are parsed
		[]byte(strings.ToLower(filepath.Ext(a.DataPath))),
		[]byte(strings.ToLower(filepath.Ext(a.TablePath))),
	)
}

func summarize(r *contradiction.Result) model.Summary {
	s := model.Summary{
		SelectedRows:   r.SelectedRows,
		Candidates:     r.Candidates,
		Skipped:        r.Skipped,
		Contradictions: len(r.Contradictions),
	}
	if len(r.Contradictions) > 0 {
		s.PerClass = make(map[model.RowTag]int)
		for _, c := range r.Contradictions {
			s.PerClass[c.RowClass]++
		}
	}
	return s
}

func conditionColumns(ds *model.Dataset, outcome string) []string {
	cols := make([]string, 0, len(ds.Columns))
	for _, c := range ds.Columns {
		if c != outcome {
			cols = append(cols, c)
		}
	}
	return cols
}
