// Package load reads calibrated datasets and truth tables from disk.
package load

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/qcacontra/internal/model"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDuplicateLabel    = errors.New("duplicate case label")
	ErrMalformed         = errors.New("malformed input")
)

// Loader parses input files into model types
type Loader struct {
	labelColumn string
	sheet       string
	logger      *zap.Logger
}

// NewLoader creates a loader for the given input settings
func NewLoader(cfg model.InputConfig, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		labelColumn: cfg.LabelColumn,
		sheet:       cfg.Sheet,
		logger:      logger,
	}
}

// LoadDataset reads and parses a dataset file
func (l *Loader) LoadDataset(path string) (*model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return l.ParseDataset(path, data)
}

// LoadTruthTable reads and parses a truth table file
func (l *Loader) LoadTruthTable(path string) (*model.TruthTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read truth table: %w", err)
	}
	return l.ParseTruthTable(path, data)
}

// ParseDataset parses dataset bytes, picking the format from the source extension
func (l *Loader) ParseDataset(source string, data []byte) (*model.Dataset, error) {
	var (
		ds  *model.Dataset
		err error
	)

	switch ext(source) {
	case ".csv":
		ds, err = parseDelimited(data, ',', l.labelColumn)
	case ".tsv", ".tab":
		ds, err = parseDelimited(data, '\t', l.labelColumn)
	case ".xlsx":
		ds, err = parseXLSX(data, l.sheet, l.labelColumn)
	case ".json":
		ds, err = parseDatasetJSON(data)
	default:
		return nil, fmt.Errorf("%w: dataset %s", ErrUnsupportedFormat, source)
	}
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", source, err)
	}

	ds.Source = source
	l.logger.Debug("dataset loaded",
		zap.String("source", source),
		zap.Int("cases", len(ds.Cases)),
		zap.Strings("columns", ds.Columns))
	return ds, nil
}

// ParseTruthTable parses truth table bytes, picking the format from the source extension
func (l *Loader) ParseTruthTable(source string, data []byte) (*model.TruthTable, error) {
	var (
		tt  *model.TruthTable
		err error
	)

	switch ext(source) {
	case ".json":
		tt, err = parseTableJSON(data)
	case ".yaml", ".yml":
		tt, err = parseTableYAML(data)
	default:
		return nil, fmt.Errorf("%w: truth table %s", ErrUnsupportedFormat, source)
	}
	if err != nil {
		return nil, fmt.Errorf("parse truth table %s: %w", source, err)
	}

	tt.Source = source
	l.logger.Debug("truth table loaded",
		zap.String("source", source),
		zap.String("outcome", tt.Outcome),
		zap.Int("rows", len(tt.Rows)))
	return tt, nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
